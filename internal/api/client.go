package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/domain"
)

// Client talks JSON over HTTP to the compliance-assistant backend. All
// endpoints wrap their payload in a status envelope; non-2xx responses and
// status "error" are both reported as recoverable errors, never panics.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a client for the given base URL.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// envelope is the standard response wrapper every endpoint uses.
type envelope struct {
	Status    string               `json:"status"`
	Message   string               `json:"message,omitempty"`
	Updates   []domain.FeedItem    `json:"updates,omitempty"`
	Response  *chatResponse        `json:"response,omitempty"`
	Messages  []domain.WireMessage `json:"messages,omitempty"`
	Summaries []summaryResult      `json:"summaries,omitempty"`
	Data      json.RawMessage      `json:"data,omitempty"`
}

type chatResponse struct {
	Content  string                    `json:"content"`
	Context  []domain.ContextExcerpt   `json:"context,omitempty"`
	Document *domain.GeneratedDocument `json:"document,omitempty"`
}

type summaryResult struct {
	Summary string `json:"summary"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*envelope, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body any) (*envelope, error) {
	return c.do(ctx, http.MethodPost, path, query, body)
}

func (c *Client) del(ctx context.Context, path string, query url.Values, body any) (*envelope, error) {
	return c.do(ctx, http.MethodDelete, path, query, body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, method, path)
}

// send executes a prepared request and unwraps the status envelope. Both the
// JSON paths and the multipart upload funnel through here.
func (c *Client) send(req *http.Request, method, path string) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", method, path, domain.ErrNotFound)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(detail)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	if env.Status != "success" {
		c.logger.Warn("backend reported error",
			zap.String("path", path),
			zap.String("message", env.Message),
		)
		return nil, fmt.Errorf("%s: %w: %s", path, domain.ErrBackend, env.Message)
	}
	return &env, nil
}

func (env *envelope) decodeData(v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("empty data payload")
	}
	return json.Unmarshal(env.Data, v)
}
