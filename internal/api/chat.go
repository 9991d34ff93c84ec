package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/regdesk/regdesk/internal/domain"
)

// ChatReply is an assistant answer produced for one user turn.
type ChatReply struct {
	Content  string
	Context  []domain.ContextExcerpt
	Document *domain.GeneratedDocument
}

// ProcessMessage submits one user turn against the selected document and
// returns the assistant reply.
func (c *Client) ProcessMessage(ctx context.Context, message, docID string) (*ChatReply, error) {
	body := map[string]string{
		"message": message,
		"doc_id":  docID,
	}
	env, err := c.post(ctx, "/process_message", nil, body)
	if err != nil {
		return nil, err
	}
	if env.Response == nil {
		return nil, fmt.Errorf("process_message: missing response payload")
	}
	return &ChatReply{
		Content:  env.Response.Content,
		Context:  env.Response.Context,
		Document: env.Response.Document,
	}, nil
}

// SaveMessage persists one transcript entry remotely. Best effort; the
// transcript of record lives server-side.
func (c *Client) SaveMessage(ctx context.Context, userID string, role domain.Role, message string) error {
	body := map[string]string{
		"user_id": userID,
		"role":    string(role),
		"message": message,
	}
	_, err := c.post(ctx, "/save_message", nil, body)
	return err
}

// History fetches the stored transcript for a user, normalized at the
// boundary into the strict message shape.
func (c *Client) History(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	query := url.Values{"user_id": {userID}}
	env, err := c.get(ctx, "/getchats", query)
	if err != nil {
		return nil, err
	}
	return domain.NormalizeHistory(env.Messages), nil
}

// Summarize asks the backend for summaries of the given documents.
func (c *Client) Summarize(ctx context.Context, docIDs []string) ([]string, error) {
	body := map[string][]string{"doc_ids": docIDs}
	env, err := c.post(ctx, "/summarize", nil, body)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(env.Summaries))
	for _, s := range env.Summaries {
		out = append(out, s.Summary)
	}
	return out, nil
}

// Vectorize asks the backend to process and store a document for
// retrieval-augmented chat. Must succeed before the document is chat-ready.
func (c *Client) Vectorize(ctx context.Context, docID, pdfLink string) error {
	body := map[string]string{
		"doc_id":   docID,
		"pdf_link": pdfLink,
	}
	_, err := c.post(ctx, "/vectorize", nil, body)
	return err
}
