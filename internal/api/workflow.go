package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/regdesk/regdesk/internal/domain"
)

// ListWorkflows returns all workflows owned by the user.
func (c *Client) ListWorkflows(ctx context.Context, userID string) ([]domain.Workflow, error) {
	query := url.Values{"user_id": {userID}}
	env, err := c.get(ctx, "/workflows", query)
	if err != nil {
		return nil, err
	}
	var data struct {
		Workflows []domain.Workflow `json:"workflows"`
	}
	if err := env.decodeData(&data); err != nil {
		return nil, fmt.Errorf("decode workflows: %w", err)
	}
	return data.Workflows, nil
}

// CreateWorkflow creates a new empty workflow.
func (c *Client) CreateWorkflow(ctx context.Context, userID, name, description string) (*domain.Workflow, error) {
	body := map[string]string{
		"user_id":     userID,
		"name":        name,
		"description": description,
	}
	env, err := c.post(ctx, "/workflows", nil, body)
	if err != nil {
		return nil, err
	}
	var data struct {
		Workflow *domain.Workflow `json:"workflow"`
	}
	if err := env.decodeData(&data); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	return data.Workflow, nil
}

// DeleteWorkflow removes a workflow and all associated data.
func (c *Client) DeleteWorkflow(ctx context.Context, workflowID, userID string) error {
	body := map[string]string{"user_id": userID}
	_, err := c.del(ctx, "/workflows/"+workflowID, nil, body)
	return err
}

// GetWorkflow fetches a workflow with its membership records.
func (c *Client) GetWorkflow(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	env, err := c.get(ctx, "/workflows/"+workflowID, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Workflow *domain.Workflow `json:"workflow"`
	}
	if err := env.decodeData(&data); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	if data.Workflow == nil {
		return nil, domain.ErrNotFound
	}
	return data.Workflow, nil
}

// DocumentDetails resolves one membership record to its full document.
func (c *Client) DocumentDetails(ctx context.Context, docType domain.DocType, id int64) (*domain.FeedItem, error) {
	path := "/documents/" + string(docType) + "/" + strconv.FormatInt(id, 10)
	env, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Document *domain.FeedItem `json:"document"`
	}
	if err := env.decodeData(&data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if data.Document == nil {
		return nil, domain.ErrNotFound
	}
	data.Document.Type = docType
	return data.Document, nil
}

// AddDocument vectorizes a document and attaches it to the workflow in one
// call.
func (c *Client) AddDocument(ctx context.Context, workflowID string, docType domain.DocType, docID string) error {
	body := map[string]string{
		"doc_type": string(docType),
		"doc_id":   docID,
	}
	_, err := c.post(ctx, "/workflows/"+workflowID+"/documents", nil, body)
	return err
}

// RemoveDocument detaches a membership record from the workflow. The row id
// is the workflow-scoped identity, not the vectorized content's doc id.
func (c *Client) RemoveDocument(ctx context.Context, workflowID string, docType domain.DocType, workflowDocID int64) error {
	body := map[string]any{
		"doc_type": string(docType),
		"doc_id":   workflowDocID,
	}
	_, err := c.del(ctx, "/workflows/"+workflowID+"/documents", nil, body)
	return err
}

// WorkflowChat submits one turn against the workflow's document set.
func (c *Client) WorkflowChat(ctx context.Context, workflowID, userID, queryText string, docIDs, docTitles []string) (*ChatReply, error) {
	body := map[string]any{
		"query":      queryText,
		"doc_ids":    docIDs,
		"doc_titles": docTitles,
	}
	query := url.Values{"user_id": {userID}}
	env, err := c.post(ctx, "/workflows/"+workflowID+"/chat", query, body)
	if err != nil {
		return nil, err
	}
	if env.Response == nil {
		return nil, fmt.Errorf("workflow chat: missing response payload")
	}
	return &ChatReply{
		Content:  env.Response.Content,
		Document: env.Response.Document,
	}, nil
}

// WorkflowHistory fetches the stored workflow transcript, normalized.
func (c *Client) WorkflowHistory(ctx context.Context, workflowID, userID string, limit int) ([]domain.ChatMessage, error) {
	query := url.Values{
		"user_id": {userID},
		"limit":   {strconv.Itoa(limit)},
	}
	env, err := c.get(ctx, "/workflows/"+workflowID+"/chat/history", query)
	if err != nil {
		return nil, err
	}
	var data struct {
		Messages []domain.WireMessage `json:"messages"`
	}
	if err := env.decodeData(&data); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return domain.NormalizeHistory(data.Messages), nil
}

// ClearWorkflowHistory deletes the stored workflow transcript for a user.
func (c *Client) ClearWorkflowHistory(ctx context.Context, workflowID, userID string) error {
	query := url.Values{"user_id": {userID}}
	_, err := c.del(ctx, "/workflows/"+workflowID+"/chat/clear", query, nil)
	return err
}
