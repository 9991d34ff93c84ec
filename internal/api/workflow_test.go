package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdesk/regdesk/internal/domain"
)

func TestListWorkflows(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflows", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		writeJSON(t, w, map[string]any{
			"status": "success",
			"data": map[string]any{
				"workflows": []map[string]any{
					{"id": "wf-1", "name": "Compliance Q3"},
				},
			},
		})
	}))

	workflows, err := client.ListWorkflows(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, "Compliance Q3", workflows[0].Name)
}

func TestGetWorkflowNilMapsToNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"status": "success",
			"data":   map[string]any{"workflow": nil},
		})
	}))

	_, err := client.GetWorkflow(context.Background(), "wf-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentDetails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/circular/7", r.URL.Path)
		writeJSON(t, w, map[string]any{
			"status": "success",
			"data": map[string]any{
				"document": map[string]any{"title": "Circ 7", "doc_id": "d7", "pdf_link": "https://x/7.pdf"},
			},
		})
	}))

	doc, err := client.DocumentDetails(context.Background(), domain.DocTypeCircular, 7)
	require.NoError(t, err)
	assert.Equal(t, "Circ 7", doc.Title)
	assert.Equal(t, domain.DocTypeCircular, doc.Type)
}

func TestRemoveDocumentSendsMembershipID(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/workflows/wf-1/documents", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, map[string]any{"status": "success"})
	}))

	require.NoError(t, client.RemoveDocument(context.Background(), "wf-1", domain.DocTypeCircular, 42))
	assert.Equal(t, "circular", got["doc_type"])
	assert.Equal(t, float64(42), got["doc_id"], "removal is keyed by the membership row id")
}

func TestWorkflowChat(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflows/wf-1/chat", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "compare these", body["query"])
		writeJSON(t, w, map[string]any{
			"status":   "success",
			"response": map[string]any{"content": "Comparison done."},
		})
	}))

	reply, err := client.WorkflowChat(context.Background(), "wf-1", "u1", "compare these",
		[]string{"pdf_chunks_d1"}, []string{"Doc One"})
	require.NoError(t, err)
	assert.Equal(t, "Comparison done.", reply.Content)
}

func TestWorkflowHistory(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflows/wf-1/chat/history", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		writeJSON(t, w, map[string]any{
			"status": "success",
			"data": map[string]any{
				"messages": []map[string]any{
					{"content": "q", "type": "user"},
					{"content": "a", "type": "assistant"},
				},
			},
		})
	}))

	history, err := client.WorkflowHistory(context.Background(), "wf-1", "u1", 25)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
}
