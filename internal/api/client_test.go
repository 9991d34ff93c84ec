package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdesk/regdesk/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, nil)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestUpdatesTagsItems(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_updates", r.URL.Path)
		writeJSON(t, w, map[string]any{
			"status": "success",
			"updates": []map[string]any{
				{"title": "First", "press_release_link": "https://x/1", "doc_id": "d1"},
				{"title": "Second", "press_release_link": "https://x/2"},
			},
		})
	}))

	items, err := client.Updates(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.DocTypePressRelease, items[0].Type)
	assert.Equal(t, "d1", items[0].DocID)
	assert.Empty(t, items[1].DocID)
}

func TestCircularsTagsItems(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_circulars", r.URL.Path)
		writeJSON(t, w, map[string]any{
			"status": "success",
			"updates": []map[string]any{
				{"title": "Circ", "pdf_link": "https://x/c.pdf", "category": "Banking"},
			},
		})
	}))

	items, err := client.Circulars(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.DocTypeCircular, items[0].Type)
	assert.Equal(t, "https://x/c.pdf", items[0].Key())
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.Updates(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestServerErrorIncludesDetail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	}))

	_, err := client.Updates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestEnvelopeErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"status": "error", "message": "scrape failed"})
	}))

	_, err := client.Updates(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.Contains(t, err.Error(), "scrape failed")
}

func TestMarkReadPostsLink(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/updates/mark_read", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, map[string]any{"status": "success"})
	}))

	require.NoError(t, client.MarkRead(context.Background(), "https://x/1"))
	assert.Equal(t, "https://x/1", got["press_release_link"])
}

func TestProcessMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what changed?", body["message"])
		assert.Equal(t, "d1", body["doc_id"])
		writeJSON(t, w, map[string]any{
			"status": "success",
			"response": map[string]any{
				"content": "Paragraph 4 changed.",
				"context": []map[string]any{{"chunk": "para 4 text", "page_number": 2}},
			},
		})
	}))

	reply, err := client.ProcessMessage(context.Background(), "what changed?", "d1")
	require.NoError(t, err)
	assert.Equal(t, "Paragraph 4 changed.", reply.Content)
	require.Len(t, reply.Context, 1)
	assert.Equal(t, 2, reply.Context[0].PageNumber)
}

func TestProcessMessageMissingPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"status": "success"})
	}))

	_, err := client.ProcessMessage(context.Background(), "hi", "d1")
	assert.Error(t, err)
}

func TestHistoryNormalizesWireShapes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		writeJSON(t, w, map[string]any{
			"status": "success",
			"messages": []map[string]any{
				{"id": 1, "content": "hello", "isUser": true},
				{"id": 2, "content": "hi there", "message_type": "assistant"},
			},
		})
	}))

	history, err := client.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
}

func TestSummarize(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"d1"}, body["doc_ids"])
		writeJSON(t, w, map[string]any{
			"status":    "success",
			"summaries": []map[string]string{{"summary": "A short summary."}},
		})
	}))

	summaries, err := client.Summarize(context.Background(), []string{"d1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A short summary."}, summaries)
}

func TestVectorize(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectorize", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, map[string]any{"status": "success"})
	}))

	require.NoError(t, client.Vectorize(context.Background(), "d1", "https://x/d1.pdf"))
	assert.Equal(t, "d1", got["doc_id"])
	assert.Equal(t, "https://x/d1.pdf", got["pdf_link"])
}
