package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
)

// workflowBackend fakes the workflow endpoint family for one workflow with
// two resolvable documents and one whose detail lookup fails.
func workflowBackend(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/workflows/wf-1", func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, map[string]any{
			"status": "success",
			"data": map[string]any{
				"workflow": map[string]any{
					"id":   "wf-1",
					"name": "Audit Prep",
					"documents": []map[string]any{
						{"id": 1, "doc_type": "press_release", "doc_id": "d1"},
						{"id": 2, "doc_type": "circular", "doc_id": "d2"},
						{"id": 3, "doc_type": "circular", "doc_id": "d3"},
					},
				},
			},
		})
	})
	mux.HandleFunc("/documents/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/3") {
			http.Error(w, "detail lookup failed", http.StatusInternalServerError)
			return
		}
		title := "Press One"
		docID := "d1"
		if strings.HasSuffix(r.URL.Path, "/2") {
			title = "Circular Two"
			docID = "d2"
		}
		respond(t, w, map[string]any{
			"status": "success",
			"data": map[string]any{
				"document": map[string]any{"title": title, "doc_id": docID},
			},
		})
	})
	mux.HandleFunc("/workflows/wf-1/chat/history", func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, map[string]any{
			"status": "success",
			"data":   map[string]any{"messages": []any{}},
		})
	})
	return mux
}

func newWorkflowService(t *testing.T, handler http.Handler) (*WorkflowService, *SelectionService, *notify.Center) {
	t.Helper()
	backend := newTestBackend(t, handler)
	notices := notify.NewCenter()
	selection := NewSelectionService(backend, notices, zap.NewNop())
	svc := NewWorkflowService(backend, notices, zap.NewNop(), selection, "u1", 50)
	return svc, selection, notices
}

func TestWorkflowOpenDegradesFailedLookupsToStubs(t *testing.T) {
	svc, _, _ := newWorkflowService(t, workflowBackend(t))

	require.NoError(t, svc.Open(context.Background(), "wf-1"))

	wf, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "Audit Prep", wf.Name)

	docs := svc.Documents()
	require.Len(t, docs, 3, "one failed lookup does not shrink the set")
	assert.Equal(t, "Press One", docs[0].Title)
	assert.False(t, docs[0].Stub)
	assert.Equal(t, "Circular Two", docs[1].Title)
	assert.True(t, docs[2].Stub)
	assert.Equal(t, "Document ID: d3", docs[2].Title)
	assert.Equal(t, "d3", docs[2].DocID)

	// Empty history seeds the workflow welcome.
	msgs := svc.ChatMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Welcome to Audit Prep!")
}

func TestWorkflowRequiresUser(t *testing.T) {
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unauthenticated calls must not reach the network")
	}))
	notices := notify.NewCenter()
	selection := NewSelectionService(backend, notices, zap.NewNop())
	svc := NewWorkflowService(backend, notices, zap.NewNop(), selection, "", 50)

	assert.ErrorIs(t, svc.List(context.Background()), domain.ErrUnauthenticated)
	assert.ErrorIs(t, svc.Open(context.Background(), "wf-1"), domain.ErrUnauthenticated)
	_, err := svc.Create(context.Background(), "x", "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestWorkflowCreateRejectsBlankName(t *testing.T) {
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("a blank name is rejected locally")
	}))
	notices := notify.NewCenter()
	selection := NewSelectionService(backend, notices, zap.NewNop())
	svc := NewWorkflowService(backend, notices, zap.NewNop(), selection, "u1", 50)

	_, err := svc.Create(context.Background(), "   ", "")
	require.Error(t, err)
	require.NotEmpty(t, notices.Active())
}

func TestWorkflowMutationStateMachine(t *testing.T) {
	mux := http.NewServeMux()
	var added map[string]string
	mux.Handle("/workflows/wf-1", workflowBackend(t))
	mux.Handle("/documents/", workflowBackend(t))
	mux.Handle("/workflows/wf-1/chat/history", workflowBackend(t))
	mux.HandleFunc("/workflows/wf-1/documents", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&added))
		respond(t, w, map[string]any{"status": "success"})
	})

	svc, _, notices := newWorkflowService(t, mux)
	require.NoError(t, svc.Open(context.Background(), "wf-1"))
	require.Equal(t, MutationIdle, svc.Mutation())

	item := domain.FeedItem{Title: "New Circ", DocID: "d4", Type: domain.DocTypeCircular}
	require.NoError(t, svc.BeginAdd(item))
	assert.Equal(t, MutationConfirming, svc.Mutation())

	// A second staged change is rejected while one is pending.
	assert.ErrorIs(t, svc.BeginAdd(item), domain.ErrBusy)

	title, remove, ok := svc.PendingMutation()
	require.True(t, ok)
	assert.False(t, remove)
	assert.Equal(t, "New Circ", title)

	svc.CancelMutation()
	assert.Equal(t, MutationIdle, svc.Mutation())
	_, _, ok = svc.PendingMutation()
	assert.False(t, ok)

	// Stage again and confirm for real.
	require.NoError(t, svc.BeginAdd(item))
	require.NoError(t, svc.ConfirmMutation(context.Background()))
	assert.Equal(t, MutationIdle, svc.Mutation())
	assert.Equal(t, "circular", added["doc_type"])
	assert.Equal(t, "d4", added["doc_id"])

	active := notices.Active()
	require.NotEmpty(t, active)
	assert.Equal(t, "Document vectorized and added to workflow successfully", active[len(active)-1].Message)
}

func TestWorkflowRemoveClearsMatchingSelection(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/workflows/wf-1", workflowBackend(t))
	mux.Handle("/documents/", workflowBackend(t))
	mux.Handle("/workflows/wf-1/chat/history", workflowBackend(t))
	var removed map[string]any
	mux.HandleFunc("/workflows/wf-1/documents", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&removed))
		respond(t, w, map[string]any{"status": "success"})
	})

	svc, selection, _ := newWorkflowService(t, mux)
	require.NoError(t, svc.Open(context.Background(), "wf-1"))

	docs := svc.Documents()
	target := docs[0] // "Press One", doc_id d1, membership id 1
	require.NoError(t, selection.SelectProvisioned(target.FeedItem))
	require.True(t, selection.Ready())

	require.NoError(t, svc.BeginRemove(target))
	require.NoError(t, svc.ConfirmMutation(context.Background()))

	assert.Equal(t, float64(1), removed["doc_id"], "removal sends the membership row id")

	docs = svc.Documents()
	require.Len(t, docs, 2, "removed document drops out locally")
	for _, d := range docs {
		assert.NotEqual(t, int64(1), d.WorkflowDocID)
	}

	assert.False(t, selection.Ready(), "deleting the selected document clears the selection")
	_, ok := selection.Current()
	assert.False(t, ok)
}

func TestWorkflowRemoveOtherDocumentKeepsSelection(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/workflows/wf-1", workflowBackend(t))
	mux.Handle("/documents/", workflowBackend(t))
	mux.Handle("/workflows/wf-1/chat/history", workflowBackend(t))
	mux.HandleFunc("/workflows/wf-1/documents", func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, map[string]any{"status": "success"})
	})

	svc, selection, _ := newWorkflowService(t, mux)
	require.NoError(t, svc.Open(context.Background(), "wf-1"))

	docs := svc.Documents()
	require.NoError(t, selection.SelectProvisioned(docs[0].FeedItem))

	require.NoError(t, svc.BeginRemove(docs[1]))
	require.NoError(t, svc.ConfirmMutation(context.Background()))

	assert.True(t, selection.Ready(), "selection survives removal of another document")
}

func TestWorkflowChatRejectsEmptyDocumentSet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/workflows/wf-2", func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, map[string]any{
			"status": "success",
			"data": map[string]any{
				"workflow": map[string]any{"id": "wf-2", "name": "Empty", "documents": []any{}},
			},
		})
	})
	mux.HandleFunc("/workflows/wf-2/chat/history", func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, map[string]any{
			"status": "success",
			"data":   map[string]any{"messages": []any{}},
		})
	})

	svc, _, notices := newWorkflowService(t, mux)
	require.NoError(t, svc.Open(context.Background(), "wf-2"))

	err := svc.SubmitChat(context.Background(), "anything there?")
	assert.ErrorIs(t, err, domain.ErrNoWorkflowDocuments)

	// Rejected locally: only the seeded welcome in the transcript.
	msgs := svc.ChatMessages()
	require.Len(t, msgs, 1)
	require.NotEmpty(t, notices.Active())
}

func TestWorkflowChatSendsCollectionIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/workflows/wf-1", workflowBackend(t))
	mux.Handle("/documents/", workflowBackend(t))
	mux.Handle("/workflows/wf-1/chat/history", workflowBackend(t))
	var body map[string]any
	mux.HandleFunc("/workflows/wf-1/chat", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		respond(t, w, map[string]any{
			"status":   "success",
			"response": map[string]any{"content": "Across your documents: yes."},
		})
	})

	svc, _, _ := newWorkflowService(t, mux)
	require.NoError(t, svc.Open(context.Background(), "wf-1"))

	require.NoError(t, svc.SubmitChat(context.Background(), "do any mention KYC?"))

	ids, ok := body["doc_ids"].([]any)
	require.True(t, ok)
	require.Len(t, ids, 3, "stubs still participate in workflow chat")
	for _, id := range ids {
		assert.True(t, strings.HasPrefix(id.(string), "pdf_chunks_"))
	}

	msgs := svc.ChatMessages()
	require.Len(t, msgs, 3) // welcome, user, assistant
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.Equal(t, "do any mention KYC?", msgs[1].Content)
	assert.Equal(t, "Across your documents: yes.", msgs[2].Content)
}

func TestWorkflowChatFailureAppendsFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/workflows/wf-1", workflowBackend(t))
	mux.Handle("/documents/", workflowBackend(t))
	mux.Handle("/workflows/wf-1/chat/history", workflowBackend(t))
	mux.HandleFunc("/workflows/wf-1/chat", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent down", http.StatusInternalServerError)
	})

	svc, _, _ := newWorkflowService(t, mux)
	require.NoError(t, svc.Open(context.Background(), "wf-1"))

	require.NoError(t, svc.SubmitChat(context.Background(), "hello"))

	msgs := svc.ChatMessages()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[2].Content, "Sorry, I encountered an error")
	assert.False(t, svc.ChatBusy())
}

func TestWorkflowClearChatReseedsWelcome(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/workflows/wf-1", workflowBackend(t))
	mux.Handle("/documents/", workflowBackend(t))
	mux.Handle("/workflows/wf-1/chat/history", workflowBackend(t))
	mux.HandleFunc("/workflows/wf-1/chat", func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, map[string]any{
			"status":   "success",
			"response": map[string]any{"content": "sure"},
		})
	})
	mux.HandleFunc("/workflows/wf-1/chat/clear", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		respond(t, w, map[string]any{"status": "success"})
	})

	svc, _, _ := newWorkflowService(t, mux)
	require.NoError(t, svc.Open(context.Background(), "wf-1"))
	require.NoError(t, svc.SubmitChat(context.Background(), "hi"))
	require.Len(t, svc.ChatMessages(), 3)

	require.NoError(t, svc.ClearChat(context.Background()))

	msgs := svc.ChatMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Welcome to Audit Prep!")
}

func TestWorkflowDeleteClearsOpenState(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/workflows/wf-1", workflowBackend(t))
	mux.Handle("/documents/", workflowBackend(t))
	mux.Handle("/workflows/wf-1/chat/history", workflowBackend(t))

	svc, _, _ := newWorkflowService(t, mux)
	require.NoError(t, svc.Open(context.Background(), "wf-1"))
	require.NotEmpty(t, svc.Documents())

	require.NoError(t, svc.Delete(context.Background(), "wf-1"))

	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Empty(t, svc.Documents())
	assert.Empty(t, svc.ChatMessages())
}

func TestWorkflowCloseKeepsListButDropsState(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/workflows/wf-1", workflowBackend(t))
	mux.Handle("/documents/", workflowBackend(t))
	mux.Handle("/workflows/wf-1/chat/history", workflowBackend(t))

	svc, _, _ := newWorkflowService(t, mux)
	require.NoError(t, svc.Open(context.Background(), "wf-1"))

	svc.Close()

	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Empty(t, svc.Documents())
	assert.Equal(t, MutationIdle, svc.Mutation())
}
