package domain

import (
	"fmt"
	"strings"
)

// Workflow is a user-named grouping of documents with its own chat context.
type Workflow struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	CreatedAt   string        `json:"created_at,omitempty"`
	Documents   []WorkflowRef `json:"documents,omitempty"`
}

// WorkflowRef is the lightweight membership record the workflow endpoint
// returns; full details require a per-document lookup.
type WorkflowRef struct {
	ID      int64   `json:"id"`
	DocType DocType `json:"doc_type"`
	DocID   string  `json:"doc_id"`
	AddedAt string  `json:"added_at,omitempty"`
}

// WorkflowDocument is a feed item scoped to a workflow. WorkflowDocID is the
// membership row identity used for removal; it is distinct from DocID, which
// names the vectorized content.
type WorkflowDocument struct {
	FeedItem
	WorkflowDocType DocType `json:"workflow_doc_type"`
	WorkflowDocID   int64   `json:"workflow_doc_id"`
	AddedAt         string  `json:"added_at,omitempty"`
	Stub            bool    `json:"-"`
}

// StubDocument fills in for a reference whose detail lookup failed, so one
// bad lookup degrades a single entry instead of the whole set.
func StubDocument(ref WorkflowRef) WorkflowDocument {
	return WorkflowDocument{
		FeedItem: FeedItem{
			Title: fmt.Sprintf("Document ID: %s", ref.DocID),
			DocID: ref.DocID,
			Type:  ref.DocType,
		},
		WorkflowDocType: ref.DocType,
		WorkflowDocID:   ref.ID,
		AddedAt:         ref.AddedAt,
		Stub:            true,
	}
}

// FilterWorkflowDocuments narrows the set by case-insensitive substring
// match on title. Pure; operates on the last loaded set only.
func FilterWorkflowDocuments(docs []WorkflowDocument, query string) []WorkflowDocument {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return docs
	}
	var out []WorkflowDocument
	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc.Title), query) {
			out = append(out, doc)
		}
	}
	return out
}

// ChatDocID is the retrieval collection name for a workflow document.
func (d WorkflowDocument) ChatDocID() string {
	return "pdf_chunks_" + d.DocID
}

// ChatTitle is the display title passed to the workflow agent.
func (d WorkflowDocument) ChatTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return fmt.Sprintf("%s Document", d.WorkflowDocType)
}
