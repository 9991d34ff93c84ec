package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/api"
	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
)

// ProvisionStatus tracks backend readiness of the selected document.
type ProvisionStatus int

const (
	StatusUnprovisioned ProvisionStatus = iota
	StatusProvisioning
	StatusReady
)

// SelectionService owns the single document under discussion. Selection
// follows a staged flow: an item is staged as pending, the user confirms,
// the backend vectorizes it, and only then does the selection commit. Chat
// stays disabled against anything that is not Ready.
type SelectionService struct {
	client  *api.Client
	notices *notify.Center
	logger  *zap.Logger

	mu       sync.Mutex
	current  *domain.FeedItem
	pending  *domain.FeedItem
	status   ProvisionStatus
	canceled bool

	// onCommit is invoked after a selection commits, outside the lock, so
	// the transcript can record the switch.
	onCommit func(item domain.FeedItem)
}

// NewSelectionService builds an empty selection.
func NewSelectionService(client *api.Client, notices *notify.Center, logger *zap.Logger) *SelectionService {
	return &SelectionService{client: client, notices: notices, logger: logger}
}

// OnCommit registers the committed-selection hook.
func (s *SelectionService) OnCommit(fn func(item domain.FeedItem)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommit = fn
}

// Current returns the committed selection, if any.
func (s *SelectionService) Current() (domain.FeedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.FeedItem{}, false
	}
	return *s.current, true
}

// Pending returns the staged item awaiting confirmation, if any.
func (s *SelectionService) Pending() (domain.FeedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return domain.FeedItem{}, false
	}
	return *s.pending, true
}

// Ready reports whether chat input may be enabled.
func (s *SelectionService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.status == StatusReady
}

// Status returns the provisioning state of the selection flow.
func (s *SelectionService) Status() ProvisionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stage proposes an item for selection. Items without a document identity
// are rejected with a warning and the existing selection is untouched.
func (s *SelectionService) Stage(item domain.FeedItem) error {
	if item.DocID == "" {
		s.notices.Warn("Document Not Available",
			"This update does not have an associated document to chat about.")
		return domain.ErrNoDocument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusProvisioning {
		return domain.ErrBusy
	}
	s.pending = &item
	s.canceled = false
	return nil
}

// Confirm provisions the pending item and commits it as the selection.
// On failure the prior selection survives and chat stays disabled against
// the unready document. A Cancel that lands while the vectorize call is
// outstanding suppresses the commit.
func (s *SelectionService) Confirm(ctx context.Context) error {
	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return nil
	}
	if s.status == StatusProvisioning {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	item := *s.pending
	s.status = StatusProvisioning
	s.mu.Unlock()

	err := s.client.Vectorize(ctx, item.DocID, item.PDFLink)

	s.mu.Lock()
	if s.canceled {
		s.canceled = false
		s.pending = nil
		if s.current != nil {
			s.status = StatusReady
		} else {
			s.status = StatusUnprovisioned
		}
		s.mu.Unlock()
		return domain.ErrCanceled
	}
	if err != nil {
		// Back to whatever state the prior selection was in.
		if s.current != nil {
			s.status = StatusReady
		} else {
			s.status = StatusUnprovisioned
		}
		s.mu.Unlock()
		s.logger.Warn("vectorize failed", zap.String("doc_id", item.DocID), zap.Error(err))
		s.notices.Error("Error", "Failed to prepare document for chat")
		return fmt.Errorf("provision %s: %w", item.DocID, err)
	}
	s.current = &item
	s.pending = nil
	s.status = StatusReady
	hook := s.onCommit
	s.mu.Unlock()

	if hook != nil {
		hook(item)
	}
	return nil
}

// Cancel drops the staged item without touching the committed selection.
// During provisioning it flags the in-flight Confirm so its result is
// discarded instead of committing behind the user's back.
func (s *SelectionService) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusProvisioning {
		s.canceled = true
		return
	}
	s.pending = nil
}

// SelectProvisioned commits an already vectorized document directly, as
// when picking from a workflow's document set.
func (s *SelectionService) SelectProvisioned(item domain.FeedItem) error {
	if item.DocID == "" {
		s.notices.Warn("Document Not Available",
			"This update does not have an associated document to chat about.")
		return domain.ErrNoDocument
	}
	s.mu.Lock()
	s.current = &item
	s.pending = nil
	s.status = StatusReady
	hook := s.onCommit
	s.mu.Unlock()

	if hook != nil {
		hook(item)
	}
	return nil
}

// ClearIf drops the selection when it matches the given document identity.
// Used when the selected workflow document is deleted.
func (s *SelectionService) ClearIf(docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.DocID != docID {
		return false
	}
	s.current = nil
	s.status = StatusUnprovisioned
	return true
}
