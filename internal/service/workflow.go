package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/api"
	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
)

// MutationState tracks the add/remove flow for workflow documents:
// idle -> confirming -> submitting -> idle. Nothing beyond affordance
// disablement is observable while submitting.
type MutationState int

const (
	MutationIdle MutationState = iota
	MutationConfirming
	MutationSubmitting
)

// workflowErrorFallback is the fixed assistant entry for a failed workflow
// chat turn.
const workflowErrorFallback = "Sorry, I encountered an error. Please make sure documents are added to this workflow."

// pendingMutation is the staged add or remove awaiting user confirmation.
type pendingMutation struct {
	remove bool
	item   domain.FeedItem
	doc    domain.WorkflowDocument
}

// WorkflowService owns the open workflow, its document set, and its chat
// transcript. The document set is re-fetched wholesale after mutations;
// per-item detail failures degrade to stubs instead of failing the load.
type WorkflowService struct {
	client    *api.Client
	notices   *notify.Center
	logger    *zap.Logger
	selection *SelectionService
	userID    string

	historyLimit int

	mu        sync.Mutex
	workflows []domain.Workflow
	current   *domain.Workflow
	documents []domain.WorkflowDocument
	messages  []domain.ChatMessage
	chatBusy  bool
	mutation  MutationState
	pending   *pendingMutation

	onDocument func(doc *domain.GeneratedDocument)

	clock func() time.Time
}

// NewWorkflowService builds a workflow service bound to the user identity.
func NewWorkflowService(client *api.Client, notices *notify.Center, logger *zap.Logger, selection *SelectionService, userID string, historyLimit int) *WorkflowService {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &WorkflowService{
		client:       client,
		notices:      notices,
		logger:       logger,
		selection:    selection,
		userID:       userID,
		historyLimit: historyLimit,
		clock:        time.Now,
	}
}

// OnDocument registers the generated-document hook for workflow chat.
func (s *WorkflowService) OnDocument(fn func(doc *domain.GeneratedDocument)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDocument = fn
}

func (s *WorkflowService) requireUser() error {
	if s.userID == "" {
		s.notices.Warn("Sign In Required", "Sign in to use workflows")
		return domain.ErrUnauthenticated
	}
	return nil
}

// List refreshes the user's workflow list.
func (s *WorkflowService) List(ctx context.Context) error {
	if err := s.requireUser(); err != nil {
		return err
	}
	workflows, err := s.client.ListWorkflows(ctx, s.userID)
	if err != nil {
		s.logger.Warn("list workflows failed", zap.Error(err))
		s.notices.Error("Error", "Failed to fetch workflows")
		return err
	}
	s.mu.Lock()
	s.workflows = workflows
	s.mu.Unlock()
	return nil
}

// Workflows returns a copy of the last listed workflows.
func (s *WorkflowService) Workflows() []domain.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Workflow, len(s.workflows))
	copy(out, s.workflows)
	return out
}

// Create creates a workflow and prepends it to the local list.
func (s *WorkflowService) Create(ctx context.Context, name, description string) (*domain.Workflow, error) {
	if err := s.requireUser(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		s.notices.Warn("Workflow", "Workflow name is required")
		return nil, fmt.Errorf("workflow name is required")
	}
	wf, err := s.client.CreateWorkflow(ctx, s.userID, name, description)
	if err != nil {
		s.logger.Warn("create workflow failed", zap.Error(err))
		s.notices.Error("Error", "Failed to create workflow")
		return nil, err
	}
	s.mu.Lock()
	if wf != nil {
		s.workflows = append([]domain.Workflow{*wf}, s.workflows...)
	}
	s.mu.Unlock()
	s.notices.Success("Success", "Workflow created successfully")
	return wf, nil
}

// Delete removes a workflow and drops it from the local list.
func (s *WorkflowService) Delete(ctx context.Context, workflowID string) error {
	if err := s.requireUser(); err != nil {
		return err
	}
	if err := s.client.DeleteWorkflow(ctx, workflowID, s.userID); err != nil {
		s.logger.Warn("delete workflow failed", zap.Error(err))
		s.notices.Error("Error", "Failed to delete workflow")
		return err
	}
	s.mu.Lock()
	for i, wf := range s.workflows {
		if wf.ID == workflowID {
			s.workflows = append(s.workflows[:i], s.workflows[i+1:]...)
			break
		}
	}
	if s.current != nil && s.current.ID == workflowID {
		s.current = nil
		s.documents = nil
		s.messages = nil
	}
	s.mu.Unlock()
	s.notices.Success("Success", "Workflow deleted successfully")
	return nil
}

// Open loads a workflow: its record, its document set, and its transcript.
func (s *WorkflowService) Open(ctx context.Context, workflowID string) error {
	if err := s.requireUser(); err != nil {
		return err
	}
	wf, err := s.client.GetWorkflow(ctx, workflowID)
	if err != nil {
		s.logger.Warn("open workflow failed", zap.String("workflow_id", workflowID), zap.Error(err))
		s.notices.Error("Error", "Workflow not found")
		return err
	}
	s.mu.Lock()
	s.current = wf
	s.mu.Unlock()

	if err := s.LoadDocuments(ctx); err != nil {
		return err
	}
	s.HydrateChat(ctx)
	return nil
}

// Close leaves the open workflow, discarding its loaded documents and
// transcript. The global document chat is untouched.
func (s *WorkflowService) Close() {
	s.mu.Lock()
	s.current = nil
	s.documents = nil
	s.messages = nil
	s.mutation = MutationIdle
	s.pending = nil
	s.mu.Unlock()
}

// Current returns the open workflow, if any.
func (s *WorkflowService) Current() (domain.Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Workflow{}, false
	}
	return *s.current, true
}

// LoadDocuments re-fetches the open workflow's document set wholesale. Each
// membership record gets a detail lookup; an individual failure degrades
// that record to a stub entry and the aggregate load still succeeds.
func (s *WorkflowService) LoadDocuments(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return fmt.Errorf("no workflow open")
	}
	workflowID := s.current.ID
	s.mu.Unlock()

	wf, err := s.client.GetWorkflow(ctx, workflowID)
	if err != nil {
		s.logger.Warn("load workflow documents failed", zap.Error(err))
		s.notices.Error("Error", "Failed to fetch workflow documents")
		return err
	}

	docs := make([]domain.WorkflowDocument, 0, len(wf.Documents))
	for _, ref := range wf.Documents {
		detail, err := s.client.DocumentDetails(ctx, ref.DocType, ref.ID)
		if err != nil {
			s.logger.Debug("document detail lookup failed",
				zap.String("doc_id", ref.DocID), zap.Error(err))
			docs = append(docs, domain.StubDocument(ref))
			continue
		}
		item := *detail
		if item.DocID == "" {
			item.DocID = ref.DocID
		}
		docs = append(docs, domain.WorkflowDocument{
			FeedItem:        item,
			WorkflowDocType: ref.DocType,
			WorkflowDocID:   ref.ID,
			AddedAt:         ref.AddedAt,
		})
	}

	s.mu.Lock()
	s.documents = docs
	s.mu.Unlock()
	return nil
}

// Documents returns a copy of the loaded document set.
func (s *WorkflowService) Documents() []domain.WorkflowDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WorkflowDocument, len(s.documents))
	copy(out, s.documents)
	return out
}

// FilteredDocuments narrows the loaded set by title search, locally.
func (s *WorkflowService) FilteredDocuments(query string) []domain.WorkflowDocument {
	return domain.FilterWorkflowDocuments(s.Documents(), query)
}

// Mutation returns the add/remove flow state.
func (s *WorkflowService) Mutation() MutationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutation
}

// BeginAdd stages a feed item for addition, pending confirmation.
func (s *WorkflowService) BeginAdd(item domain.FeedItem) error {
	if err := s.requireUser(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		s.notices.Error("Error", "Unable to add document to workflow")
		return fmt.Errorf("no workflow open")
	}
	if s.mutation != MutationIdle {
		return domain.ErrBusy
	}
	s.mutation = MutationConfirming
	s.pending = &pendingMutation{item: item}
	return nil
}

// BeginRemove stages a workflow document for removal, pending confirmation.
func (s *WorkflowService) BeginRemove(doc domain.WorkflowDocument) error {
	if err := s.requireUser(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutation != MutationIdle {
		return domain.ErrBusy
	}
	s.mutation = MutationConfirming
	s.pending = &pendingMutation{remove: true, doc: doc}
	return nil
}

// PendingMutation describes the staged change for the confirmation dialog.
func (s *WorkflowService) PendingMutation() (title string, remove, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return "", false, false
	}
	if s.pending.remove {
		return s.pending.doc.ChatTitle(), true, true
	}
	return s.pending.item.Title, false, true
}

// CancelMutation drops the staged change.
func (s *WorkflowService) CancelMutation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutation == MutationConfirming {
		s.mutation = MutationIdle
		s.pending = nil
	}
}

// ConfirmMutation executes the staged add or remove. Adds vectorize and
// attach in one backend call; removes drop the item from local state
// optimistically on success and clear the selection if it was the removed
// document.
func (s *WorkflowService) ConfirmMutation(ctx context.Context) error {
	s.mu.Lock()
	if s.mutation != MutationConfirming || s.pending == nil || s.current == nil {
		s.mu.Unlock()
		return nil
	}
	pending := *s.pending
	workflowID := s.current.ID
	s.mutation = MutationSubmitting
	s.mu.Unlock()

	var err error
	if pending.remove {
		err = s.client.RemoveDocument(ctx, workflowID, pending.doc.WorkflowDocType, pending.doc.WorkflowDocID)
	} else {
		docType := pending.item.Type
		if docType == "" {
			docType = domain.DocTypePressRelease
		}
		err = s.client.AddDocument(ctx, workflowID, docType, pending.item.DocID)
	}

	s.mu.Lock()
	s.mutation = MutationIdle
	s.pending = nil
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("workflow mutation failed", zap.Error(err))
		if pending.remove {
			s.notices.Error("Error", "Failed to remove document from workflow")
		} else {
			s.notices.Error("Error", "Failed to add document to workflow")
		}
		return err
	}
	if pending.remove {
		for i, doc := range s.documents {
			if doc.WorkflowDocID == pending.doc.WorkflowDocID {
				s.documents = append(s.documents[:i], s.documents[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if pending.remove {
		s.selection.ClearIf(pending.doc.DocID)
		s.notices.Success("Success", "Document removed from workflow")
	} else {
		s.notices.Success("Success", "Document vectorized and added to workflow successfully")
	}
	return nil
}

// ChatMessages returns a copy of the workflow transcript.
func (s *WorkflowService) ChatMessages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// ChatBusy reports whether a workflow chat turn is outstanding.
func (s *WorkflowService) ChatBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatBusy
}

// HydrateChat loads the workflow transcript, seeding a welcome entry when
// there is none and degrading to one (plus a notice) on failure.
func (s *WorkflowService) HydrateChat(ctx context.Context) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	workflowID := s.current.ID
	name := s.current.Name
	s.mu.Unlock()

	history, err := s.client.WorkflowHistory(ctx, workflowID, s.userID, s.historyLimit)
	if err != nil {
		s.logger.Warn("workflow history fetch failed", zap.Error(err))
		s.notices.Warn("Chat History", "Could not load previous messages")
		s.seedWorkflowWelcome(name)
		return
	}
	if len(history) == 0 {
		s.seedWorkflowWelcome(name)
		return
	}
	s.mu.Lock()
	s.messages = history
	s.mu.Unlock()
}

func (s *WorkflowService) seedWorkflowWelcome(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []domain.ChatMessage{{
		ID:   uuid.New().String(),
		Role: domain.RoleAssistant,
		Content: fmt.Sprintf(
			"Welcome to %s! I'm here to help you analyze documents and answer questions related to this workflow.", name),
		Timestamp: s.clock(),
	}}
}

// SubmitChat runs one workflow chat turn against the loaded document set.
// Same transcript contract as the global chat: user entry first, exactly
// one assistant entry after the call settles, overlaps rejected.
func (s *WorkflowService) SubmitChat(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyMessage
	}
	if err := s.requireUser(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return fmt.Errorf("no workflow open")
	}
	if s.chatBusy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	if len(s.documents) == 0 {
		s.mu.Unlock()
		s.notices.Warn("Workflow Chat", "Add documents to this workflow before chatting")
		return domain.ErrNoWorkflowDocuments
	}
	workflowID := s.current.ID
	docIDs := make([]string, 0, len(s.documents))
	docTitles := make([]string, 0, len(s.documents))
	for _, doc := range s.documents {
		docIDs = append(docIDs, doc.ChatDocID())
		docTitles = append(docTitles, doc.ChatTitle())
	}
	s.chatBusy = true
	s.messages = append(s.messages, domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: s.clock(),
	})
	s.mu.Unlock()

	reply, err := s.client.WorkflowChat(ctx, workflowID, s.userID, text, docIDs, docTitles)

	s.mu.Lock()
	s.chatBusy = false
	if err != nil {
		s.messages = append(s.messages, domain.ChatMessage{
			ID:        uuid.New().String(),
			Role:      domain.RoleAssistant,
			Content:   workflowErrorFallback,
			Timestamp: s.clock(),
		})
		s.mu.Unlock()
		s.logger.Warn("workflow chat turn failed", zap.Error(err))
		s.notices.Error("Error", "Failed to get response. Please try again.")
		return nil
	}
	s.messages = append(s.messages, domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   reply.Content,
		Timestamp: s.clock(),
		Document:  reply.Document,
	})
	hook := s.onDocument
	s.mu.Unlock()

	if reply.Document != nil && hook != nil {
		hook(reply.Document)
	}
	return nil
}

// ClearChat deletes the stored workflow transcript and re-seeds the
// welcome entry.
func (s *WorkflowService) ClearChat(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return fmt.Errorf("no workflow open")
	}
	workflowID := s.current.ID
	name := s.current.Name
	s.mu.Unlock()

	if err := s.client.ClearWorkflowHistory(ctx, workflowID, s.userID); err != nil {
		s.logger.Warn("clear workflow history failed", zap.Error(err))
		s.notices.Error("Error", "Failed to clear chat history")
		return err
	}
	s.seedWorkflowWelcome(name)
	return nil
}
