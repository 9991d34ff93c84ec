package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/api"
	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
)

const (
	welcomeText = "Hello! I'm your AI assistant. I can help you understand RBI documents. Select a document to get started!"

	// errorFallback is the fixed assistant entry appended when a turn fails.
	errorFallback = "Sorry, I encountered an error. Please try again."
)

// ChatService owns the global document-chat transcript. The transcript is
// append-only and causal: the user entry lands before the network call
// starts, and exactly one assistant entry lands after it settles.
type ChatService struct {
	client  *api.Client
	notices *notify.Center
	logger  *zap.Logger
	userID  string

	mu       sync.Mutex
	messages []domain.ChatMessage
	busy     bool

	// onDocument opens the viewer when a reply carries a generated artifact.
	onDocument func(doc *domain.GeneratedDocument)

	clock func() time.Time
}

// NewChatService builds a chat session for the given user identity.
func NewChatService(client *api.Client, notices *notify.Center, logger *zap.Logger, userID string) *ChatService {
	return &ChatService{
		client:  client,
		notices: notices,
		logger:  logger,
		userID:  userID,
		clock:   time.Now,
	}
}

// OnDocument registers the generated-document hook.
func (s *ChatService) OnDocument(fn func(doc *domain.GeneratedDocument)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDocument = fn
}

// Messages returns a copy of the transcript.
func (s *ChatService) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Busy reports whether a turn is outstanding; the input affordance is
// disabled while true.
func (s *ChatService) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Hydrate loads the stored transcript. No identity or no history seeds the
// fixed welcome message; a fetch failure does the same plus a transient
// notice. Every path leaves the session usable.
func (s *ChatService) Hydrate(ctx context.Context) {
	if s.userID == "" {
		s.seedWelcome()
		return
	}
	history, err := s.client.History(ctx, s.userID)
	if err != nil {
		s.logger.Warn("chat history fetch failed", zap.Error(err))
		s.notices.Warn("Chat History", "Could not load previous messages")
		s.seedWelcome()
		return
	}
	if len(history) == 0 {
		s.seedWelcome()
		return
	}
	s.mu.Lock()
	s.messages = history
	s.mu.Unlock()
}

func (s *ChatService) seedWelcome() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []domain.ChatMessage{{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   welcomeText,
		Timestamp: s.clock(),
	}}
}

// SystemNote appends a system entry, such as a document-switch marker. It
// never replaces prior history.
func (s *ChatService) SystemNote(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      domain.RoleSystem,
		Content:   text,
		Timestamp: s.clock(),
	})
}

// Submit runs one chat turn against the selected document. The user entry
// is appended synchronously before the call; the assistant entry (reply or
// fixed fallback) is appended once the call settles. Overlapping submissions
// are rejected with ErrBusy, so each user entry gets exactly one reply.
// Handled network failures return nil; only validation problems surface as
// errors.
func (s *ChatService) Submit(ctx context.Context, text, docID string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyMessage
	}
	if docID == "" {
		return domain.ErrNoDocument
	}
	if s.userID == "" {
		s.notices.Warn("Sign In Required", "Sign in to chat about documents")
		return domain.ErrUnauthenticated
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.busy = true
	s.messages = append(s.messages, domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: s.clock(),
	})
	s.mu.Unlock()

	reply, err := s.client.ProcessMessage(ctx, text, docID)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.messages = append(s.messages, domain.ChatMessage{
			ID:        uuid.New().String(),
			Role:      domain.RoleAssistant,
			Content:   errorFallback,
			Timestamp: s.clock(),
		})
		s.mu.Unlock()
		s.logger.Warn("chat turn failed", zap.Error(err))
		s.notices.Error("Error", "Failed to get response. Please try again.")
		return nil
	}
	s.messages = append(s.messages, domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   reply.Content,
		Timestamp: s.clock(),
		Context:   reply.Context,
		Document:  reply.Document,
	})
	hook := s.onDocument
	s.mu.Unlock()

	s.persist(ctx, domain.RoleUser, text)
	s.persist(ctx, domain.RoleAssistant, reply.Content)

	if reply.Document != nil && hook != nil {
		hook(reply.Document)
	}
	return nil
}

// persist mirrors a transcript entry to the backend store, best effort.
func (s *ChatService) persist(ctx context.Context, role domain.Role, text string) {
	if err := s.client.SaveMessage(ctx, s.userID, role, text); err != nil {
		s.logger.Debug("save message failed", zap.Error(err))
	}
}

// Summarize asks for a summary of the selected document and appends it as a
// summary-flagged assistant entry. Failures notify only; no fallback entry.
func (s *ChatService) Summarize(ctx context.Context, docID string) error {
	if docID == "" {
		return domain.ErrNoDocument
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	summaries, err := s.client.Summarize(ctx, []string{docID})

	s.mu.Lock()
	s.busy = false
	if err != nil || len(summaries) == 0 {
		s.mu.Unlock()
		s.logger.Warn("summarize failed", zap.Error(err))
		s.notices.Error("Error", "Failed to generate summary. Please try again.")
		return nil
	}
	s.messages = append(s.messages, domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   summaries[0],
		Timestamp: s.clock(),
		IsSummary: true,
	})
	s.mu.Unlock()
	return nil
}
