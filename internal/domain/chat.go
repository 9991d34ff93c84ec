package domain

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ContextExcerpt is a retrieved snippet plus locator returned alongside an
// assistant answer to justify it.
type ContextExcerpt struct {
	Chunk      string `json:"chunk"`
	PageNumber int    `json:"page_number,omitempty"`
}

// GeneratedDocument is a backend-produced artifact attached to a reply.
// Binary payloads arrive base64-encoded; plain text arrives in Content.
type GeneratedDocument struct {
	Filename      string `json:"filename,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
	Content       string `json:"content,omitempty"`
}

// ChatMessage is one transcript entry. Transcripts are append-only and
// chronological; a system message marking a document switch is inserted,
// never replacing prior history.
type ChatMessage struct {
	ID        string             `json:"id"`
	Role      Role               `json:"role"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
	Context   []ContextExcerpt   `json:"context,omitempty"`
	Document  *GeneratedDocument `json:"document,omitempty"`
	IsSummary bool               `json:"is_summary,omitempty"`
}

// WireMessage is the loose shape history endpoints emit. The role arrives
// under different names depending on which endpoint wrote the row, so the
// shape is normalized here, at the ingestion boundary, and the ambiguity is
// never carried deeper.
type WireMessage struct {
	ID          json.Number        `json:"id,omitempty"`
	Content     string             `json:"content"`
	IsUser      *bool              `json:"isUser,omitempty"`
	MessageType string             `json:"message_type,omitempty"`
	Type        string             `json:"type,omitempty"`
	Role        string             `json:"role,omitempty"`
	Timestamp   string             `json:"timestamp,omitempty"`
	Document    *GeneratedDocument `json:"document,omitempty"`
}

// Normalize converts a wire message into the one strict ChatMessage shape.
// Role resolution order: isUser flag, then message_type, type, role; an
// unrecognized row defaults to assistant so history stays renderable.
func (w WireMessage) Normalize() ChatMessage {
	role := RoleAssistant
	switch {
	case w.IsUser != nil:
		if *w.IsUser {
			role = RoleUser
		}
	case w.MessageType != "":
		role = normalizeRole(w.MessageType)
	case w.Type != "":
		role = normalizeRole(w.Type)
	case w.Role != "":
		role = normalizeRole(w.Role)
	}

	var ts time.Time
	if w.Timestamp != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, w.Timestamp); err == nil {
				ts = t
				break
			}
		}
	}

	return ChatMessage{
		ID:        w.ID.String(),
		Role:      role,
		Content:   w.Content,
		Timestamp: ts,
		Document:  w.Document,
	}
}

func normalizeRole(raw string) Role {
	switch Role(raw) {
	case RoleUser, RoleAssistant, RoleSystem:
		return Role(raw)
	default:
		return RoleAssistant
	}
}

// NormalizeHistory maps a fetched transcript into strict messages,
// preserving order.
func NormalizeHistory(wire []WireMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.Normalize())
	}
	return out
}
