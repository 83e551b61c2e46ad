// Package session owns per-conversation state: the slot values accumulated
// so far and the chat history fed back to the model. State lives server-side,
// keyed by session id; nothing a client echoes back is trusted.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicasanmiguel/riley/internal/assistant"
	"github.com/clinicasanmiguel/riley/internal/slots"
)

// DefaultTTL is how long an idle conversation survives.
const DefaultTTL = 24 * time.Hour

var ErrNotFound = errors.New("session not found")

// Session is one conversation's accumulated state across turns.
type Session struct {
	ID        string                  `json:"id"`
	Channel   string                  `json:"channel"`
	PatientID string                  `json:"patient_id,omitempty"`
	Slots     slots.State             `json:"slots"`
	History   []assistant.ChatMessage `json:"history"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// New creates an empty session with a fresh id.
func New(channel string) *Session {
	return &Session{ID: uuid.New().String(), Channel: channel}
}

// AppendTurn records one user message and the reply that answered it.
func (s *Session) AppendTurn(userMsg, reply string) {
	s.History = append(s.History,
		assistant.ChatMessage{Role: assistant.ChatRoleUser, Content: userMsg},
		assistant.ChatMessage{Role: assistant.ChatRoleAssistant, Content: reply},
	)
}

// Store persists sessions with a sliding TTL.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
