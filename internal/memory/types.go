package memory

import (
	"context"
	"time"

	"github.com/avvvet/beckn-intent/internal/models"
)

// Message represents a single message in a conversation
type Message struct {
	Role      string    `json:"role"`      // "user" or "assistant"
	Content   string    `json:"content"`   // The actual message text
	Timestamp time.Time `json:"timestamp"` // When the message was sent
}

// OrderProgress tracks how far the current transaction has advanced along
// search > select > init > confirm.
type OrderProgress struct {
	Searched bool `json:"searched"`
	Selected bool `json:"selected"`
	Inited   bool `json:"inited"`
}

// SessionData represents all data for a conversation session: the running
// conversation, the accumulated profile, and the state of the current
// transaction.
type SessionData struct {
	SessionID     string         `json:"session_id"`
	UserID        string         `json:"user_id"`
	Profile       models.Profile `json:"profile"`
	TransactionID string         `json:"transaction_id,omitempty"`
	DomainKey     string         `json:"domain_key,omitempty"`
	BppID         string         `json:"bpp_id,omitempty"`
	BppURI        string         `json:"bpp_uri,omitempty"`
	Progress      OrderProgress  `json:"progress"`
	Messages      []Message      `json:"messages"`
	Metadata      Metadata       `json:"metadata"`
}

// Metadata contains session information
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// History renders the stored messages as wire-level conversation turns.
func (s *SessionData) History() []models.ConversationMessage {
	out := make([]models.ConversationMessage, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, models.ConversationMessage{Role: m.Role, Message: m.Content})
	}
	return out
}

// ResetTransaction drops the transaction state, keeping profile and
// conversation intact. Used after a confirmed order and on ambiguous flows.
func (s *SessionData) ResetTransaction() {
	s.TransactionID = ""
	s.DomainKey = ""
	s.BppID = ""
	s.BppURI = ""
	s.Progress = OrderProgress{}
}

// Store defines the interface for session storage.
// This allows us to swap between Redis, in-memory, etc.
type Store interface {
	// LoadSession loads a session from storage, returning an empty
	// session when none exists.
	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)

	// SaveSession persists the full session state.
	SaveSession(ctx context.Context, session *SessionData) error

	// ClearSession removes a session from storage
	ClearSession(ctx context.Context, sessionID string) error

	// SessionExists checks if a session exists
	SessionExists(ctx context.Context, sessionID string) (bool, error)

	// UpdateActivity updates the last activity timestamp
	UpdateActivity(ctx context.Context, sessionID string) error
}

// NewSession builds an empty session.
func NewSession(sessionID string) *SessionData {
	now := time.Now()
	return &SessionData{
		SessionID: sessionID,
		Profile:   models.Profile{},
		Messages:  []Message{},
		Metadata: Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
}
