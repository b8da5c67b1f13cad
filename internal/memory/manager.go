package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
)

// Manager orchestrates per-session state: the durable store plus an
// in-process LangChainGo conversation buffer per session. Sessions are
// isolated by session id; the buffer cache is safe for concurrent use.
type Manager struct {
	store   Store
	mu      sync.Mutex
	buffers map[string]*memory.ConversationBuffer
	logger  zerolog.Logger
}

// NewManager creates a new memory manager
func NewManager(store Store, logger zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		buffers: make(map[string]*memory.ConversationBuffer),
		logger:  logger.With().Str("component", "memory").Logger(),
	}
}

// Session loads the durable session state.
func (m *Manager) Session(ctx context.Context, sessionID string) (*SessionData, error) {
	return m.store.LoadSession(ctx, sessionID)
}

// SaveSession persists session state without touching the conversation.
func (m *Manager) SaveSession(ctx context.Context, session *SessionData) error {
	return m.store.SaveSession(ctx, session)
}

// buffer returns the LangChainGo conversation buffer for a session,
// hydrating it from the store on first use.
func (m *Manager) buffer(ctx context.Context, sessionID string) (*memory.ConversationBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if buf, ok := m.buffers[sessionID]; ok {
		return buf, nil
	}

	buf := memory.NewConversationBuffer()

	session, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	for _, msg := range session.Messages {
		var chatMsg llms.ChatMessage
		switch msg.Role {
		case "user":
			chatMsg = llms.HumanChatMessage{Content: msg.Content}
		case "assistant":
			chatMsg = llms.AIChatMessage{Content: msg.Content}
		case "system":
			chatMsg = llms.SystemChatMessage{Content: msg.Content}
		default:
			m.logger.Warn().Str("role", msg.Role).Msg("unknown message role, skipping")
			continue
		}
		if err := buf.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return nil, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}

	m.buffers[sessionID] = buf
	m.logger.Debug().Str("session", sessionID).Int("messages", len(session.Messages)).Msg("session buffer hydrated")
	return buf, nil
}

// CommitTurn appends one completed user/assistant exchange to the session,
// updating both the conversation buffer and the durable store. The passed
// session carries any profile or transaction updates from the turn; nothing
// is persisted for failed turns, which never reach this method.
func (m *Manager) CommitTurn(ctx context.Context, session *SessionData, userMsg, assistantMsg string) error {
	buf, err := m.buffer(ctx, session.SessionID)
	if err != nil {
		return err
	}

	if err := buf.ChatHistory.AddUserMessage(ctx, userMsg); err != nil {
		return fmt.Errorf("failed to add user message to memory: %w", err)
	}
	if err := buf.ChatHistory.AddAIMessage(ctx, assistantMsg); err != nil {
		return fmt.Errorf("failed to add assistant message to memory: %w", err)
	}

	now := time.Now()
	session.Messages = append(session.Messages,
		Message{Role: "user", Content: userMsg, Timestamp: now},
		Message{Role: "assistant", Content: assistantMsg, Timestamp: now},
	)

	if err := m.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.Debug().Str("session", session.SessionID).Msg("turn committed")
	return nil
}

// History returns the recent conversation as wire-level turns, newest last.
// limit <= 0 returns the whole conversation.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]models.ConversationMessage, error) {
	buf, err := m.buffer(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := buf.ChatHistory.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	out := make([]models.ConversationMessage, 0, len(messages))
	for _, msg := range messages {
		switch mm := msg.(type) {
		case llms.HumanChatMessage:
			out = append(out, models.ConversationMessage{Role: "user", Message: mm.Content})
		case llms.AIChatMessage:
			out = append(out, models.ConversationMessage{Role: "assistant", Message: mm.Content})
		case llms.SystemChatMessage:
			out = append(out, models.ConversationMessage{Role: "system", Message: mm.Content})
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ClearHistory discards the running conversation buffer and transaction
// state, keeping the accumulated profile.
func (m *Manager) ClearHistory(ctx context.Context, sessionID string) error {
	m.dropBuffer(ctx, sessionID)

	session, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Messages = []Message{}
	session.ResetTransaction()

	if err := m.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	m.logger.Info().Str("session", sessionID).Msg("conversation cleared")
	return nil
}

// ClearAll removes the whole session: conversation, transaction state and
// profile.
func (m *Manager) ClearAll(ctx context.Context, sessionID string) error {
	m.dropBuffer(ctx, sessionID)

	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	m.logger.Info().Str("session", sessionID).Msg("session cleared")
	return nil
}

func (m *Manager) dropBuffer(ctx context.Context, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if buf, ok := m.buffers[sessionID]; ok {
		_ = buf.Clear(ctx)
		delete(m.buffers, sessionID)
	}
}

// SessionExists checks if a session exists in the store.
func (m *Manager) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	return m.store.SessionExists(ctx, sessionID)
}

// UpdateActivity refreshes the session TTL.
func (m *Manager) UpdateActivity(ctx context.Context, sessionID string) error {
	return m.store.UpdateActivity(ctx, sessionID)
}

// ActiveSessionCount returns the number of cached session buffers.
func (m *Manager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
