package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. Used in tests and
// single-node development runs without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (m *MemoryStore) LoadSession(_ context.Context, sessionID string) (*SessionData, error) {
	m.mu.RLock()
	raw, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return NewSession(sessionID), nil
	}

	var session SessionData
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	if session.Profile == nil {
		session.Profile = map[string]string{}
	}
	return &session, nil
}

func (m *MemoryStore) SaveSession(_ context.Context, session *SessionData) error {
	session.Metadata.LastActivity = time.Now()
	session.Metadata.MessageCount = len(session.Messages)

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.sessions[session.SessionID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ClearSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SessionExists(_ context.Context, sessionID string) (bool, error) {
	m.mu.RLock()
	_, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	return ok, nil
}

func (m *MemoryStore) UpdateActivity(ctx context.Context, sessionID string) error {
	session, err := m.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return m.SaveSession(ctx, session)
}

func (m *MemoryStore) Close() error { return nil }
