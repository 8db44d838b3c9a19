package session

import (
	"context"
	"sync"
	"time"
)

// Store persists State per session id. Get returns a fresh State for unknown ids.
type Store interface {
	Get(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, sessionID string, state *State) error
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore keeps sessions in process; used when no Redis is configured
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a MemoryStore whose entries expire after ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sessionID]

	if !ok {
		return NewState(), nil
	}

	if m.ttl > 0 && m.now().After(entry.expiresAt) {
		delete(m.sessions, sessionID)
		return NewState(), nil
	}

	state := entry.state
	return &state, nil
}

func (m *MemoryStore) Save(ctx context.Context, sessionID string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionID] = memoryEntry{
		state:     *state,
		expiresAt: m.now().Add(m.ttl),
	}

	return nil
}

// Len returns the number of stored sessions, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}
