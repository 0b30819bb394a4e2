package billing

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory session store for tests and early development.
// It is not intended for production use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]CallSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]CallSession{}}
}

func (m *MemoryStore) Create(ctx context.Context, s CallSession) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (CallSession, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return CallSession{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Update(ctx context.Context, s CallSession) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) ListByInitiator(ctx context.Context, userID string) ([]CallSession, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []CallSession
	for _, s := range m.sessions {
		if s.InitiatorID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
