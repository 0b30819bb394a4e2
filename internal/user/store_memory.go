package user

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory user store for tests and early development.
// It is not intended for production use.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User // keyed by id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]User{}}
}

// Put seeds a user. Test helper.
func (m *MemoryStore) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (User, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (User, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}
