package payment

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory payment store for tests and early development.
// It is not intended for production use.
type MemoryStore struct {
	mu          sync.RWMutex
	payments    map[string]Payment
	byReference map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:    map[string]Payment{},
		byReference: map[string]string{},
	}
}

func (m *MemoryStore) Create(ctx context.Context, p Payment) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
	m.byReference[p.PaymentReference] = p.ID
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Payment, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) GetByReference(ctx context.Context, reference string) (Payment, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byReference[reference]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return m.payments[id], nil
}

func (m *MemoryStore) Update(ctx context.Context, p Payment) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		return ErrNotFound
	}
	m.payments[p.ID] = p
	return nil
}

func (m *MemoryStore) MarkCompleted(ctx context.Context, id, gatewayResponse string, updatedAt time.Time) (bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return false, ErrNotFound
	}
	if p.Status == StatusCompleted {
		return false, nil
	}
	p.Status = StatusCompleted
	p.GatewayResponse = gatewayResponse
	p.UpdatedAt = updatedAt
	m.payments[id] = p
	return true, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Payment, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
