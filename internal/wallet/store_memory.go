package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and early development.
// It honors the same contract as the Postgres store: per-wallet
// serialization of Apply and idempotent GetOrCreate.
//
// NOTE: Not intended for production.
type MemoryStore struct {
	mu      sync.RWMutex
	wallets map[string]*memWallet
	byOwner map[ownerKey]string // (user, type) -> wallet id

	clock func() time.Time
}

type ownerKey struct {
	userID string
	typ    WalletType
}

type memWallet struct {
	// mu serializes balance mutations on this wallet only, so distinct
	// wallets can be mutated fully in parallel.
	mu  sync.Mutex
	w   Wallet
	txs []Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets: map[string]*memWallet{},
		byOwner: map[ownerKey]string{},
		clock:   time.Now,
	}
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, userID string, walletType WalletType, currency string) (Wallet, error) {
	_ = ctx
	key := ownerKey{userID: userID, typ: walletType}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byOwner[key]; ok {
		entry := m.wallets[id]
		entry.mu.Lock()
		w := entry.w
		entry.mu.Unlock()
		return w, nil
	}

	now := m.clock().UTC()
	w := Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      walletType,
		Currency:  currency,
		Status:    WalletStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.wallets[w.ID] = &memWallet{w: w}
	m.byOwner[key] = w.ID
	return w, nil
}

func (m *MemoryStore) Get(ctx context.Context, walletID string) (Wallet, error) {
	_ = ctx
	m.mu.RLock()
	entry, ok := m.wallets[walletID]
	m.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.w, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Wallet, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Wallet
	for _, entry := range m.wallets {
		entry.mu.Lock()
		if entry.w.UserID == userID {
			out = append(out, entry.w)
		}
		entry.mu.Unlock()
	}
	return out, nil
}

func (m *MemoryStore) Apply(ctx context.Context, walletID string, tx Transaction) (Wallet, error) {
	_ = ctx
	m.mu.RLock()
	entry, ok := m.wallets[walletID]
	m.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	switch tx.Kind {
	case TransactionKindCredit:
		entry.w.BalanceMinor += tx.AmountMinor
	case TransactionKindDebit:
		if entry.w.BalanceMinor < tx.AmountMinor {
			return Wallet{}, ErrInsufficientFunds
		}
		entry.w.BalanceMinor -= tx.AmountMinor
	default:
		return Wallet{}, ErrInvalidArgument
	}

	entry.w.UpdatedAt = tx.CreatedAt
	entry.txs = append(entry.txs, tx)
	return entry.w, nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, walletID string) ([]Transaction, error) {
	_ = ctx
	m.mu.RLock()
	entry, ok := m.wallets[walletID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	out := make([]Transaction, len(entry.txs))
	copy(out, entry.txs)
	return out, nil
}
