package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"callcredits-platform/internal/billing"
	"callcredits-platform/internal/wallet"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early
// development. It enforces per-user scoping on reads.

type MemoryRepo struct {
	mu sync.Mutex

	Sessions     []billing.CallSession
	Transactions []wallet.Transaction

	// WalletOwners maps wallet id to owning user id, standing in for the
	// join a real store performs.
	WalletOwners map[string]string
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{WalletOwners: map[string]string{}} }

func (r *MemoryRepo) ListSessions(ctx context.Context, userID string, from, to time.Time) ([]billing.CallSession, error) {
	_ = ctx
	if userID == "" {
		return nil, errors.New("user_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]billing.CallSession, 0)
	for _, s := range r.Sessions {
		if s.InitiatorID != userID {
			continue
		}
		if !s.CreatedAt.IsZero() {
			if s.CreatedAt.Before(from) || !s.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryRepo) ListTransactions(ctx context.Context, userID string, from, to time.Time, walletID string) ([]wallet.Transaction, error) {
	_ = ctx
	if userID == "" {
		return nil, errors.New("user_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wallet.Transaction, 0)
	for _, tx := range r.Transactions {
		if r.WalletOwners[tx.WalletID] != userID {
			continue
		}
		if walletID != "" && tx.WalletID != walletID {
			continue
		}
		if !tx.CreatedAt.IsZero() {
			if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, tx)
	}
	return out, nil
}
