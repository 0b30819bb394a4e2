package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func newTestService(t *testing.T) (*Service, Wallet) {
	t.Helper()
	svc := NewService(NewMemoryStore())
	w, err := svc.GetOrCreate(context.Background(), "user-1", WalletTypeCallCredits)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	return svc, w
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	a, err := svc.GetOrCreate(ctx, "user-1", WalletTypePrimary)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := svc.GetOrCreate(ctx, "user-1", WalletTypePrimary)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("expected same wallet, got %s and %s", a.ID, b.ID)
	}
	if a.BalanceMinor != 0 || a.Currency != DefaultCurrency {
		t.Fatalf("expected zero balance and default currency, got %+v", a)
	}

	// Distinct types get distinct wallets.
	c, err := svc.GetOrCreate(ctx, "user-1", WalletTypeCallCredits)
	if err != nil {
		t.Fatalf("call credits: %v", err)
	}
	if c.ID == a.ID {
		t.Fatalf("expected distinct wallet per type")
	}
}

func TestGetOrCreate_ConcurrentFirstAccess(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	const n = 32
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			w, err := svc.GetOrCreate(ctx, "user-1", WalletTypePrimary)
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			ids[i] = w.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("expected a single wallet for (user, type); got %s and %s", ids[0], id)
		}
	}
}

func TestGetOrCreate_ConcurrentWithPosting(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()

	// GetOrCreate on an existing wallet must serialize with balance
	// mutations on it, the access pattern a user's concurrent calls
	// produce.
	const n = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if _, err := svc.Credit(ctx, w.ID, 1, "top-up", "seed", ""); err != nil {
				t.Errorf("credit: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			got, err := svc.GetOrCreate(ctx, "user-1", WalletTypeCallCredits)
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			if got.ID != w.ID {
				t.Errorf("expected wallet %s, got %s", w.ID, got.ID)
				return
			}
		}
	}()
	wg.Wait()

	bal, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != n {
		t.Fatalf("expected balance %d, got %d", n, bal)
	}
}

func TestCreditDebit_BalanceConservation(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, w.ID, 500, "top-up", "ref-1", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Credit(ctx, w.ID, 300, "top-up", "ref-2", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Debit(ctx, w.ID, 200, "usage", "ref-3", ""); err != nil {
		t.Fatalf("debit: %v", err)
	}

	bal, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 600 {
		t.Fatalf("expected 600, got %d", bal)
	}

	// Every mutation left exactly one completed transaction.
	txs, err := svc.ListTransactions(ctx, w.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	var sum int64
	for _, tx := range txs {
		if tx.Status != TransactionStatusCompleted {
			t.Fatalf("expected completed, got %s", tx.Status)
		}
		if tx.AmountMinor <= 0 {
			t.Fatalf("expected positive amount, got %d", tx.AmountMinor)
		}
		switch tx.Kind {
		case TransactionKindCredit:
			sum += tx.AmountMinor
		case TransactionKindDebit:
			sum -= tx.AmountMinor
		}
	}
	if sum != bal {
		t.Fatalf("ledger sum %d does not match balance %d", sum, bal)
	}
}

func TestDebit_InsufficientFunds(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, w.ID, 100, "", "r1", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Debit(ctx, w.ID, 101, "", "r2", ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Failed debit left no partial effect.
	bal, _ := svc.Balance(ctx, w.ID)
	if bal != 100 {
		t.Fatalf("expected 100 after failed debit, got %d", bal)
	}
	txs, _ := svc.ListTransactions(ctx, w.ID)
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
}

func TestDebit_NoLostUpdates(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()

	const n = 20
	const amount = 50

	// Balance exactly n*amount: all debits must succeed.
	if _, err := svc.Credit(ctx, w.ID, n*amount, "seed", "seed", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(ctx, w.ID, amount, "", "", ""); err != nil {
				t.Errorf("debit: %v", err)
			}
		}()
	}
	wg.Wait()

	bal, _ := svc.Balance(ctx, w.ID)
	if bal != 0 {
		t.Fatalf("expected 0 after %d concurrent debits, got %d", n, bal)
	}

	// Balance (n-1)*amount: exactly one debit must fail.
	if _, err := svc.Credit(ctx, w.ID, (n-1)*amount, "seed", "seed2", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	var mu sync.Mutex
	var failed int
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Debit(ctx, w.ID, amount, "", "", "")
			if err != nil {
				if !errors.Is(err, ErrInsufficientFunds) {
					t.Errorf("unexpected debit error: %v", err)
					return
				}
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if failed != 1 {
		t.Fatalf("expected exactly 1 failed debit, got %d", failed)
	}
	bal, _ = svc.Balance(ctx, w.ID)
	if bal != 0 {
		t.Fatalf("expected 0, got %d", bal)
	}
}

func TestPost_RejectsInvalidArgs(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "", 100, "", "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.Credit(ctx, w.ID, 0, "", "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.Debit(ctx, w.ID, -5, "", "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.Credit(ctx, "missing", 100, "", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetOrCreate(ctx, "user-1", WalletType("savings")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for bad type, got %v", err)
	}
}

func TestGetOwned(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()

	if _, err := svc.GetOwned(ctx, w.ID, "user-1"); err != nil {
		t.Fatalf("expected owner access, got %v", err)
	}
	if _, err := svc.GetOwned(ctx, w.ID, "user-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.GetOwned(ctx, "missing", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
