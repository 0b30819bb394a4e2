package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrForbidden         = errors.New("wallet belongs to another user")
)

// Service is the wallet manager.
//
// Money invariants:
// - No balance updates without a transaction record
// - The transaction log is append-only (immutable)
// - Balance update + transaction insert commit as one atomic unit
// - A debit never drives a balance negative
type Service struct {
	store Store
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

// GetOrCreate returns the user's wallet of the given type, creating it
// with a zero balance and the default currency on first access.
func (s *Service) GetOrCreate(ctx context.Context, userID string, walletType WalletType) (Wallet, error) {
	if userID == "" || !walletType.Valid() {
		return Wallet{}, ErrInvalidArgument
	}
	return s.store.GetOrCreate(ctx, userID, walletType, DefaultCurrency)
}

// Balance returns the current balance in minor units.
func (s *Service) Balance(ctx context.Context, walletID string) (int64, error) {
	if walletID == "" {
		return 0, ErrInvalidArgument
	}
	w, err := s.store.Get(ctx, walletID)
	if err != nil {
		return 0, err
	}
	return w.BalanceMinor, nil
}

// GetOwned returns the wallet only if it belongs to userID.
func (s *Service) GetOwned(ctx context.Context, walletID, userID string) (Wallet, error) {
	if walletID == "" || userID == "" {
		return Wallet{}, ErrInvalidArgument
	}
	w, err := s.store.Get(ctx, walletID)
	if err != nil {
		return Wallet{}, err
	}
	if w.UserID != userID {
		return Wallet{}, ErrForbidden
	}
	return w, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Wallet, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) ListTransactions(ctx context.Context, walletID string) ([]Transaction, error) {
	if walletID == "" {
		return nil, ErrInvalidArgument
	}
	return s.store.ListTransactions(ctx, walletID)
}

// Credit increases the balance and appends a completed credit transaction
// in one atomic unit.
func (s *Service) Credit(ctx context.Context, walletID string, amountMinor int64, description, reference, metadata string) (Transaction, error) {
	return s.post(ctx, walletID, TransactionKindCredit, amountMinor, description, reference, metadata, "")
}

// Debit decreases the balance and appends a completed debit transaction in
// one atomic unit. Fails with ErrInsufficientFunds if the balance is below
// the amount; nothing persists on failure.
func (s *Service) Debit(ctx context.Context, walletID string, amountMinor int64, description, reference, metadata string) (Transaction, error) {
	return s.post(ctx, walletID, TransactionKindDebit, amountMinor, description, reference, metadata, "")
}

// CreditForPayment is Credit with the transaction linked to a payment row.
func (s *Service) CreditForPayment(ctx context.Context, walletID string, amountMinor int64, description, reference, metadata, paymentID string) (Transaction, error) {
	return s.post(ctx, walletID, TransactionKindCredit, amountMinor, description, reference, metadata, paymentID)
}

// DebitForPayment is Debit with the transaction linked to a payment row.
func (s *Service) DebitForPayment(ctx context.Context, walletID string, amountMinor int64, description, reference, metadata, paymentID string) (Transaction, error) {
	return s.post(ctx, walletID, TransactionKindDebit, amountMinor, description, reference, metadata, paymentID)
}

func (s *Service) post(ctx context.Context, walletID string, kind TransactionKind, amountMinor int64, description, reference, metadata, paymentID string) (Transaction, error) {
	if walletID == "" {
		return Transaction{}, ErrInvalidArgument
	}
	if amountMinor <= 0 {
		return Transaction{}, ErrInvalidArgument
	}

	tx := Transaction{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		PaymentID:   paymentID,
		Kind:        kind,
		AmountMinor: amountMinor,
		Status:      TransactionStatusCompleted,
		Description: description,
		Reference:   reference,
		Metadata:    metadata,
		CreatedAt:   s.clock().UTC(),
	}

	if _, err := s.store.Apply(ctx, walletID, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}
