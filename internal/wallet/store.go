package wallet

import "context"

// Store is the persistence contract for wallet balances and the
// append-only transaction log.
//
// Contract:
//   - GetOrCreate is idempotent under concurrent calls for the same
//     (user, type); a creation conflict resolves to the existing wallet.
//   - Apply adjusts the balance and appends the transaction in one atomic
//     unit, serialized per wallet. A debit that would drive the balance
//     negative fails with ErrInsufficientFunds and persists nothing.
//   - Transactions are append-only; the interface carries no update or
//     delete methods.
type Store interface {
	GetOrCreate(ctx context.Context, userID string, walletType WalletType, currency string) (Wallet, error)
	Get(ctx context.Context, walletID string) (Wallet, error)
	ListByUser(ctx context.Context, userID string) ([]Wallet, error)

	// Apply posts tx to the wallet and returns the updated wallet.
	Apply(ctx context.Context, walletID string, tx Transaction) (Wallet, error)

	ListTransactions(ctx context.Context, walletID string) ([]Transaction, error)
}
