package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"callcredits-platform/pkg/utils"

	"github.com/google/uuid"
)

// PostgresStore persists wallets and the transaction log.
//
// Assumed schema:
//
//	wallets (id, user_id, type, balance_minor, currency, status,
//	         created_at, updated_at, UNIQUE (user_id, type))
//	transactions (id, wallet_id, payment_id NULL, kind, amount_minor,
//	              status, description, reference, metadata JSONB,
//	              created_at) -- INSERT-only
//
// Apply serializes concurrent money operations per wallet with
// SELECT ... FOR UPDATE and commits the balance update together with the
// transaction insert.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

func (p *PostgresStore) GetOrCreate(ctx context.Context, userID string, walletType WalletType, currency string) (Wallet, error) {
	now := p.clock().UTC()

	// Create-then-refetch-on-conflict: the unique (user_id, type)
	// constraint makes concurrent first access converge on one row.
	const ins = `
INSERT INTO wallets (id, user_id, type, balance_minor, currency, status, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $5, $6, $6)
ON CONFLICT (user_id, type) DO NOTHING
`
	if _, err := p.db.ExecContext(ctx, ins, uuid.NewString(), userID, walletType, currency, WalletStatusActive, now); err != nil {
		return Wallet{}, err
	}

	const sel = `
SELECT id, user_id, type, balance_minor, currency, status, created_at, updated_at
FROM wallets
WHERE user_id = $1 AND type = $2
`
	return scanWallet(p.db.QueryRowContext(ctx, sel, userID, walletType))
}

func (p *PostgresStore) Get(ctx context.Context, walletID string) (Wallet, error) {
	const q = `
SELECT id, user_id, type, balance_minor, currency, status, created_at, updated_at
FROM wallets
WHERE id = $1
`
	return scanWallet(p.db.QueryRowContext(ctx, q, walletID))
}

func (p *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Wallet, error) {
	const q = `
SELECT id, user_id, type, balance_minor, currency, status, created_at, updated_at
FROM wallets
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := p.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Apply(ctx context.Context, walletID string, tx Transaction) (Wallet, error) {
	var out Wallet

	err := utils.WithTx(ctx, p.db, &sql.TxOptions{}, func(ctx context.Context, dbtx *sql.Tx) error {
		// Lock the wallet row to serialize concurrent money operations
		// on this wallet.
		const lock = `
SELECT id, user_id, type, balance_minor, currency, status, created_at, updated_at
FROM wallets
WHERE id = $1
FOR UPDATE
`
		w, err := scanWallet(dbtx.QueryRowContext(ctx, lock, walletID))
		if err != nil {
			return err
		}

		var delta int64
		switch tx.Kind {
		case TransactionKindCredit:
			delta = tx.AmountMinor
		case TransactionKindDebit:
			if w.BalanceMinor < tx.AmountMinor {
				return ErrInsufficientFunds
			}
			delta = -tx.AmountMinor
		default:
			return ErrInvalidArgument
		}

		const upd = `
UPDATE wallets
SET balance_minor = balance_minor + $2, updated_at = $3
WHERE id = $1
RETURNING id, user_id, type, balance_minor, currency, status, created_at, updated_at
`
		w, err = scanWallet(dbtx.QueryRowContext(ctx, upd, walletID, delta, tx.CreatedAt))
		if err != nil {
			return err
		}

		const ins = `
INSERT INTO transactions (id, wallet_id, payment_id, kind, amount_minor, status, description, reference, metadata, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
`
		if _, err := dbtx.ExecContext(ctx, ins,
			tx.ID,
			tx.WalletID,
			tx.PaymentID,
			tx.Kind,
			tx.AmountMinor,
			tx.Status,
			tx.Description,
			tx.Reference,
			tx.Metadata,
			tx.CreatedAt,
		); err != nil {
			return err
		}

		out = w
		return nil
	})
	if err != nil {
		return Wallet{}, err
	}
	return out, nil
}

func (p *PostgresStore) ListTransactions(ctx context.Context, walletID string) ([]Transaction, error) {
	const q = `
SELECT id, wallet_id, COALESCE(payment_id, ''), kind, amount_minor, status, description, reference, COALESCE(metadata::text, ''), created_at
FROM transactions
WHERE wallet_id = $1
ORDER BY created_at DESC
`
	rows, err := p.db.QueryContext(ctx, q, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID,
			&t.WalletID,
			&t.PaymentID,
			&t.Kind,
			&t.AmountMinor,
			&t.Status,
			&t.Description,
			&t.Reference,
			&t.Metadata,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	if err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Type,
		&w.BalanceMinor,
		&w.Currency,
		&w.Status,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}
