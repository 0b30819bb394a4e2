package reporting

import (
	"context"
	"database/sql"
	"time"

	"callcredits-platform/internal/billing"
	"callcredits-platform/internal/wallet"
)

// PostgresRepo reads reporting data straight from the immutable tables.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// The queries read the tables written by the billing and wallet stores;
// reporting owns no tables of its own.
const listSessionsQuery = `
SELECT id, status, cost_minor, duration_seconds, created_at
FROM call_sessions
WHERE initiator_id = $1 AND created_at >= $2 AND created_at < $3
`

const listTransactionsQuery = `
SELECT t.id, t.wallet_id, COALESCE(t.payment_id, ''), t.kind, t.amount_minor, t.status, COALESCE(t.reference, ''), t.created_at
FROM transactions t
JOIN wallets w ON w.id = t.wallet_id
WHERE w.user_id = $1 AND t.created_at >= $2 AND t.created_at < $3
  AND ($4 = '' OR t.wallet_id = $4)
`

func (r *PostgresRepo) ListSessions(ctx context.Context, userID string, from, to time.Time) ([]billing.CallSession, error) {
	rows, err := r.db.QueryContext(ctx, listSessionsQuery, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.CallSession
	for rows.Next() {
		s := billing.CallSession{InitiatorID: userID}
		if err := rows.Scan(&s.ID, &s.Status, &s.CostMinor, &s.DurationSeconds, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListTransactions(ctx context.Context, userID string, from, to time.Time, walletID string) ([]wallet.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, listTransactionsQuery, userID, from, to, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wallet.Transaction
	for rows.Next() {
		var tx wallet.Transaction
		if err := rows.Scan(&tx.ID, &tx.WalletID, &tx.PaymentID, &tx.Kind, &tx.AmountMinor, &tx.Status, &tx.Reference, &tx.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
