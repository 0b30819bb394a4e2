package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events.
//
// Assumed schema:
//
//	audit_events (id, type, actor_user_id, wallet_id, payment_id,
//	              session_id, amount_minor, message, metadata JSONB,
//	              created_at)
//
// The table should carry an INSERT-only policy.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_user_id, wallet_id, payment_id, session_id,
  amount_minor, message, metadata, created_at
) VALUES (
  $1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),$7,NULLIF($8,''),NULLIF($9,''),$10
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.ActorUserID,
		e.WalletID,
		e.PaymentID,
		e.SessionID,
		e.AmountMinor,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
