package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore persists payments.
//
// Assumed schema:
//
//	payments (id, user_id, amount_minor, currency, method, status,
//	          payment_reference UNIQUE, gateway_transaction_ref,
//	          gateway_payment_ref, gateway_response JSONB, checkout_url,
//	          description, created_at, updated_at)
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const paymentColumns = `id, user_id, amount_minor, currency, method, status, payment_reference,
COALESCE(gateway_transaction_ref, ''), COALESCE(gateway_payment_ref, ''), COALESCE(gateway_response::text, ''),
COALESCE(checkout_url, ''), COALESCE(description, ''), created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, pay Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, amount_minor, currency, method, status, payment_reference,
  gateway_transaction_ref, gateway_payment_ref, gateway_response, checkout_url,
  description, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),NULLIF($11,''),NULLIF($12,''),$13,$14
)
`
	_, err := p.db.ExecContext(ctx, q,
		pay.ID,
		pay.UserID,
		pay.AmountMinor,
		pay.Currency,
		pay.Method,
		pay.Status,
		pay.PaymentReference,
		pay.GatewayTransactionRef,
		pay.GatewayPaymentRef,
		pay.GatewayResponse,
		pay.CheckoutURL,
		pay.Description,
		pay.CreatedAt,
		pay.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(p.db.QueryRowContext(ctx, q, id))
}

func (p *PostgresStore) GetByReference(ctx context.Context, reference string) (Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE payment_reference = $1`
	return scanPayment(p.db.QueryRowContext(ctx, q, reference))
}

func (p *PostgresStore) Update(ctx context.Context, pay Payment) error {
	const q = `
UPDATE payments
SET status = $2, gateway_transaction_ref = NULLIF($3,''), gateway_payment_ref = NULLIF($4,''),
    gateway_response = NULLIF($5,''), checkout_url = NULLIF($6,''), updated_at = $7
WHERE id = $1
`
	res, err := p.db.ExecContext(ctx, q,
		pay.ID,
		pay.Status,
		pay.GatewayTransactionRef,
		pay.GatewayPaymentRef,
		pay.GatewayResponse,
		pay.CheckoutURL,
		pay.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) MarkCompleted(ctx context.Context, id, gatewayResponse string, updatedAt time.Time) (bool, error) {
	const q = `
UPDATE payments
SET status = $2, gateway_response = NULLIF($3,''), updated_at = $4
WHERE id = $1 AND status <> $2
`
	res, err := p.db.ExecContext(ctx, q, id, StatusCompleted, gatewayResponse, updatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := p.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		pay, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pay)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (Payment, error) {
	var pay Payment
	err := row.Scan(
		&pay.ID,
		&pay.UserID,
		&pay.AmountMinor,
		&pay.Currency,
		&pay.Method,
		&pay.Status,
		&pay.PaymentReference,
		&pay.GatewayTransactionRef,
		&pay.GatewayPaymentRef,
		&pay.GatewayResponse,
		&pay.CheckoutURL,
		&pay.Description,
		&pay.CreatedAt,
		&pay.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	return pay, nil
}
