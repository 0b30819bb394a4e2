package billing

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore persists call sessions.
//
// Assumed schema:
//
//	call_sessions (id, initiator_id, recipient_phone, recipient_name,
//	               status, type, cost_minor, started_at NULL,
//	               ended_at NULL, duration_seconds, signaling_url,
//	               signaling_data JSONB, metadata JSONB,
//	               created_at, updated_at)
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, initiator_id, recipient_phone, recipient_name, status, type, cost_minor,
started_at, ended_at, duration_seconds, signaling_url, COALESCE(signaling_data::text, ''), COALESCE(metadata::text, ''),
created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, s CallSession) error {
	const q = `
INSERT INTO call_sessions (
  id, initiator_id, recipient_phone, recipient_name, status, type, cost_minor,
  started_at, ended_at, duration_seconds, signaling_url, signaling_data, metadata,
  created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''),NULLIF($13,''),$14,$15
)
`
	_, err := p.db.ExecContext(ctx, q,
		s.ID,
		s.InitiatorID,
		s.RecipientPhone,
		s.RecipientName,
		s.Status,
		s.Type,
		s.CostMinor,
		s.StartedAt,
		s.EndedAt,
		s.DurationSeconds,
		s.SignalingURL,
		s.SignalingData,
		s.Metadata,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (CallSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM call_sessions WHERE id = $1`
	return scanSession(p.db.QueryRowContext(ctx, q, id))
}

func (p *PostgresStore) Update(ctx context.Context, s CallSession) error {
	const q = `
UPDATE call_sessions
SET status = $2, cost_minor = $3, started_at = $4, ended_at = $5,
    duration_seconds = $6, signaling_data = NULLIF($7,''), metadata = NULLIF($8,''), updated_at = $9
WHERE id = $1
`
	res, err := p.db.ExecContext(ctx, q,
		s.ID,
		s.Status,
		s.CostMinor,
		s.StartedAt,
		s.EndedAt,
		s.DurationSeconds,
		s.SignalingData,
		s.Metadata,
		s.UpdatedAt,
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

func (p *PostgresStore) ListByInitiator(ctx context.Context, userID string) ([]CallSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM call_sessions WHERE initiator_id = $1 ORDER BY created_at DESC`
	rows, err := p.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (CallSession, error) {
	var s CallSession
	var name sql.NullString
	var started, ended sql.NullTime
	err := row.Scan(
		&s.ID,
		&s.InitiatorID,
		&s.RecipientPhone,
		&name,
		&s.Status,
		&s.Type,
		&s.CostMinor,
		&started,
		&ended,
		&s.DurationSeconds,
		&s.SignalingURL,
		&s.SignalingData,
		&s.Metadata,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallSession{}, ErrNotFound
		}
		return CallSession{}, err
	}
	s.RecipientName = name.String
	if started.Valid {
		t := started.Time
		s.StartedAt = &t
	}
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}
