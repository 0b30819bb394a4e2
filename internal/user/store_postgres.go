package user

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore reads users from the users table.
//
// Assumed schema:
//
//	users (id, email UNIQUE, password_hash, first_name, last_name,
//	       is_active, created_at, updated_at)
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, is_active, created_at, updated_at`

func (p *PostgresStore) FindByID(ctx context.Context, id string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return p.scanOne(p.db.QueryRowContext(ctx, q, id))
}

func (p *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return p.scanOne(p.db.QueryRowContext(ctx, q, email))
}

func (p *PostgresStore) scanOne(row *sql.Row) (User, error) {
	var u User
	var first, last sql.NullString
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&first,
		&last,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.FirstName = first.String
	u.LastName = last.String
	return u, nil
}
