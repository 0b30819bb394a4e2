package user

import (
	"strings"
	"time"
)

// User is the account identity consumed by billing and payments.
// Registration and password lifecycle live outside this service; the
// fields here are what the core needs: identity, contact, active flag.
type User struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`

	// PasswordHash is a bcrypt hash. Never serialized.
	PasswordHash string `json:"-" db:"password_hash"`

	FirstName string `json:"first_name,omitempty" db:"first_name"`
	LastName  string `json:"last_name,omitempty" db:"last_name"`

	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName is the customer-facing name passed to the payment gateway.
// Falls back to the email when no name is on file.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
