package user

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInactive           = errors.New("user inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store is the persistence contract for user lookup.
type Store interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

// Service is the identity provider consumed by auth, billing and payments.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// FindByID returns the user, rejecting unknown ids with ErrNotFound and
// deactivated accounts with ErrInactive.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrNotFound
	}
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !u.IsActive {
		return User{}, ErrInactive
	}
	return u, nil
}

// VerifyCredentials checks an email/password pair for login.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (User, error) {
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return User{}, ErrInactive
	}
	return u, nil
}
