package billing

import "context"

// Store is the persistence contract for call sessions.
// Sessions are never deleted; failed attempts stay on record for audit.
type Store interface {
	Create(ctx context.Context, s CallSession) error
	Get(ctx context.Context, id string) (CallSession, error)
	Update(ctx context.Context, s CallSession) error
	ListByInitiator(ctx context.Context, userID string) ([]CallSession, error)
}
