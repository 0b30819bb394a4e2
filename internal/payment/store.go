package payment

import (
	"context"
	"time"
)

// Store is the persistence contract for payment records.
// Payments are never deleted; failed attempts stay on record.
type Store interface {
	Create(ctx context.Context, p Payment) error
	Get(ctx context.Context, id string) (Payment, error)
	GetByReference(ctx context.Context, reference string) (Payment, error)
	Update(ctx context.Context, p Payment) error

	// MarkCompleted transitions the payment to completed and stores the
	// verification payload, but only if it is not already completed.
	// Returns whether this call performed the transition.
	MarkCompleted(ctx context.Context, id, gatewayResponse string, updatedAt time.Time) (bool, error)

	ListByUser(ctx context.Context, userID string) ([]Payment, error)
}
