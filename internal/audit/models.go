package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Audit capture is best-effort; money flows must not block on it.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`

	// Target identifiers (optional, depending on the event type).
	WalletID  string `json:"wallet_id,omitempty" db:"wallet_id"`
	PaymentID string `json:"payment_id,omitempty" db:"payment_id"`
	SessionID string `json:"session_id,omitempty" db:"session_id"`

	// AmountMinor is set for money-related events.
	AmountMinor int64 `json:"amount_minor,omitempty" db:"amount_minor"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallHoldFailed      EventType = "call_hold_failed"
	EventTypeCallSettled         EventType = "call_settled"
	EventTypeSettlementShortfall EventType = "settlement_shortfall"
	EventTypePaymentFailed       EventType = "payment_failed"
	EventTypePaymentCompleted    EventType = "payment_completed"
)
