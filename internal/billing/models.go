package billing

import "time"

// RatePerMinuteMinor is the flat per-minute call rate in minor units
// (1000 kobo = 10.00 NGN per minute). Fractional minutes round up.
const RatePerMinuteMinor int64 = 1000

// CallSession is one billable usage unit.
//
// Lifecycle: initiated -> {ringing} -> answered -> completed, with
// initiated/ringing able to move to failed or cancelled. Terminal states
// are completed, failed and cancelled.
//
// Money invariant: CostMinor holds the authorized estimate until the call
// ends; the settled cost written at end-of-call is never revised again.
// Funds move only through the wallet manager, referenced by session id.
type CallSession struct {
	ID          string `json:"id" db:"id"`
	InitiatorID string `json:"initiator_id" db:"initiator_id"`

	RecipientPhone string `json:"recipient_phone" db:"recipient_phone"`
	RecipientName  string `json:"recipient_name,omitempty" db:"recipient_name"`

	Status CallStatus `json:"status" db:"status"`
	Type   CallType   `json:"type" db:"type"`

	// CostMinor is the authorized hold until settlement, then the
	// settled cost.
	CostMinor int64 `json:"cost_minor" db:"cost_minor"`

	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSeconds is derived at end-of-call from the timestamps.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	// SignalingURL is the allocated signaling endpoint; opaque to billing.
	SignalingURL string `json:"signaling_url,omitempty" db:"signaling_url"`

	// SignalingData and Metadata are opaque JSON payloads (JSONB in Postgres).
	SignalingData string `json:"signaling_data,omitempty" db:"signaling_data"`
	Metadata      string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusInitiated CallStatus = "initiated"
	CallStatusRinging   CallStatus = "ringing"
	CallStatusAnswered  CallStatus = "answered"
	CallStatusCompleted CallStatus = "completed"
	CallStatusFailed    CallStatus = "failed"
	CallStatusCancelled CallStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusCancelled:
		return true
	default:
		return false
	}
}

type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

func (t CallType) Valid() bool {
	return t == CallTypeAudio || t == CallTypeVideo
}

// settledCostMinor computes the end-of-call cost: whole-minute billing
// with fractional minutes rounded up.
func settledCostMinor(durationSeconds int) int64 {
	if durationSeconds <= 0 {
		return 0
	}
	minutes := int64(durationSeconds) / 60
	if durationSeconds%60 != 0 {
		minutes++
	}
	return minutes * RatePerMinuteMinor
}
