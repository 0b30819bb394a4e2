package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics for one user.

type CallsSummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type CallsSummary struct {
	UserID string `json:"user_id"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	CancelledCalls int `json:"cancelled_calls"`
	ActiveCalls    int `json:"active_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	TotalCostMinor int64 `json:"total_cost_minor"`
}

// SpendSummaryRequest requests aggregated spend metrics.
// Spend is derived from immutable ledger transactions across the user's wallets.

type SpendSummaryRequest struct {
	UserID   string    `json:"user_id"`
	Range    TimeRange `json:"range"`
	WalletID string    `json:"wallet_id,omitempty"`
}

type SpendSummary struct {
	UserID   string `json:"user_id"`
	WalletID string `json:"wallet_id,omitempty"`

	TotalDebitMinor  int64 `json:"total_debit_minor"`
	TotalCreditMinor int64 `json:"total_credit_minor"`
	NetDeltaMinor    int64 `json:"net_delta_minor"`

	CallSpendMinor int64 `json:"call_spend_minor"`
	TopUpMinor     int64 `json:"top_up_minor"`
}
