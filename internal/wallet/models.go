package wallet

import "time"

// DefaultCurrency is applied to lazily created wallets.
const DefaultCurrency = "NGN"

// Wallet is a per-user, per-purpose monetary balance holder.
// Invariant: the balance always equals the sum of completed credits minus
// completed debits on the wallet. No code may change a balance without
// writing the corresponding Transaction in the same atomic unit.
//
// Exactly one wallet exists per (user, type); creation is lazy on first
// access. Wallets are never deleted, only retired.
type Wallet struct {
	ID     string     `json:"id" db:"id"`
	UserID string     `json:"user_id" db:"user_id"`
	Type   WalletType `json:"type" db:"type"`

	// BalanceMinor is the current balance in minor units (e.g., kobo).
	// Never negative.
	BalanceMinor int64  `json:"balance_minor" db:"balance_minor"`
	Currency     string `json:"currency" db:"currency"`

	Status WalletStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type WalletType string

const (
	// WalletTypePrimary is the user's funding wallet.
	WalletTypePrimary WalletType = "primary"
	// WalletTypeCallCredits holds usage credits consumed by calls.
	WalletTypeCallCredits WalletType = "call_credits"
)

func (t WalletType) Valid() bool {
	return t == WalletTypePrimary || t == WalletTypeCallCredits
}

type WalletStatus string

const (
	WalletStatusActive  WalletStatus = "active"
	WalletStatusRetired WalletStatus = "retired"
)

// Transaction is an immutable record of one balance mutation.
// Created exactly once per mutation, in the same atomic unit as the
// balance update it records. Never updated after creation.
type Transaction struct {
	ID       string `json:"id" db:"id"`
	WalletID string `json:"wallet_id" db:"wallet_id"`

	// PaymentID links the transaction to a funding payment, when one exists.
	PaymentID string `json:"payment_id,omitempty" db:"payment_id"`

	Kind TransactionKind `json:"kind" db:"kind"`

	// AmountMinor is always positive; Kind carries the direction.
	AmountMinor int64 `json:"amount_minor" db:"amount_minor"`

	Status TransactionStatus `json:"status" db:"status"`

	Description string `json:"description,omitempty" db:"description"`

	// Reference ties the transaction to its originating operation
	// (payment reference, call hold/refund/true-up).
	Reference string `json:"reference,omitempty" db:"reference"`

	// Metadata is optional JSON for audit/debug (store as JSONB in Postgres).
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TransactionKind string

const (
	TransactionKindCredit TransactionKind = "credit"
	TransactionKindDebit  TransactionKind = "debit"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)
