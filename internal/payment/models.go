package payment

import "time"

// Payment is a funding intent for call credits. It is created pending and
// only ever moves forward; failed and cancelled are terminal.
type Payment struct {
	ID          string        `json:"id" db:"id"`
	UserID      string        `json:"user_id" db:"user_id"`
	AmountMinor int64         `json:"amount_minor" db:"amount_minor"`
	Currency    string        `json:"currency" db:"currency"`
	Method      PaymentMethod `json:"method" db:"method"`
	Status      PaymentStatus `json:"status" db:"status"`

	// PaymentReference is the externally visible unique reference handed to
	// the customer and the gateway.
	PaymentReference string `json:"payment_reference" db:"payment_reference"`

	// Gateway-assigned references, set for external-gateway payments once
	// initiation succeeds.
	GatewayTransactionRef string `json:"gateway_transaction_ref,omitempty" db:"gateway_transaction_ref"`
	GatewayPaymentRef     string `json:"gateway_payment_ref,omitempty" db:"gateway_payment_ref"`

	// GatewayResponse is the raw gateway payload (JSON), kept verbatim for
	// dispute handling.
	GatewayResponse string `json:"gateway_response,omitempty" db:"gateway_response"`

	// CheckoutURL is where the customer completes an external-gateway
	// payment. Empty for wallet transfers.
	CheckoutURL string `json:"checkout_url,omitempty" db:"checkout_url"`

	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type PaymentMethod string

const (
	// MethodExternalGateway funds credits through the hosted checkout of the
	// payment provider.
	MethodExternalGateway PaymentMethod = "external_gateway"

	// MethodWalletTransfer moves money from the user's primary wallet into
	// their call-credits wallet.
	MethodWalletTransfer PaymentMethod = "wallet_transfer"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodExternalGateway || m == MethodWalletTransfer
}

type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusCompleted  PaymentStatus = "completed"
	StatusFailed     PaymentStatus = "failed"
	StatusCancelled  PaymentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed, except that a
// processing payment may still complete via verification.
func (s PaymentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
