package payment

import (
	"context"
	"errors"
)

// ErrGateway wraps any upstream gateway failure, including an unsuccessful
// response on an otherwise healthy call.
var ErrGateway = errors.New("payment gateway failure")

type InitiateRequest struct {
	AmountMinor   int64
	CustomerName  string
	CustomerEmail string
	Reference     string
	Description   string
	Currency      string
	RedirectURL   string
}

type InitiateResult struct {
	TransactionRef string
	PaymentRef     string
	CheckoutURL    string

	// Raw is the gateway's response body as JSON, stored verbatim on the
	// payment record.
	Raw string
}

type VerifyResult struct {
	Paid            bool
	AmountPaidMinor int64
	Status          string
	Raw             string
}

// Gateway is the external payment provider boundary. Implementations return
// errors wrapping ErrGateway for upstream failures so callers can map them
// uniformly.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	Verify(ctx context.Context, transactionRef string) (VerifyResult, error)
}
