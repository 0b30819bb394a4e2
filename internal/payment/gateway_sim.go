package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"callcredits-platform/internal/config"
	"callcredits-platform/pkg/logger"

	"github.com/google/uuid"
)

// SimulatedGateway stands in for the hosted payment provider in development
// and tests. It mimics the provider's response shapes: initiation returns a
// transaction reference and a checkout URL, verification always reports the
// transaction as paid.
type SimulatedGateway struct {
	apiKey       string
	contractCode string
	baseURL      string
	merchantName string

	clock func() time.Time
}

func NewSimulatedGateway(cfg config.GatewayConfig) *SimulatedGateway {
	return &SimulatedGateway{
		apiKey:       cfg.APIKey,
		contractCode: cfg.ContractCode,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		merchantName: "CallCredits",
		clock:        time.Now,
	}
}

type simInitiateBody struct {
	TransactionReference string   `json:"transactionReference"`
	PaymentReference     string   `json:"paymentReference"`
	MerchantName         string   `json:"merchantName"`
	ContractCode         string   `json:"contractCode"`
	EnabledMethods       []string `json:"enabledPaymentMethod"`
	CheckoutURL          string   `json:"checkoutUrl"`
}

func (g *SimulatedGateway) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	logger.From(ctx).Info("gateway initiate", "reference", req.Reference, "amount_minor", req.AmountMinor)

	txnRef := fmt.Sprintf("TXN-%d-%s", g.clock().UnixMilli(), shortID())
	body := simInitiateBody{
		TransactionReference: txnRef,
		PaymentReference:     req.Reference,
		MerchantName:         g.merchantName,
		ContractCode:         g.contractCode,
		EnabledMethods:       []string{"CARD", "ACCOUNT_TRANSFER", "USSD"},
		CheckoutURL:          g.baseURL + "/checkout/" + req.Reference,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	return InitiateResult{
		TransactionRef: txnRef,
		PaymentRef:     req.Reference,
		CheckoutURL:    body.CheckoutURL,
		Raw:            string(raw),
	}, nil
}

type simVerifyBody struct {
	TransactionReference string `json:"transactionReference"`
	AmountPaid           int64  `json:"amountPaid"`
	PaidOn               string `json:"paidOn"`
	PaymentStatus        string `json:"paymentStatus"`
	Currency             string `json:"currency"`
	PaymentMethod        string `json:"paymentMethod"`
}

func (g *SimulatedGateway) Verify(ctx context.Context, transactionRef string) (VerifyResult, error) {
	logger.From(ctx).Info("gateway verify", "transaction_ref", transactionRef)

	body := simVerifyBody{
		TransactionReference: transactionRef,
		PaidOn:               g.clock().UTC().Format(time.RFC3339),
		PaymentStatus:        "PAID",
		Currency:             "NGN",
		PaymentMethod:        "CARD",
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	return VerifyResult{
		Paid:   true,
		Status: body.PaymentStatus,
		Raw:    string(raw),
	}, nil
}

func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
