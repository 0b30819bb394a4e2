package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"callcredits-platform/internal/audit"
	"callcredits-platform/internal/user"
	"callcredits-platform/internal/wallet"
	"callcredits-platform/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// WalletManager is the slice of the wallet service payments depend on.
type WalletManager interface {
	GetOrCreate(ctx context.Context, userID string, walletType wallet.WalletType) (wallet.Wallet, error)
	Balance(ctx context.Context, walletID string) (int64, error)
	CreditForPayment(ctx context.Context, walletID string, amountMinor int64, description, reference, metadata, paymentID string) (wallet.Transaction, error)
	DebitForPayment(ctx context.Context, walletID string, amountMinor int64, description, reference, metadata, paymentID string) (wallet.Transaction, error)
}

// Identity resolves the paying user for gateway checkout details.
type Identity interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

// Service orchestrates payments across two funding paths: an external
// hosted checkout, and an internal transfer from the user's primary wallet
// into their call-credits wallet.
type Service struct {
	store       Store
	wallets     WalletManager
	users       Identity
	gateway     Gateway
	audit       *audit.Service
	redirectURL string

	clock func() time.Time
}

func NewService(store Store, wallets WalletManager, users Identity, gw Gateway, auditSvc *audit.Service, redirectURL string) *Service {
	return &Service{
		store:       store,
		wallets:     wallets,
		users:       users,
		gateway:     gw,
		audit:       auditSvc,
		redirectURL: redirectURL,
		clock:       time.Now,
	}
}

type CreatePaymentRequest struct {
	AmountMinor int64         `json:"amount_minor"`
	Currency    string        `json:"currency,omitempty"`
	Method      PaymentMethod `json:"method"`
	Description string        `json:"description,omitempty"`
}

// CreatePayment records the intent and drives it down the requested path.
// The persisted payment is returned even when the path fails, so the caller
// can inspect the failed record alongside the error.
func (s *Service) CreatePayment(ctx context.Context, userID string, req CreatePaymentRequest) (Payment, error) {
	if userID == "" {
		return Payment{}, ErrInvalidArgument
	}
	if req.AmountMinor <= 0 {
		return Payment{}, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if !req.Method.Valid() {
		return Payment{}, fmt.Errorf("%w: method must be external_gateway or wallet_transfer", ErrInvalidArgument)
	}
	currency := req.Currency
	if currency == "" {
		currency = wallet.DefaultCurrency
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Payment{}, err
	}

	now := s.clock().UTC()
	p := Payment{
		ID:               uuid.NewString(),
		UserID:           userID,
		AmountMinor:      req.AmountMinor,
		Currency:         currency,
		Method:           req.Method,
		Status:           StatusPending,
		PaymentReference: s.newPaymentReference(),
		Description:      req.Description,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return Payment{}, err
	}

	switch req.Method {
	case MethodExternalGateway:
		return s.initiateGatewayPayment(ctx, p, u)
	case MethodWalletTransfer:
		return s.processWalletTransfer(ctx, p)
	}
	return p, nil
}

func (s *Service) initiateGatewayPayment(ctx context.Context, p Payment, u user.User) (Payment, error) {
	description := p.Description
	if description == "" {
		description = "Call credits purchase"
	}

	result, err := s.gateway.Initiate(ctx, InitiateRequest{
		AmountMinor:   p.AmountMinor,
		CustomerName:  u.DisplayName(),
		CustomerEmail: u.Email,
		Reference:     p.PaymentReference,
		Description:   description,
		Currency:      p.Currency,
		RedirectURL:   s.redirectURL,
	})
	if err != nil {
		if !errors.Is(err, ErrGateway) {
			err = fmt.Errorf("%w: %v", ErrGateway, err)
		}
		return s.failPayment(ctx, p, "gateway initiation failed"), err
	}

	p.GatewayTransactionRef = result.TransactionRef
	p.GatewayPaymentRef = result.PaymentRef
	p.GatewayResponse = result.Raw
	p.CheckoutURL = result.CheckoutURL
	p.Status = StatusProcessing
	p.UpdatedAt = s.clock().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return Payment{}, err
	}
	return p, nil
}

// processWalletTransfer moves the amount between the user's own wallets:
// primary down, call credits up. The two postings are each atomic but not
// wrapped together; the payment record ties them for reconciliation.
func (s *Service) processWalletTransfer(ctx context.Context, p Payment) (Payment, error) {
	primary, err := s.wallets.GetOrCreate(ctx, p.UserID, wallet.WalletTypePrimary)
	if err != nil {
		return s.failPayment(ctx, p, "primary wallet lookup failed"), err
	}

	balance, err := s.wallets.Balance(ctx, primary.ID)
	if err != nil {
		return s.failPayment(ctx, p, "primary wallet balance failed"), err
	}
	if balance < p.AmountMinor {
		return s.failPayment(ctx, p, "insufficient primary balance"), wallet.ErrInsufficientFunds
	}

	description := p.Description
	if description == "" {
		description = "Wallet payment"
	}
	metadata := fmt.Sprintf(`{"payment_id":%q}`, p.ID)

	if _, err := s.wallets.DebitForPayment(ctx, primary.ID, p.AmountMinor, description, p.PaymentReference, metadata, p.ID); err != nil {
		return s.failPayment(ctx, p, "primary wallet debit failed"), err
	}

	p.Status = StatusCompleted
	p.UpdatedAt = s.clock().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return Payment{}, err
	}

	credits, err := s.wallets.GetOrCreate(ctx, p.UserID, wallet.WalletTypeCallCredits)
	if err != nil {
		return p, err
	}
	if _, err := s.wallets.CreditForPayment(ctx, credits.ID, p.AmountMinor, "Call credits purchase", p.PaymentReference, metadata, p.ID); err != nil {
		return p, err
	}

	s.auditEvent(ctx, audit.Event{
		Type:        audit.EventTypePaymentCompleted,
		ActorUserID: p.UserID,
		PaymentID:   p.ID,
		AmountMinor: p.AmountMinor,
		Message:     "wallet transfer completed",
	})
	return p, nil
}

// VerifyPayment confirms an external-gateway payment against the provider
// and credits the call-credits wallet exactly once. Safe to call repeatedly;
// a payment already completed is returned as-is with no further credit.
func (s *Service) VerifyPayment(ctx context.Context, reference string) (Payment, error) {
	if reference == "" {
		return Payment{}, ErrInvalidArgument
	}
	p, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return Payment{}, err
	}

	if p.Method != MethodExternalGateway || p.GatewayTransactionRef == "" {
		return p, nil
	}

	result, err := s.gateway.Verify(ctx, p.GatewayTransactionRef)
	if err != nil {
		if !errors.Is(err, ErrGateway) {
			err = fmt.Errorf("%w: %v", ErrGateway, err)
		}
		return p, err
	}
	if !result.Paid || p.Status == StatusCompleted {
		return p, nil
	}

	// MarkCompleted is conditional on the stored status, so concurrent
	// verifies elect a single winner and the credit happens once.
	transitioned, err := s.store.MarkCompleted(ctx, p.ID, result.Raw, s.clock().UTC())
	if err != nil {
		return Payment{}, err
	}
	if transitioned {
		credits, err := s.wallets.GetOrCreate(ctx, p.UserID, wallet.WalletTypeCallCredits)
		if err != nil {
			return Payment{}, err
		}
		if _, err := s.wallets.CreditForPayment(ctx, credits.ID, p.AmountMinor, "Payment received", p.PaymentReference, fmt.Sprintf(`{"payment_id":%q}`, p.ID), p.ID); err != nil {
			return Payment{}, err
		}
		s.auditEvent(ctx, audit.Event{
			Type:        audit.EventTypePaymentCompleted,
			ActorUserID: p.UserID,
			WalletID:    credits.ID,
			PaymentID:   p.ID,
			AmountMinor: p.AmountMinor,
			Message:     "gateway payment verified",
		})
	}

	return s.store.Get(ctx, p.ID)
}

// GetPayment returns the payment if it belongs to the caller. Other users'
// payments are indistinguishable from absent ones.
func (s *Service) GetPayment(ctx context.Context, id, userID string) (Payment, error) {
	if id == "" || userID == "" {
		return Payment{}, ErrInvalidArgument
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if p.UserID != userID {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListUserPayments(ctx context.Context, userID string) ([]Payment, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.store.ListByUser(ctx, userID)
}

// failPayment persists the failed status before the original error
// propagates, so the attempt stays auditable.
func (s *Service) failPayment(ctx context.Context, p Payment, reason string) Payment {
	p.Status = StatusFailed
	p.UpdatedAt = s.clock().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		logger.From(ctx).Error("persist failed payment", "payment_id", p.ID, "err", err)
	}
	s.auditEvent(ctx, audit.Event{
		Type:        audit.EventTypePaymentFailed,
		ActorUserID: p.UserID,
		PaymentID:   p.ID,
		AmountMinor: p.AmountMinor,
		Message:     reason,
	})
	return p
}

// auditEvent is best-effort; payments never fail on audit errors.
func (s *Service) auditEvent(ctx context.Context, e audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, e); err != nil {
		logger.From(ctx).Error("audit append failed", "type", string(e.Type), "err", err)
	}
}

func (s *Service) newPaymentReference() string {
	return fmt.Sprintf("PAY-%d-%s", s.clock().UnixMilli(), strings.ToUpper(shortID()))
}
