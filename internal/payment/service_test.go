package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"callcredits-platform/internal/audit"
	"callcredits-platform/internal/config"
	"callcredits-platform/internal/user"
	"callcredits-platform/internal/wallet"
)

type fixture struct {
	svc     *Service
	wallets *wallet.Service
	store   *MemoryStore
}

func newFixture(t *testing.T, gw Gateway) *fixture {
	t.Helper()
	users := user.NewMemoryStore()
	users.Put(user.User{
		ID:        "user-1",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Obi",
		IsActive:  true,
	})

	wallets := wallet.NewService(wallet.NewMemoryStore())
	store := NewMemoryStore()
	if gw == nil {
		gw = NewSimulatedGateway(config.GatewayConfig{
			APIKey:       "test-key",
			ContractCode: "test-contract",
			BaseURL:      "https://pay.example.com",
		})
	}

	svc := NewService(store, wallets, user.NewService(users), gw, audit.NewService(audit.NewMemoryRepo()), "https://app.example.com/payment/callback")
	svc.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return &fixture{svc: svc, wallets: wallets, store: store}
}

func (f *fixture) balance(t *testing.T, userID string, walletType wallet.WalletType) int64 {
	t.Helper()
	w, err := f.wallets.GetOrCreate(context.Background(), userID, walletType)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	bal, err := f.wallets.Balance(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestCreatePayment_GatewayPath(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	p, err := f.svc.CreatePayment(ctx, "user-1", CreatePaymentRequest{
		AmountMinor: 50_000,
		Method:      MethodExternalGateway,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", p.Status)
	}
	if p.Currency != wallet.DefaultCurrency {
		t.Fatalf("expected default currency, got %s", p.Currency)
	}
	if p.GatewayTransactionRef == "" || p.CheckoutURL == "" {
		t.Fatalf("expected gateway references, got %+v", p)
	}

	// No credit until verification.
	if got := f.balance(t, "user-1", wallet.WalletTypeCallCredits); got != 0 {
		t.Fatalf("expected no credit before verification, got %d", got)
	}
}

func TestVerifyPayment_CreditsExactlyOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	p, err := f.svc.CreatePayment(ctx, "user-1", CreatePaymentRequest{
		AmountMinor: 50_000,
		Method:      MethodExternalGateway,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	verified, err := f.svc.VerifyPayment(ctx, p.PaymentReference)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", verified.Status)
	}
	if verified.GatewayResponse == "" {
		t.Fatalf("expected verification payload stored")
	}
	if got := f.balance(t, "user-1", wallet.WalletTypeCallCredits); got != 50_000 {
		t.Fatalf("expected credit of 50000, got %d", got)
	}

	// A second verify performs no additional credit.
	again, err := f.svc.VerifyPayment(ctx, p.PaymentReference)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if again.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", again.Status)
	}
	if got := f.balance(t, "user-1", wallet.WalletTypeCallCredits); got != 50_000 {
		t.Fatalf("expected single credit, got %d", got)
	}
}

func TestVerifyPayment_UnknownReference(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.VerifyPayment(context.Background(), "PAY-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePayment_WalletTransferConservation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	primary, err := f.wallets.GetOrCreate(ctx, "user-1", wallet.WalletTypePrimary)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if _, err := f.wallets.Credit(ctx, primary.ID, 100_000, "top-up", "seed", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	p, err := f.svc.CreatePayment(ctx, "user-1", CreatePaymentRequest{
		AmountMinor: 30_000,
		Method:      MethodWalletTransfer,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", p.Status)
	}

	primaryBal := f.balance(t, "user-1", wallet.WalletTypePrimary)
	creditsBal := f.balance(t, "user-1", wallet.WalletTypeCallCredits)
	if primaryBal != 70_000 || creditsBal != 30_000 {
		t.Fatalf("expected 70000/30000, got %d/%d", primaryBal, creditsBal)
	}
	// The transfer conserves the user's total.
	if primaryBal+creditsBal != 100_000 {
		t.Fatalf("transfer created or lost money: total %d", primaryBal+creditsBal)
	}
}

func TestCreatePayment_WalletTransferInsufficient(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	p, err := f.svc.CreatePayment(ctx, "user-1", CreatePaymentRequest{
		AmountMinor: 30_000,
		Method:      MethodWalletTransfer,
	})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if p.Status != StatusFailed {
		t.Fatalf("expected failed record returned, got %s", p.Status)
	}

	// The failed attempt is persisted.
	stored, err := f.store.GetByReference(ctx, p.PaymentReference)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.Status != StatusFailed {
		t.Fatalf("expected failed persisted, got %s", stored.Status)
	}
}

// brokenGateway fails every initiation.
type brokenGateway struct{}

func (brokenGateway) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	return InitiateResult{}, errors.New("connection refused")
}

func (brokenGateway) Verify(ctx context.Context, transactionRef string) (VerifyResult, error) {
	return VerifyResult{}, errors.New("connection refused")
}

func TestCreatePayment_GatewayFailurePersistsFailed(t *testing.T) {
	f := newFixture(t, brokenGateway{})
	ctx := context.Background()

	p, err := f.svc.CreatePayment(ctx, "user-1", CreatePaymentRequest{
		AmountMinor: 50_000,
		Method:      MethodExternalGateway,
	})
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	if p.Status != StatusFailed {
		t.Fatalf("expected failed record returned, got %s", p.Status)
	}

	stored, err := f.store.GetByReference(ctx, p.PaymentReference)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.Status != StatusFailed {
		t.Fatalf("expected failed persisted, got %s", stored.Status)
	}
}

func TestCreatePayment_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.CreatePayment(ctx, "user-1", CreatePaymentRequest{AmountMinor: 0, Method: MethodWalletTransfer}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero amount, got %v", err)
	}
	if _, err := f.svc.CreatePayment(ctx, "user-1", CreatePaymentRequest{AmountMinor: 100, Method: PaymentMethod("cash")}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for method, got %v", err)
	}
	if _, err := f.svc.CreatePayment(ctx, "nobody", CreatePaymentRequest{AmountMinor: 100, Method: MethodWalletTransfer}); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected user.ErrNotFound, got %v", err)
	}
}

func TestGetPayment_ScopedToOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	p, err := f.svc.CreatePayment(ctx, "user-1", CreatePaymentRequest{
		AmountMinor: 50_000,
		Method:      MethodExternalGateway,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.svc.GetPayment(ctx, p.ID, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("wrong payment returned")
	}

	// Another user's payment looks absent, not forbidden.
	if _, err := f.svc.GetPayment(ctx, p.ID, "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := f.svc.ListUserPayments(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one payment, got %d", len(list))
	}
}
