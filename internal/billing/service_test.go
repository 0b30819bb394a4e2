package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"callcredits-platform/internal/audit"
	"callcredits-platform/internal/signaling"
	"callcredits-platform/internal/wallet"
)

type fixture struct {
	svc     *Service
	wallets *wallet.Service
	store   *MemoryStore
	audit   *audit.MemoryRepo
	now     *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	wallets := wallet.NewService(wallet.NewMemoryStore())
	store := NewMemoryStore()
	auditRepo := audit.NewMemoryRepo()
	alloc, err := signaling.NewURLAllocator("https://signaling.local/call")
	if err != nil {
		t.Fatalf("allocator: %v", err)
	}

	svc := NewService(store, wallets, alloc, NoopLimiter{}, audit.NewService(auditRepo))
	now := time.Unix(1700000000, 0).UTC()
	svc.clock = func() time.Time { return now }

	return &fixture{svc: svc, wallets: wallets, store: store, audit: auditRepo, now: &now}
}

func (f *fixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func (f *fixture) topUp(t *testing.T, userID string, amount int64) wallet.Wallet {
	t.Helper()
	w, err := f.wallets.GetOrCreate(context.Background(), userID, wallet.WalletTypeCallCredits)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if _, err := f.wallets.Credit(context.Background(), w.ID, amount, "top-up", "seed", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	return w
}

func (f *fixture) balance(t *testing.T, walletID string) int64 {
	t.Helper()
	bal, err := f.wallets.Balance(context.Background(), walletID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestInitiateCall_HoldsEstimate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.topUp(t, "user-1", 5*RatePerMinuteMinor)

	session, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if session.Status != CallStatusInitiated {
		t.Fatalf("expected initiated, got %s", session.Status)
	}
	if session.Type != CallTypeAudio {
		t.Fatalf("expected audio default, got %s", session.Type)
	}
	if session.CostMinor != RatePerMinuteMinor {
		t.Fatalf("expected one-minute estimate, got %d", session.CostMinor)
	}
	if session.SignalingURL == "" {
		t.Fatalf("expected signaling endpoint")
	}
	if got := f.balance(t, w.ID); got != 4*RatePerMinuteMinor {
		t.Fatalf("expected hold of one minute, balance %d", got)
	}
}

func TestInitiateCall_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.topUp(t, "user-1", RatePerMinuteMinor-1)

	_, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := f.balance(t, w.ID); got != RatePerMinuteMinor-1 {
		t.Fatalf("expected untouched balance, got %d", got)
	}
}

func TestInitiateCall_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.topUp(t, "user-1", 10*RatePerMinuteMinor)

	if _, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "not-a-phone"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678", Type: CallType("fax")}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for type, got %v", err)
	}
}

// failingWalletDebit wraps the real wallet manager but fails every debit,
// simulating a hold lost to a concurrent spend.
type failingWalletDebit struct {
	WalletManager
}

func (f failingWalletDebit) Debit(ctx context.Context, walletID string, amountMinor int64, description, reference, metadata string) (wallet.Transaction, error) {
	return wallet.Transaction{}, wallet.ErrInsufficientFunds
}

func TestInitiateCall_FailedHoldPersistsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.topUp(t, "user-1", 10*RatePerMinuteMinor)

	f.svc.wallets = failingWalletDebit{f.svc.wallets}

	_, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected surfaced debit error, got %v", err)
	}

	// The failed attempt stays on record.
	sessions, err := f.svc.ListUserSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Status != CallStatusFailed {
		t.Fatalf("expected one failed session, got %+v", sessions)
	}

	var holdFailed bool
	for _, e := range f.audit.Events() {
		if e.Type == audit.EventTypeCallHoldFailed {
			holdFailed = true
		}
	}
	if !holdFailed {
		t.Fatalf("expected a hold-failed audit event")
	}
}

func TestAnswerCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.topUp(t, "user-1", 10*RatePerMinuteMinor)

	session, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if _, err := f.svc.AnswerCall(ctx, session.ID, "intruder"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	answered, err := f.svc.AnswerCall(ctx, session.ID, "user-1")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answered.Status != CallStatusAnswered || answered.StartedAt == nil {
		t.Fatalf("expected answered with start timestamp, got %+v", answered)
	}

	// Answering twice is illegal.
	if _, err := f.svc.AnswerCall(ctx, session.ID, "user-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestEndCall_ProratesNinetySeconds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.topUp(t, "user-1", 5*RatePerMinuteMinor)

	session, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := f.svc.AnswerCall(ctx, session.ID, "user-1"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	f.advance(90 * time.Second)
	ended, err := f.svc.EndCall(ctx, session.ID, "user-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	// ceil(1.5 minutes) = 2 minutes.
	if ended.Status != CallStatusCompleted {
		t.Fatalf("expected completed, got %s", ended.Status)
	}
	if ended.DurationSeconds != 90 {
		t.Fatalf("expected 90s duration, got %d", ended.DurationSeconds)
	}
	if ended.CostMinor != 2*RatePerMinuteMinor {
		t.Fatalf("expected settled cost of 2 minutes, got %d", ended.CostMinor)
	}

	// Held 1 minute at initiation, trued up by 1 more at settlement.
	if got := f.balance(t, w.ID); got != 3*RatePerMinuteMinor {
		t.Fatalf("expected balance of 3 minutes, got %d", got)
	}
}

func TestEndCall_ShortCallRefundsDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.topUp(t, "user-1", 5*RatePerMinuteMinor)

	session, _ := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})
	if _, err := f.svc.AnswerCall(ctx, session.ID, "user-1"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	f.advance(45 * time.Second)
	ended, err := f.svc.EndCall(ctx, session.ID, "user-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	// 45s bills as one minute: exactly the hold, no wallet movement.
	if ended.CostMinor != RatePerMinuteMinor {
		t.Fatalf("expected one-minute settlement, got %d", ended.CostMinor)
	}
	if got := f.balance(t, w.ID); got != 4*RatePerMinuteMinor {
		t.Fatalf("expected balance of 4 minutes, got %d", got)
	}
}

func TestEndCall_UnansweredRefundsHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.topUp(t, "user-1", 5*RatePerMinuteMinor)

	session, _ := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})

	f.advance(30 * time.Second)
	ended, err := f.svc.EndCall(ctx, session.ID, "user-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != CallStatusCancelled {
		t.Fatalf("expected cancelled, got %s", ended.Status)
	}

	// Balance returns exactly to its pre-initiation value.
	if got := f.balance(t, w.ID); got != 5*RatePerMinuteMinor {
		t.Fatalf("expected full refund, balance %d", got)
	}
}

func TestEndCall_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.topUp(t, "user-1", 5*RatePerMinuteMinor)

	session, _ := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})
	first, err := f.svc.EndCall(ctx, session.ID, "user-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	second, err := f.svc.EndCall(ctx, session.ID, "user-1")
	if err != nil {
		t.Fatalf("second end: %v", err)
	}
	if first.Status != second.Status {
		t.Fatalf("expected same terminal state, got %s then %s", first.Status, second.Status)
	}

	// No double refund.
	if got := f.balance(t, w.ID); got != 5*RatePerMinuteMinor {
		t.Fatalf("expected single refund, balance %d", got)
	}

	// Answering a terminal session is rejected.
	if _, err := f.svc.AnswerCall(ctx, session.ID, "user-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestEndCall_ShortfallStillSettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.topUp(t, "user-1", RatePerMinuteMinor)

	session, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := f.svc.AnswerCall(ctx, session.ID, "user-1"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	// Ten minutes of talk with an empty wallet: the true-up debit fails.
	f.advance(10 * time.Minute)
	ended, err := f.svc.EndCall(ctx, session.ID, "user-1")
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected surfaced shortfall, got %v", err)
	}

	// Settlement is final even when the shortfall could not be taken.
	if ended.Status != CallStatusCompleted || ended.CostMinor != 10*RatePerMinuteMinor {
		t.Fatalf("expected completed at 10 minutes, got %+v", ended)
	}
	if got := f.balance(t, w.ID); got != 0 {
		t.Fatalf("expected empty wallet, got %d", got)
	}

	var shortfall bool
	for _, e := range f.audit.Events() {
		if e.Type == audit.EventTypeSettlementShortfall {
			shortfall = true
		}
	}
	if !shortfall {
		t.Fatalf("expected a shortfall audit event")
	}

	// Ending again is a no-op: cost never revised, no second debit attempt.
	again, err := f.svc.EndCall(ctx, session.ID, "user-1")
	if err != nil {
		t.Fatalf("second end: %v", err)
	}
	if again.CostMinor != ended.CostMinor {
		t.Fatalf("settled cost was revised: %d -> %d", ended.CostMinor, again.CostMinor)
	}
}

// capLimiter is a deterministic in-process ConcurrencyLimiter.
type capLimiter struct {
	active map[string]int
	limit  int
}

func (l *capLimiter) Acquire(ctx context.Context, userID string) (bool, error) {
	if l.active[userID] >= l.limit {
		return false, nil
	}
	l.active[userID]++
	return true, nil
}

func (l *capLimiter) Release(ctx context.Context, userID string) error {
	l.active[userID]--
	return nil
}

func TestInitiateCall_ConcurrencyCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.topUp(t, "user-1", 10*RatePerMinuteMinor)
	f.svc.limiter = &capLimiter{active: map[string]int{}, limit: 1}

	first, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345678"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345679"}); !errors.Is(err, ErrTooManyActiveCalls) {
		t.Fatalf("expected ErrTooManyActiveCalls, got %v", err)
	}

	// Ending the first call frees the slot.
	if _, err := f.svc.EndCall(ctx, first.ID, "user-1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := f.svc.InitiateCall(ctx, "user-1", InitiateCallRequest{RecipientPhone: "+2348012345679"}); err != nil {
		t.Fatalf("expected slot to be free, got %v", err)
	}
}

func TestSettledCostMinor(t *testing.T) {
	cases := []struct {
		seconds int
		want    int64
	}{
		{0, 0},
		{1, RatePerMinuteMinor},
		{59, RatePerMinuteMinor},
		{60, RatePerMinuteMinor},
		{61, 2 * RatePerMinuteMinor},
		{90, 2 * RatePerMinuteMinor},
		{600, 10 * RatePerMinuteMinor},
	}
	for _, c := range cases {
		if got := settledCostMinor(c.seconds); got != c.want {
			t.Fatalf("settledCostMinor(%d) = %d, want %d", c.seconds, got, c.want)
		}
	}
}
