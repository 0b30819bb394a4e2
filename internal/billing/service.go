package billing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"callcredits-platform/internal/audit"
	"callcredits-platform/internal/signaling"
	"callcredits-platform/internal/wallet"
	"callcredits-platform/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("call session not found")
	ErrForbidden          = errors.New("not the call initiator")
	ErrInvalidState       = errors.New("operation not allowed in current call state")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrTooManyActiveCalls = errors.New("concurrent call limit reached")
)

// phonePattern accepts E.164-style numbers with an optional leading plus.
var phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)

// WalletManager is the slice of the wallet service billing depends on.
type WalletManager interface {
	GetOrCreate(ctx context.Context, userID string, walletType wallet.WalletType) (wallet.Wallet, error)
	Balance(ctx context.Context, walletID string) (int64, error)
	Credit(ctx context.Context, walletID string, amountMinor int64, description, reference, metadata string) (wallet.Transaction, error)
	Debit(ctx context.Context, walletID string, amountMinor int64, description, reference, metadata string) (wallet.Transaction, error)
}

// Service drives the call-session state machine and reconciles call cost
// against the upfront hold.
//
// Money flow per call:
//  1. initiate: debit a one-minute hold from the call-credits wallet
//  2. end (answered): debit or credit the difference between the settled
//     cost and the hold
//  3. end (never answered): credit the full hold back
//
// Each wallet adjustment is atomic on its own; the session-state write
// that follows is a separate step. A crash between the two leaves the
// last committed state, which the audit trail makes observable.
type Service struct {
	store     Store
	wallets   WalletManager
	signaling signaling.Allocator
	limiter   ConcurrencyLimiter
	audit     *audit.Service

	clock func() time.Time
}

func NewService(store Store, wallets WalletManager, alloc signaling.Allocator, limiter ConcurrencyLimiter, auditSvc *audit.Service) *Service {
	if limiter == nil {
		limiter = NoopLimiter{}
	}
	return &Service{
		store:     store,
		wallets:   wallets,
		signaling: alloc,
		limiter:   limiter,
		audit:     auditSvc,
		clock:     time.Now,
	}
}

type InitiateCallRequest struct {
	RecipientPhone string   `json:"recipient_phone"`
	RecipientName  string   `json:"recipient_name,omitempty"`
	Type           CallType `json:"type,omitempty"`
}

// InitiateCall authorizes and holds the one-minute minimum estimate, then
// creates the session. If the hold debit fails the session is persisted as
// failed (auditable) and the debit error propagates; no funds move.
func (s *Service) InitiateCall(ctx context.Context, userID string, req InitiateCallRequest) (CallSession, error) {
	if userID == "" {
		return CallSession{}, ErrInvalidArgument
	}
	if !phonePattern.MatchString(req.RecipientPhone) {
		return CallSession{}, fmt.Errorf("%w: recipient_phone must be E.164-like", ErrInvalidArgument)
	}
	callType := req.Type
	if callType == "" {
		callType = CallTypeAudio
	}
	if !callType.Valid() {
		return CallSession{}, fmt.Errorf("%w: type must be audio or video", ErrInvalidArgument)
	}

	acquired, err := s.limiter.Acquire(ctx, userID)
	if err != nil {
		return CallSession{}, fmt.Errorf("call limiter: %w", err)
	}
	if !acquired {
		return CallSession{}, ErrTooManyActiveCalls
	}
	// The slot is held until the session reaches a terminal state. Release
	// on every early-failure path below.

	w, err := s.wallets.GetOrCreate(ctx, userID, wallet.WalletTypeCallCredits)
	if err != nil {
		_ = s.limiter.Release(ctx, userID)
		return CallSession{}, err
	}

	// One-minute minimum estimate.
	estimate := RatePerMinuteMinor

	balance, err := s.wallets.Balance(ctx, w.ID)
	if err != nil {
		_ = s.limiter.Release(ctx, userID)
		return CallSession{}, err
	}
	if balance < estimate {
		_ = s.limiter.Release(ctx, userID)
		return CallSession{}, wallet.ErrInsufficientFunds
	}

	endpoint, err := s.signaling.Allocate(ctx)
	if err != nil {
		_ = s.limiter.Release(ctx, userID)
		return CallSession{}, fmt.Errorf("signaling allocation: %w", err)
	}

	now := s.clock().UTC()
	session := CallSession{
		ID:             uuid.NewString(),
		InitiatorID:    userID,
		RecipientPhone: req.RecipientPhone,
		RecipientName:  req.RecipientName,
		Status:         CallStatusInitiated,
		Type:           callType,
		CostMinor:      estimate,
		SignalingURL:   endpoint,
		SignalingData:  fmt.Sprintf(`{"recipient":%q,"type":%q}`, req.RecipientPhone, callType),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, session); err != nil {
		_ = s.limiter.Release(ctx, userID)
		return CallSession{}, err
	}

	// Hold: debit the estimate upfront; trued up at end-of-call.
	_, err = s.wallets.Debit(ctx, w.ID, estimate,
		"Call to "+req.RecipientPhone,
		holdReference(session.ID),
		fmt.Sprintf(`{"call_session_id":%q}`, session.ID),
	)
	if err != nil {
		session.Status = CallStatusFailed
		session.UpdatedAt = s.clock().UTC()
		if uerr := s.store.Update(ctx, session); uerr != nil {
			logger.From(ctx).Error("persist failed call session", "session_id", session.ID, "err", uerr)
		}
		_ = s.limiter.Release(ctx, userID)
		s.auditEvent(ctx, audit.Event{
			Type:        audit.EventTypeCallHoldFailed,
			ActorUserID: userID,
			WalletID:    w.ID,
			SessionID:   session.ID,
			AmountMinor: estimate,
			Message:     "hold debit failed on call initiation",
		})
		return CallSession{}, err
	}

	return session, nil
}

// AnswerCall transitions the session to answered and records the start
// timestamp. No financial effect.
func (s *Service) AnswerCall(ctx context.Context, sessionID, userID string) (CallSession, error) {
	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return CallSession{}, err
	}

	if session.Status != CallStatusInitiated && session.Status != CallStatusRinging {
		return CallSession{}, ErrInvalidState
	}

	now := s.clock().UTC()
	session.Status = CallStatusAnswered
	session.StartedAt = &now
	session.UpdatedAt = now
	if err := s.store.Update(ctx, session); err != nil {
		return CallSession{}, err
	}
	return session, nil
}

// EndCall settles the session. Ending an already-terminal session is a
// no-op returning the current state, so retries never double-refund.
//
// If the true-up debit fails with insufficient funds the session is still
// settled as completed (settlement is final) and the error propagates;
// the shortfall is recorded for the collections process.
func (s *Service) EndCall(ctx context.Context, sessionID, userID string) (CallSession, error) {
	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return CallSession{}, err
	}

	if session.Status.Terminal() {
		return session, nil
	}

	w, err := s.wallets.GetOrCreate(ctx, userID, wallet.WalletTypeCallCredits)
	if err != nil {
		return CallSession{}, err
	}

	now := s.clock().UTC()
	held := session.CostMinor

	if session.StartedAt == nil {
		// Never answered: release the full hold.
		if _, err := s.wallets.Credit(ctx, w.ID, held,
			"Refund for unanswered call "+session.ID,
			refundReference(session.ID),
			fmt.Sprintf(`{"call_session_id":%q}`, session.ID),
		); err != nil {
			return CallSession{}, err
		}
		session.Status = CallStatusCancelled
		session.EndedAt = &now
		session.UpdatedAt = now
		if err := s.store.Update(ctx, session); err != nil {
			return CallSession{}, err
		}
		_ = s.limiter.Release(ctx, userID)
		return session, nil
	}

	duration := int(now.Sub(*session.StartedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}
	settled := settledCostMinor(duration)
	difference := settled - held

	var settleErr error
	switch {
	case difference > 0:
		_, settleErr = s.wallets.Debit(ctx, w.ID, difference,
			"Additional charge for call "+session.ID,
			trueUpReference(session.ID),
			fmt.Sprintf(`{"call_session_id":%q}`, session.ID),
		)
	case difference < 0:
		_, settleErr = s.wallets.Credit(ctx, w.ID, -difference,
			"Refund for call "+session.ID,
			refundReference(session.ID),
			fmt.Sprintf(`{"call_session_id":%q}`, session.ID),
		)
	}

	if settleErr != nil && !errors.Is(settleErr, wallet.ErrInsufficientFunds) {
		return CallSession{}, settleErr
	}

	// Settlement is final: the session completes with the computed cost
	// even when the shortfall debit could not be taken.
	session.Status = CallStatusCompleted
	session.CostMinor = settled
	session.DurationSeconds = duration
	session.EndedAt = &now
	session.UpdatedAt = now
	if err := s.store.Update(ctx, session); err != nil {
		return CallSession{}, err
	}
	_ = s.limiter.Release(ctx, userID)

	s.auditEvent(ctx, audit.Event{
		Type:        audit.EventTypeCallSettled,
		ActorUserID: userID,
		WalletID:    w.ID,
		SessionID:   session.ID,
		AmountMinor: settled,
		Message:     fmt.Sprintf("call settled after %ds", duration),
	})

	if settleErr != nil {
		s.auditEvent(ctx, audit.Event{
			Type:        audit.EventTypeSettlementShortfall,
			ActorUserID: userID,
			WalletID:    w.ID,
			SessionID:   session.ID,
			AmountMinor: difference,
			Message:     "true-up debit failed; unpaid shortfall",
		})
		return session, settleErr
	}
	return session, nil
}

// GetSession returns the session if the caller initiated it.
func (s *Service) GetSession(ctx context.Context, sessionID, userID string) (CallSession, error) {
	return s.getOwned(ctx, sessionID, userID)
}

func (s *Service) ListUserSessions(ctx context.Context, userID string) ([]CallSession, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.store.ListByInitiator(ctx, userID)
}

func (s *Service) getOwned(ctx context.Context, sessionID, userID string) (CallSession, error) {
	if sessionID == "" || userID == "" {
		return CallSession{}, ErrInvalidArgument
	}
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return CallSession{}, err
	}
	if session.InitiatorID != userID {
		return CallSession{}, ErrForbidden
	}
	return session, nil
}

// auditEvent is best-effort; billing never fails on audit errors.
func (s *Service) auditEvent(ctx context.Context, e audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, e); err != nil {
		logger.From(ctx).Error("audit append failed", "type", string(e.Type), "err", err)
	}
}

func holdReference(sessionID string) string   { return "CALL-" + sessionID }
func trueUpReference(sessionID string) string { return "CALL-ADD-" + sessionID }
func refundReference(sessionID string) string { return "CALL-REF-" + sessionID }
