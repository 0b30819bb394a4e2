package reporting

import (
	"context"
	"errors"
	"strings"
	"time"

	"callcredits-platform/internal/billing"
	"callcredits-platform/internal/wallet"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations must scope every read to the requesting user and should
// query immutable sources (call sessions, ledger transactions).

type Repository interface {
	ListSessions(ctx context.Context, userID string, from, to time.Time) ([]billing.CallSession, error)
	ListTransactions(ctx context.Context, userID string, from, to time.Time, walletID string) ([]wallet.Transaction, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.UserID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListSessions(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{UserID: req.UserID}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		switch c.Status {
		case billing.CallStatusCompleted:
			out.CompletedCalls++
			out.TotalCostMinor += c.CostMinor
		case billing.CallStatusFailed:
			out.FailedCalls++
		case billing.CallStatusCancelled:
			out.CancelledCalls++
		default:
			out.ActiveCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) SpendSummary(ctx context.Context, req SpendSummaryRequest) (SpendSummary, error) {
	if req.UserID == "" {
		return SpendSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return SpendSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return SpendSummary{}, errors.New("reporting: repository not configured")
	}

	txs, err := s.repo.ListTransactions(ctx, req.UserID, req.Range.From, req.Range.To, req.WalletID)
	if err != nil {
		return SpendSummary{}, err
	}

	out := SpendSummary{UserID: req.UserID, WalletID: req.WalletID}
	for _, tx := range txs {
		if tx.Status != wallet.TransactionStatusCompleted {
			continue
		}
		switch tx.Kind {
		case wallet.TransactionKindCredit:
			out.TotalCreditMinor += tx.AmountMinor
			if tx.PaymentID != "" {
				out.TopUpMinor += tx.AmountMinor
			}
		case wallet.TransactionKindDebit:
			out.TotalDebitMinor += tx.AmountMinor
			if strings.HasPrefix(tx.Reference, "CALL-") {
				out.CallSpendMinor += tx.AmountMinor
			}
		}
	}
	out.NetDeltaMinor = out.TotalCreditMinor - out.TotalDebitMinor
	return out, nil
}
