package service

import (
	"context"
	"errors"
	"fmt"

	"Ledger/internal/metrics"
	"Ledger/internal/repo"
	"Ledger/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// BalanceResult is the outcome of a permissive balance lookup.
type BalanceResult struct {
	Found   bool
	Balance float64
}

// LedgerService reads balances and applies signed deltas to them.
// Every mutation goes through AccountRepo.ApplyDelta; the service never
// holds balance state of its own.
type LedgerService struct {
	repo repo.AccountRepo
	sf   singleflight.Group
	log  logrus.FieldLogger
}

// NewLedgerService returns a new LedgerService.
func NewLedgerService(repo repo.AccountRepo, log logrus.FieldLogger) *LedgerService {
	return &LedgerService{repo: repo, log: log.WithField("component", "ledger")}
}

// GetBalance returns the stored balance for username.
func (s *LedgerService) GetBalance(ctx context.Context, username string) (float64, error) {
	if username == "" {
		return 0, ErrUserNotFound
	}
	balance, err := s.repo.GetBalance(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return balance, nil
}

// Lookup is the permissive read used by balance polling: it never fails,
// reporting absence and store errors as Found=false with a zero balance.
// Concurrent lookups of one username share a single store read.
func (s *LedgerService) Lookup(ctx context.Context, username string) BalanceResult {
	v, err, _ := s.sf.Do(username, func() (interface{}, error) {
		// Joined callers share this read; one of them going away must not fail the rest.
		return s.GetBalance(context.WithoutCancel(ctx), username)
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.log.WithError(err).WithField("username", username).Warn("balance lookup failed")
		}
		return BalanceResult{}
	}
	return BalanceResult{Found: true, Balance: v.(float64)}
}

// ApplyDelta adds amount (positive = credit, negative = debit) to the balance
// of username and returns the new balance. Zero is a no-op that still
// requires the account to exist.
func (s *LedgerService) ApplyDelta(ctx context.Context, username string, amount float64) (float64, error) {
	if username == "" || !utils.IsFinite(amount) {
		metrics.RecordLedgerOutcome(metrics.OutcomeInvalid)
		return 0, ErrInvalidRequest
	}

	balance, err := s.repo.ApplyDelta(ctx, username, amount)
	switch {
	case err == nil:
		metrics.RecordLedgerOutcome(metrics.OutcomeApplied)
		s.log.WithFields(logrus.Fields{
			"username": username,
			"amount":   amount,
			"balance":  balance,
		}).Debug("delta applied")
		return balance, nil
	case errors.Is(err, repo.ErrNotFound):
		metrics.RecordLedgerOutcome(metrics.OutcomeNotFound)
		return 0, ErrUserNotFound
	case errors.Is(err, repo.ErrInsufficientBalance):
		metrics.RecordLedgerOutcome(metrics.OutcomeInsufficient)
		return 0, ErrInsufficientBalance
	default:
		metrics.RecordLedgerOutcome(metrics.OutcomeError)
		s.log.WithError(err).WithField("username", username).Error("apply delta failed")
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}
}
