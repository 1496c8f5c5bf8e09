// AngelaMos | 2026
// service.go

package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/metrics"
)

type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Ledger is the single authority for whether a user may use a paid feature.
// Every operation starts from DeriveCurrentState and writes any correction
// back before deciding.
type Ledger struct {
	repo   Repository
	cache  Invalidator
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func NewLedger(
	repo Repository,
	cache Invalidator,
	logger *slog.Logger,
	opts ...Option,
) *Ledger {
	l := &Ledger{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Account loads the user's entitlement fields with lapsed subscriptions
// already corrected in storage.
func (l *Ledger) Account(ctx context.Context, userID string) (*Account, error) {
	stored, err := l.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	current, changed := DeriveCurrentState(*stored, now)
	if !changed {
		return &current, nil
	}

	cleared, err := l.repo.ClearLapsedSubscription(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("correct lapsed subscription: %w", err)
	}

	// No row matched: a settlement renewed the subscription after the read.
	if !cleared {
		fresh, err := l.repo.GetAccount(ctx, userID)
		if err != nil {
			return nil, err
		}
		renewed, _ := DeriveCurrentState(*fresh, now)
		return &renewed, nil
	}

	metrics.RecordSubscriptionExpiry()
	l.logger.Info("subscription expired",
		"user_id", userID,
		"expired_at", stored.SubscriptionExpiresAt,
	)
	l.invalidate(ctx, userID)

	return &current, nil
}

func (l *Ledger) CanUseService(
	ctx context.Context,
	userID string,
) (Decision, error) {
	account, err := l.Account(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	decision := Decide(*account)
	metrics.RecordEntitlementDecision(decision.Allowed, string(decision.Reason))

	return decision, nil
}

// IncrementFreeTrialUsage consumes one trial. Subscribed users are left
// untouched and no error is returned.
func (l *Ledger) IncrementFreeTrialUsage(
	ctx context.Context,
	userID string,
) error {
	account, err := l.Account(ctx, userID)
	if err != nil {
		return err
	}

	if account.IsSubscribed {
		return nil
	}

	changed, err := l.repo.IncrementFreeTrials(ctx, userID, l.now())
	if err != nil {
		return err
	}

	if changed {
		l.invalidate(ctx, userID)
	}

	return nil
}

// Subscribe moves the user into the subscribed state inside the caller's
// transaction and returns the new expiry. The trial counter is kept.
// Callers invalidate the cache once their transaction commits.
func (l *Ledger) Subscribe(
	ctx context.Context,
	tx core.DBTX,
	userID string,
	settledAt time.Time,
) (time.Time, error) {
	expiresAt := settledAt.Add(SubscriptionPeriod)

	repo := l.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	if err := repo.ActivateSubscription(ctx, userID, expiresAt); err != nil {
		return time.Time{}, err
	}

	return expiresAt, nil
}

func (l *Ledger) Invalidate(ctx context.Context, userID string) {
	l.invalidate(ctx, userID)
}

func (l *Ledger) invalidate(ctx context.Context, userID string) {
	if l.cache == nil {
		return
	}

	if err := l.cache.Invalidate(ctx, userID); err != nil {
		l.logger.Warn("usage cache invalidation failed",
			"user_id", userID,
			"error", err,
		)
	}
}
