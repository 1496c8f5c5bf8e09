// AngelaMos | 2026
// summary.go

package user

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/carterperez-dev/promptcraft/internal/entitlement"
	"github.com/carterperez-dev/promptcraft/internal/payment"
	"github.com/carterperez-dev/promptcraft/internal/usage"
)

const (
	recentPayments = 10
	reasonError    = "error"
)

type EntitlementChecker interface {
	CanUseService(ctx context.Context, userID string) (entitlement.Decision, error)
}

type StatsSource interface {
	StatsByUser(ctx context.Context, userID string) ([]usage.ActionStats, error)
}

type PaymentHistory interface {
	RecentByUser(ctx context.Context, userID string, limit int) ([]payment.Record, error)
}

type SnapshotCache interface {
	Get(ctx context.Context, userID string, dest any) (bool, error)
	Set(ctx context.Context, userID string, v any) error
}

// Summarizer builds the usage summary shown on the account page. It is a
// read-through over the snapshot cache; entitlement decisions never read
// from here.
type Summarizer struct {
	users        Repository
	entitlements EntitlementChecker
	stats        StatsSource
	payments     PaymentHistory
	cache        SnapshotCache
	logger       *slog.Logger
	now          func() time.Time
}

func NewSummarizer(
	users Repository,
	entitlements EntitlementChecker,
	stats StatsSource,
	payments PaymentHistory,
	cache SnapshotCache,
	logger *slog.Logger,
) *Summarizer {
	return &Summarizer{
		users:        users,
		entitlements: entitlements,
		stats:        stats,
		payments:     payments,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// Usage returns the caller's summary. A cached snapshot is served as is.
// On a miss only the user lookup is fatal; the other parts fall back to
// empty values and the degraded result is not cached.
func (s *Summarizer) Usage(
	ctx context.Context,
	userID string,
) (*UsageSummaryResponse, error) {
	var cached UsageSummaryResponse
	hit, err := s.cache.Get(ctx, userID, &cached)
	if err != nil {
		s.logger.Warn("usage cache read failed", "user_id", userID, "error", err)
	}
	if hit {
		return &cached, nil
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	account, _ := entitlement.DeriveCurrentState(entitlement.Account{
		UserID:                u.ID,
		IsActive:              u.IsActive,
		FreeTrialsUsed:        u.FreeTrialsUsed,
		IsSubscribed:          u.IsSubscribed,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
	}, s.now())
	u.IsSubscribed = account.IsSubscribed
	u.SubscriptionExpiresAt = account.SubscriptionExpiresAt

	var (
		wg        sync.WaitGroup
		decision  entitlement.Decision
		stats     []usage.ActionStats
		payments  []payment.Record
		decideErr error
		statsErr  error
		payErr    error
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		decision, decideErr = s.entitlements.CanUseService(ctx, userID)
	}()

	go func() {
		defer wg.Done()
		stats, statsErr = s.stats.StatsByUser(ctx, userID)
	}()

	go func() {
		defer wg.Done()
		payments, payErr = s.payments.RecentByUser(ctx, userID, recentPayments)
	}()

	wg.Wait()

	degraded := false

	if decideErr != nil {
		s.logger.Error("usage summary entitlement check failed", "user_id", userID, "error", decideErr)
		decision = entitlement.Decision{Reason: reasonError}
		degraded = true
	}
	if statsErr != nil {
		s.logger.Error("usage summary stats failed", "user_id", userID, "error", statsErr)
		degraded = true
	}
	if payErr != nil {
		s.logger.Error("usage summary payments failed", "user_id", userID, "error", payErr)
		degraded = true
	}

	if stats == nil {
		stats = []usage.ActionStats{}
	}
	if payments == nil {
		payments = []payment.Record{}
	}

	summary := &UsageSummaryResponse{
		Success:  true,
		User:     ToProfileResponse(u),
		Usage:    toUsageView(decision),
		Stats:    stats,
		Payments: payments,
	}

	if degraded {
		return summary, nil
	}

	if err := s.cache.Set(ctx, userID, summary); err != nil {
		s.logger.Warn("usage cache write failed", "user_id", userID, "error", err)
	}

	return summary, nil
}
