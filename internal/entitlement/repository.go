// AngelaMos | 2026
// repository.go

package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/promptcraft/internal/core"
)

type Repository interface {
	GetAccount(ctx context.Context, userID string) (*Account, error)
	ClearLapsedSubscription(
		ctx context.Context,
		userID string,
		now time.Time,
	) (bool, error)
	IncrementFreeTrials(
		ctx context.Context,
		userID string,
		now time.Time,
	) (bool, error)
	ActivateSubscription(
		ctx context.Context,
		userID string,
		expiresAt time.Time,
	) error
	WithTx(tx core.DBTX) Repository
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx core.DBTX) Repository {
	return &repository{db: tx}
}

func (r *repository) GetAccount(
	ctx context.Context,
	userID string,
) (*Account, error) {
	query := `
		SELECT id, is_active, free_trials_used, is_subscribed,
		       subscription_expires_at
		FROM users
		WHERE id = $1`

	var account Account
	err := r.db.GetContext(ctx, &account, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

// ClearLapsedSubscription only touches rows that are still past due, so a
// settlement racing with the correction is never undone.
func (r *repository) ClearLapsedSubscription(
	ctx context.Context,
	userID string,
	now time.Time,
) (bool, error) {
	query := `
		UPDATE users
		SET is_subscribed = FALSE,
		    subscription_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
		  AND is_subscribed
		  AND (subscription_expires_at IS NULL OR subscription_expires_at <= $2)`

	return r.execAffected(ctx, "clear lapsed subscription", query, userID, now)
}

func (r *repository) IncrementFreeTrials(
	ctx context.Context,
	userID string,
	now time.Time,
) (bool, error) {
	query := `
		UPDATE users
		SET free_trials_used = free_trials_used + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND NOT (is_subscribed AND subscription_expires_at > $2)`

	return r.execAffected(ctx, "increment free trials", query, userID, now)
}

func (r *repository) ActivateSubscription(
	ctx context.Context,
	userID string,
	expiresAt time.Time,
) error {
	query := `
		UPDATE users
		SET is_subscribed = TRUE,
		    subscription_expires_at = $2,
		    updated_at = NOW()
		WHERE id = $1`

	changed, err := r.execAffected(
		ctx,
		"activate subscription",
		query,
		userID,
		expiresAt,
	)
	if err != nil {
		return err
	}

	if !changed {
		return fmt.Errorf("activate subscription: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) execAffected(
	ctx context.Context,
	op, query string,
	args ...any,
) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return rows > 0, nil
}
