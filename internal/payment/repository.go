// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/promptcraft/internal/core"
)

// ApplyFunc runs inside the settlement transaction before it commits.
type ApplyFunc func(ctx context.Context, tx core.DBTX) error

type Repository interface {
	ExistsByPaymentID(ctx context.Context, paymentID string) (bool, error)
	RecentByUser(ctx context.Context, userID string, limit int) ([]Record, error)
	Settle(ctx context.Context, record *Record, apply ApplyFunc) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ExistsByPaymentID(
	ctx context.Context,
	paymentID string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM payments WHERE provider_payment_id = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, paymentID); err != nil {
		return false, fmt.Errorf("check payment exists: %w", err)
	}

	return exists, nil
}

func (r *repository) RecentByUser(
	ctx context.Context,
	userID string,
	limit int,
) ([]Record, error) {
	query := `
		SELECT id, user_id, provider_order_id, provider_payment_id, amount,
		       currency, plan, status, subscription_expires_at, created_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	records := make([]Record, 0, limit)
	if err := r.db.SelectContext(ctx, &records, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	return records, nil
}

// Settle inserts the payment and runs apply in one transaction. A
// duplicate provider payment id rolls everything back and reports
// ErrAlreadyProcessed.
func (r *repository) Settle(
	ctx context.Context,
	record *Record,
	apply ApplyFunc,
) error {
	query := `
		INSERT INTO payments (
			id, user_id, provider_order_id, provider_payment_id, amount,
			currency, plan, status, subscription_expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING created_at`

	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &record.CreatedAt, query,
			record.ID,
			record.UserID,
			record.ProviderOrderID,
			record.ProviderPaymentID,
			record.Amount,
			record.Currency,
			record.Plan,
			record.Status,
			record.SubscriptionExpiresAt,
		)
		if err != nil {
			if core.IsDuplicateKeyError(err) {
				return fmt.Errorf("insert payment: %w", ErrAlreadyProcessed)
			}
			return fmt.Errorf("insert payment: %w", err)
		}

		return apply(ctx, tx)
	})
}
