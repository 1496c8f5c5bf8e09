// AngelaMos | 2026
// repository.go

package usage

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/promptcraft/internal/core"
)

type Repository interface {
	Insert(ctx context.Context, record *Record) error
	StatsByUser(ctx context.Context, userID string) ([]ActionStats, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO usage_records (
			id, user_id, action, input_length, output_length,
			model, tokens_used, cost, success, error
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &record.CreatedAt, query,
		record.ID,
		record.UserID,
		record.Action,
		record.InputLength,
		record.OutputLength,
		record.Model,
		record.TokensUsed,
		record.Cost,
		record.Success,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}

	return nil
}

func (r *repository) StatsByUser(
	ctx context.Context,
	userID string,
) ([]ActionStats, error) {
	query := `
		SELECT action,
		       COUNT(*)                        AS count,
		       COALESCE(SUM(tokens_used), 0)   AS total_tokens,
		       COALESCE(SUM(cost), 0)          AS total_cost,
		       COALESCE(SUM(input_length), 0)  AS total_input_length,
		       COALESCE(SUM(output_length), 0) AS total_output_length,
		       MAX(created_at)                 AS last_used_at
		FROM usage_records
		WHERE user_id = $1
		GROUP BY action
		ORDER BY action`

	stats := make([]ActionStats, 0, 3)
	if err := r.db.SelectContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("usage stats: %w", err)
	}

	return stats, nil
}
