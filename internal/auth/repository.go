// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/promptcraft/internal/core"
)

type Repository interface {
	Create(ctx context.Context, token *IssuedToken) error
	CountActiveForUser(
		ctx context.Context,
		userID string,
		now time.Time,
	) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, token *IssuedToken) error {
	query := `
		INSERT INTO issued_tokens (
			id, user_id, token_hash, expires_at, user_agent, ip_address
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create issued token: %w", err)
	}

	return nil
}

func (r *repository) CountActiveForUser(
	ctx context.Context,
	userID string,
	now time.Time,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM issued_tokens
		WHERE user_id = $1 AND expires_at > $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, now); err != nil {
		return 0, fmt.Errorf("count issued tokens: %w", err)
	}

	return count, nil
}

func (r *repository) DeleteExpired(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	query := `DELETE FROM issued_tokens WHERE expires_at <= $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return rows, nil
}
