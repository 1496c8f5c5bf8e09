// AngelaMos | 2026
// repository.go

package contact

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/promptcraft/internal/core"
)

const historyLimit = 50

type Repository interface {
	Create(ctx context.Context, msg *Message) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Message, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO contacts (id, user_id, name, email, subject, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		msg.ID,
		msg.UserID,
		msg.Name,
		msg.Email,
		msg.Subject,
		msg.Body,
		msg.Status,
	).Scan(&msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}

	return nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
	limit int,
) ([]Message, error) {
	query := `
		SELECT id, user_id, name, email, subject, message, status,
		       created_at, updated_at
		FROM contacts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	messages := make([]Message, 0)
	if err := r.db.SelectContext(ctx, &messages, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	return messages, nil
}
