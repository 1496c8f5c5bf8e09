// AngelaMos | 2026
// service.go

package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/promptcraft/internal/auth"
	"github.com/carterperez-dev/promptcraft/internal/core"
)

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*auth.UserInfo, error)
}

type Service struct {
	repo   Repository
	users  UserLookup
	logger *slog.Logger
}

func NewService(repo Repository, users UserLookup, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: users, logger: logger}
}

// Submit stores a message under the caller's account. Name and email come
// from the account, never from the request.
func (s *Service) Submit(
	ctx context.Context,
	userID, subject, body string,
) (*Message, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)

	if subject == "" {
		return nil, core.BadRequestError("Subject is required")
	}
	if body == "" {
		return nil, core.BadRequestError("Message is required")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("submit contact: %w", err)
	}

	msg := &Message{
		ID:      uuid.New().String(),
		UserID:  u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Subject: subject,
		Body:    body,
		Status:  StatusNew,
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Info("contact message submitted",
		"user_id", userID,
		"contact_id", msg.ID,
	)

	return msg, nil
}

func (s *Service) History(ctx context.Context, userID string) ([]Message, error) {
	return s.repo.ListByUser(ctx, userID, historyLimit)
}
