// AngelaMos | 2026
// service.go

package usage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carterperez-dev/promptcraft/internal/core"
)

type Entry struct {
	UserID       string
	Action       Action
	InputLength  int
	OutputLength int
	Model        string
	TokensUsed   int
	Cost         float64
	Success      bool
	Error        string
}

type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if e.UserID == "" {
		return fmt.Errorf("record usage: missing user: %w", core.ErrInvalidInput)
	}

	if !e.Action.Valid() {
		return fmt.Errorf(
			"record usage: unknown action %q: %w",
			e.Action,
			core.ErrInvalidInput,
		)
	}

	record := &Record{
		ID:           uuid.New().String(),
		UserID:       e.UserID,
		Action:       e.Action,
		InputLength:  e.InputLength,
		OutputLength: e.OutputLength,
		Model:        e.Model,
		TokensUsed:   e.TokensUsed,
		Cost:         e.Cost,
		Success:      e.Success,
	}

	if record.Model == "" {
		record.Model = DefaultModel
	}

	if e.Error != "" {
		msg := e.Error
		record.Error = &msg
	}

	if err := r.repo.Insert(ctx, record); err != nil {
		r.logger.Error("usage record write failed",
			"user_id", e.UserID,
			"action", e.Action,
			"error", err,
		)
		return err
	}

	return nil
}

func (r *Recorder) StatsByUser(
	ctx context.Context,
	userID string,
) ([]ActionStats, error) {
	return r.repo.StatsByUser(ctx, userID)
}
