// AngelaMos | 2026
// service.go

package transform

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/metrics"
	"github.com/carterperez-dev/promptcraft/internal/usage"
)

var tracer = otel.Tracer("github.com/carterperez-dev/promptcraft/internal/transform")

type UsageRecorder interface {
	Record(ctx context.Context, e usage.Entry) error
}

type TrialConsumer interface {
	IncrementFreeTrialUsage(ctx context.Context, userID string) error
}

type Service struct {
	completer Completer
	recorder  UsageRecorder
	trials    TrialConsumer
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(
	completer Completer,
	recorder UsageRecorder,
	trials TrialConsumer,
	logger *slog.Logger,
) *Service {
	return &Service{
		completer: completer,
		recorder:  recorder,
		trials:    trials,
		logger:    logger,
		now:       time.Now,
	}
}

// Request is an attempt the gate has already admitted. Subscribed is the
// gate's view of the caller at admission time.
type Request struct {
	UserID     string
	Action     usage.Action
	Input      string
	Subscribed bool
}

type Result struct {
	Output     string
	Model      string
	TokensUsed int
}

// Transform runs one admitted attempt. The attempt is recorded and, for
// callers on the free trial, counted against the trial whether or not the
// provider call succeeds.
func (s *Service) Transform(ctx context.Context, req Request) (*Result, error) {
	system, ok := systemPrompts[req.Action]
	if !ok {
		return nil, fmt.Errorf("transform %q: %w", req.Action, core.ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "transform."+string(req.Action))
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("transform.action", string(req.Action)),
		attribute.Int("transform.input_length", utf8.RuneCountInString(req.Input)),
	)

	start := s.now()
	completion, err := s.completer.Complete(ctx, Completion{
		System: system,
		Input:  req.Input,
	})
	metrics.RecordTransformation(string(req.Action), err == nil, s.now().Sub(start))

	// Bookkeeping must survive a client that hangs up mid-request.
	bookCtx := context.WithoutCancel(ctx)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")

		s.record(bookCtx, usage.Entry{
			UserID:      req.UserID,
			Action:      req.Action,
			InputLength: utf8.RuneCountInString(req.Input),
			Model:       s.completer.Model(),
			Success:     false,
			Error:       err.Error(),
		})
		s.consumeTrial(bookCtx, req)

		return nil, fmt.Errorf("transform %s: %w", req.Action, err)
	}

	output := Clean(req.Action, completion.Text)
	span.SetAttributes(attribute.Int("transform.tokens", completion.TotalTokens))

	s.record(bookCtx, usage.Entry{
		UserID:       req.UserID,
		Action:       req.Action,
		InputLength:  utf8.RuneCountInString(req.Input),
		OutputLength: utf8.RuneCountInString(output),
		Model:        completion.Model,
		TokensUsed:   completion.TotalTokens,
		Cost:         completion.Cost(),
		Success:      true,
	})
	s.consumeTrial(bookCtx, req)

	return &Result{
		Output:     output,
		Model:      completion.Model,
		TokensUsed: completion.TotalTokens,
	}, nil
}

// record never fails the request; the recorder logs its own write errors.
func (s *Service) record(ctx context.Context, e usage.Entry) {
	_ = s.recorder.Record(ctx, e) //nolint:errcheck // logged by the recorder
}

func (s *Service) consumeTrial(ctx context.Context, req Request) {
	if req.Subscribed {
		return
	}

	if err := s.trials.IncrementFreeTrialUsage(ctx, req.UserID); err != nil {
		s.logger.Error("free trial increment failed",
			"user_id", req.UserID,
			"action", req.Action,
			"error", err,
		)
	}
}
