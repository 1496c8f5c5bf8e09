// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/entitlement"
	"github.com/carterperez-dev/promptcraft/internal/metrics"
)

const (
	maxReceiptLength = 40
	recentLimit      = 10
)

var tracer = otel.Tracer("github.com/carterperez-dev/promptcraft/internal/payment")

// Subscriber is the part of the entitlement ledger settlement writes to.
type Subscriber interface {
	Account(ctx context.Context, userID string) (*entitlement.Account, error)
	Subscribe(
		ctx context.Context,
		tx core.DBTX,
		userID string,
		settledAt time.Time,
	) (time.Time, error)
	Invalidate(ctx context.Context, userID string)
}

type Service struct {
	repo      Repository
	provider  Provider
	ledger    Subscriber
	keyID     string
	keySecret string
	logger    *slog.Logger
	now       func() time.Time
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	repo Repository,
	provider Provider,
	ledger Subscriber,
	keyID, keySecret string,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		repo:      repo,
		provider:  provider,
		ledger:    ledger,
		keyID:     keyID,
		keySecret: keySecret,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateOrderInput struct {
	Amount   float64
	Currency string
	Plan     string
}

func (s *Service) CreateOrder(
	ctx context.Context,
	userID string,
	in CreateOrderInput,
) (*CreatedOrder, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = CurrencyINR
	}
	if currency != CurrencyINR {
		return nil, core.BadRequestError("Only INR payments are supported")
	}

	plan := strings.TrimSpace(in.Plan)
	if plan == "" {
		plan = PlanMonthly
	}

	price, ok := Prices[plan]
	if !ok {
		return nil, core.BadRequestError(fmt.Sprintf("Unknown plan: %s", plan))
	}

	if in.Amount < MinAmount || in.Amount > MaxAmount {
		return nil, core.BadRequestError(fmt.Sprintf(
			"Amount must be between ₹%d and ₹%d", MinAmount, MaxAmount,
		))
	}

	if in.Amount != price {
		return nil, core.BadRequestError(fmt.Sprintf(
			"Amount does not match plan pricing. Expected ₹%s for %s plan",
			strconv.FormatFloat(price, 'f', -1, 64),
			plan,
		))
	}

	now := s.now()
	order, err := s.provider.CreateOrder(ctx, OrderParams{
		Amount:   toPaise(in.Amount),
		Currency: currency,
		Receipt:  receiptFor(userID, now),
		Notes: Notes{
			"userId":    userID,
			"plan":      plan,
			"timestamp": now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
	})
	if err != nil {
		s.logger.Error("order creation failed",
			"user_id", userID,
			"plan", plan,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("order created",
		"user_id", userID,
		"order_id", order.ID,
		"amount", order.Amount,
	)

	return &CreatedOrder{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    s.keyID,
	}, nil
}

type SettleInput struct {
	UserID    string
	OrderID   string
	PaymentID string
	Signature string
}

// VerifyAndSettle moves a user into the subscribed state for a payment the
// provider confirms. Every failure leaves the ledger and payment records
// untouched, and a given payment id is applied at most once.
func (s *Service) VerifyAndSettle(
	ctx context.Context,
	in SettleInput,
) (*Settlement, error) {
	ctx, span := tracer.Start(ctx, "payment.VerifyAndSettle")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", in.UserID),
		attribute.String("payment.order_id", in.OrderID),
		attribute.String("payment.payment_id", in.PaymentID),
	)

	settlement, err := s.settle(ctx, in)

	outcome := settlementOutcome(err)
	metrics.RecordSettlement(outcome)
	span.SetAttributes(attribute.String("payment.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.Warn("payment settlement failed",
			"user_id", in.UserID,
			"order_id", in.OrderID,
			"payment_id", in.PaymentID,
			"outcome", outcome,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("payment settled",
		"user_id", in.UserID,
		"order_id", in.OrderID,
		"payment_id", in.PaymentID,
		"amount", settlement.Amount,
		"subscription_expires_at", settlement.SubscriptionExpiresAt,
	)

	return settlement, nil
}

func (s *Service) settle(ctx context.Context, in SettleInput) (*Settlement, error) {
	exists, err := s.repo.ExistsByPaymentID(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("settle %s: %w", in.PaymentID, ErrAlreadyProcessed)
	}

	if !core.VerifyHexSignature(s.keySecret, in.OrderID+"|"+in.PaymentID, in.Signature) {
		return nil, fmt.Errorf("settle %s: %w", in.PaymentID, ErrInvalidSignature)
	}

	order, err := s.provider.FetchOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Notes["userId"] != in.UserID {
		return nil, fmt.Errorf("settle %s: %w", in.PaymentID, ErrOrderOwnershipMismatch)
	}

	providerPayment, err := s.provider.FetchPayment(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if !providerPayment.IsSettleable() {
		return nil, &NotCompletedError{Status: providerPayment.Status}
	}
	if providerPayment.OrderID != in.OrderID {
		return nil, &NotCompletedError{
			Status:        providerPayment.Status,
			OrderMismatch: true,
		}
	}

	plan := order.Notes["plan"]
	if plan == "" {
		plan = PlanMonthly
	}

	settledAt := s.now()
	record := &Record{
		ID:                    uuid.New().String(),
		UserID:                in.UserID,
		ProviderOrderID:       in.OrderID,
		ProviderPaymentID:     in.PaymentID,
		Amount:                fromPaise(order.Amount),
		Currency:              order.Currency,
		Plan:                  plan,
		Status:                StatusPaid,
		SubscriptionExpiresAt: settledAt.Add(entitlement.SubscriptionPeriod),
	}

	err = s.repo.Settle(ctx, record, func(ctx context.Context, tx core.DBTX) error {
		expiresAt, err := s.ledger.Subscribe(ctx, tx, in.UserID, settledAt)
		if err != nil {
			return fmt.Errorf("activate subscription: %w", err)
		}
		record.SubscriptionExpiresAt = expiresAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledger.Invalidate(ctx, in.UserID)

	return &Settlement{
		PaymentID:             in.PaymentID,
		OrderID:               in.OrderID,
		Amount:                record.Amount,
		Currency:              record.Currency,
		Plan:                  record.Plan,
		SubscriptionExpiresAt: record.SubscriptionExpiresAt,
	}, nil
}

// Status reports a provider order together with the caller's current
// subscription. Orders opened by other users, or carrying no owner note,
// are refused.
func (s *Service) Status(
	ctx context.Context,
	userID, orderID string,
) (*OrderStatus, error) {
	order, err := s.provider.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if owner := order.Notes["userId"]; owner == "" || owner != userID {
		return nil, fmt.Errorf("order status: %w", ErrOrderOwnershipMismatch)
	}

	account, err := s.ledger.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &OrderStatus{
		OrderID:               order.ID,
		Amount:                fromPaise(order.Amount),
		Currency:              order.Currency,
		Status:                order.Status,
		IsSubscribed:          account.IsSubscribed,
		SubscriptionExpiresAt: account.SubscriptionExpiresAt,
	}, nil
}

func (s *Service) RecentByUser(
	ctx context.Context,
	userID string,
	limit int,
) ([]Record, error) {
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}
	return s.repo.RecentByUser(ctx, userID, limit)
}

func receiptFor(userID string, now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	receipt := fmt.Sprintf("rec_%s_%s", lastN(userID, 8), lastN(ms, 10))
	if len(receipt) > maxReceiptLength {
		receipt = receipt[:maxReceiptLength]
	}
	return receipt
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func settlementOutcome(err error) string {
	switch {
	case err == nil:
		return "settled"
	case errors.Is(err, ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrOrderOwnershipMismatch):
		return "ownership_mismatch"
	case errors.Is(err, ErrPaymentNotCompleted):
		return "not_completed"
	case errors.Is(err, core.ErrProviderUnavailable),
		errors.Is(err, ErrProviderRejected),
		errors.Is(err, ErrNotConfigured):
		return "provider_error"
	default:
		return "error"
	}
}
