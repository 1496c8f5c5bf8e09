// AngelaMos | 2026
// service_test.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/entitlement"
)

const (
	testKeyID     = "rzp_test_key"
	testKeySecret = "rzp_test_secret_value"
	testUserID    = "5b1f8c2e-7a94-4d3b-b6e1-0c9a2f4d8e17"
	testOrderID   = "order_Nx81kQ2bZ0aP"
	testPaymentID = "pay_Nx82LmW3cT9q"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateOrder(ctx context.Context, params OrderParams) (*Order, error) {
	args := m.Called(ctx, params)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockProvider) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockProvider) FetchPayment(ctx context.Context, paymentID string) (*ProviderPayment, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(*ProviderPayment)
	return p, args.Error(1)
}

// memRepo mirrors the transactional contract: the insert is checked for
// uniqueness first and nothing is kept when apply fails.
type memRepo struct {
	mu      sync.Mutex
	records []Record
}

func (r *memRepo) ExistsByPaymentID(_ context.Context, paymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ProviderPaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) RecentByUser(_ context.Context, userID string, limit int) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].UserID == userID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func (r *memRepo) Settle(ctx context.Context, record *Record, apply ApplyFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ProviderPaymentID == record.ProviderPaymentID {
			return fmt.Errorf("insert payment: %w", ErrAlreadyProcessed)
		}
	}
	if err := apply(ctx, nil); err != nil {
		return err
	}
	record.CreatedAt = time.Now()
	r.records = append(r.records, *record)
	return nil
}

type fakeLedger struct {
	account      entitlement.Account
	subscribeErr error
	subscribes   int
	invalidated  int
}

func (l *fakeLedger) Account(context.Context, string) (*entitlement.Account, error) {
	a := l.account
	return &a, nil
}

func (l *fakeLedger) Subscribe(
	_ context.Context,
	_ core.DBTX,
	_ string,
	settledAt time.Time,
) (time.Time, error) {
	if l.subscribeErr != nil {
		return time.Time{}, l.subscribeErr
	}
	l.subscribes++
	expiresAt := settledAt.Add(entitlement.SubscriptionPeriod)
	l.account.IsSubscribed = true
	l.account.SubscriptionExpiresAt = &expiresAt
	return expiresAt, nil
}

func (l *fakeLedger) Invalidate(context.Context, string) {
	l.invalidated++
}

type fixture struct {
	provider *mockProvider
	repo     *memRepo
	ledger   *fakeLedger
	service  *Service
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		provider: &mockProvider{},
		repo:     &memRepo{},
		ledger:   &fakeLedger{account: entitlement.Account{UserID: testUserID, IsActive: true, FreeTrialsUsed: 10}},
		now:      time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC),
	}
	f.service = NewService(
		f.repo,
		f.provider,
		f.ledger,
		testKeyID,
		testKeySecret,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *fixture) expectProviderOK() {
	f.provider.On("FetchOrder", mock.Anything, testOrderID).Return(&Order{
		ID:       testOrderID,
		Amount:   13000,
		Currency: "INR",
		Status:   "paid",
		Notes:    Notes{"userId": testUserID, "plan": "monthly"},
	}, nil)
	f.provider.On("FetchPayment", mock.Anything, testPaymentID).Return(&ProviderPayment{
		ID:      testPaymentID,
		OrderID: testOrderID,
		Status:  "captured",
	}, nil)
}

func validInput() SettleInput {
	return SettleInput{
		UserID:    testUserID,
		OrderID:   testOrderID,
		PaymentID: testPaymentID,
		Signature: core.SignHex(testKeySecret, testOrderID+"|"+testPaymentID),
	}
}

func TestVerifyAndSettle(t *testing.T) {
	f := newFixture()
	f.expectProviderOK()

	settlement, err := f.service.VerifyAndSettle(context.Background(), validInput())
	require.NoError(t, err)

	wantExpiry := f.now.Add(30 * 24 * time.Hour)
	assert.Equal(t, wantExpiry, settlement.SubscriptionExpiresAt)
	assert.InDelta(t, 130.0, settlement.Amount, 0.001)
	assert.Equal(t, "INR", settlement.Currency)

	assert.True(t, f.ledger.account.IsSubscribed)
	assert.Equal(t, 10, f.ledger.account.FreeTrialsUsed)
	assert.Equal(t, 1, f.ledger.invalidated)

	require.Len(t, f.repo.records, 1)
	rec := f.repo.records[0]
	assert.Equal(t, testPaymentID, rec.ProviderPaymentID)
	assert.Equal(t, testOrderID, rec.ProviderOrderID)
	assert.Equal(t, StatusPaid, rec.Status)
	assert.Equal(t, "monthly", rec.Plan)
	assert.Equal(t, wantExpiry, rec.SubscriptionExpiresAt)
}

func TestVerifyAndSettleIsIdempotent(t *testing.T) {
	f := newFixture()
	f.expectProviderOK()
	ctx := context.Background()

	first, err := f.service.VerifyAndSettle(ctx, validInput())
	require.NoError(t, err)

	f.now = f.now.Add(10 * 24 * time.Hour)

	_, err = f.service.VerifyAndSettle(ctx, validInput())
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	assert.Equal(t, 1, f.ledger.subscribes)
	assert.Len(t, f.repo.records, 1)
	assert.Equal(t, first.SubscriptionExpiresAt, *f.ledger.account.SubscriptionExpiresAt)
	f.provider.AssertNumberOfCalls(t, "FetchOrder", 1)
}

func TestVerifyAndSettleRejectsAnySignatureMutation(t *testing.T) {
	valid := validInput().Signature

	for i := range len(valid) {
		mutated := []byte(valid)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}

		f := newFixture()
		in := validInput()
		in.Signature = string(mutated)

		_, err := f.service.VerifyAndSettle(context.Background(), in)
		require.ErrorIs(t, err, ErrInvalidSignature, "position %d", i)

		assert.Empty(t, f.repo.records)
		assert.False(t, f.ledger.account.IsSubscribed)
		f.provider.AssertNotCalled(t, "FetchOrder", mock.Anything, mock.Anything)
	}
}

func TestVerifyAndSettleRejectsUppercaseSignature(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Signature = strings.ToUpper(in.Signature)

	_, err := f.service.VerifyAndSettle(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAndSettleFailures(t *testing.T) {
	tests := []struct {
		name        string
		order       *Order
		orderErr    error
		payment     *ProviderPayment
		wantErr     error
		wantMessage string
	}{
		{
			name: "order belongs to someone else",
			order: &Order{
				ID:    testOrderID,
				Notes: Notes{"userId": "another-user"},
			},
			wantErr: ErrOrderOwnershipMismatch,
		},
		{
			name:    "order without notes",
			order:   &Order{ID: testOrderID, Notes: Notes{}},
			wantErr: ErrOrderOwnershipMismatch,
		},
		{
			name:  "payment not captured",
			order: &Order{ID: testOrderID, Amount: 13000, Notes: Notes{"userId": testUserID}},
			payment: &ProviderPayment{
				ID:      testPaymentID,
				OrderID: testOrderID,
				Status:  "failed",
			},
			wantErr:     ErrPaymentNotCompleted,
			wantMessage: "Payment not completed. Status: failed",
		},
		{
			name:  "payment for a different order",
			order: &Order{ID: testOrderID, Amount: 13000, Notes: Notes{"userId": testUserID}},
			payment: &ProviderPayment{
				ID:      testPaymentID,
				OrderID: "order_Other123",
				Status:  "captured",
			},
			wantErr:     ErrPaymentNotCompleted,
			wantMessage: "Payment does not match order",
		},
		{
			name:     "provider down",
			orderErr: fmt.Errorf("fetch order: %w", core.ErrProviderUnavailable),
			wantErr:  core.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.provider.On("FetchOrder", mock.Anything, testOrderID).Return(tt.order, tt.orderErr)
			if tt.payment != nil {
				f.provider.On("FetchPayment", mock.Anything, testPaymentID).Return(tt.payment, nil)
			}

			_, err := f.service.VerifyAndSettle(context.Background(), validInput())
			require.ErrorIs(t, err, tt.wantErr)

			if tt.wantMessage != "" {
				var nc *NotCompletedError
				require.True(t, errors.As(err, &nc))
				assert.Equal(t, tt.wantMessage, nc.Message())
			}

			assert.Empty(t, f.repo.records)
			assert.Zero(t, f.ledger.subscribes)
			assert.Zero(t, f.ledger.invalidated)
		})
	}
}

func TestVerifyAndSettleLedgerFailureKeepsNoRecord(t *testing.T) {
	f := newFixture()
	f.expectProviderOK()
	f.ledger.subscribeErr = fmt.Errorf("activate subscription: %w", core.ErrNotFound)

	_, err := f.service.VerifyAndSettle(context.Background(), validInput())
	require.ErrorIs(t, err, core.ErrNotFound)

	assert.Empty(t, f.repo.records)
	assert.Zero(t, f.ledger.invalidated)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture()

	f.provider.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p OrderParams) bool {
		return p.Amount == 13000 &&
			p.Currency == "INR" &&
			p.Notes["userId"] == testUserID &&
			p.Notes["plan"] == "monthly" &&
			p.Notes["timestamp"] == "2026-05-10T09:30:00.000Z"
	})).Return(&Order{ID: testOrderID, Amount: 13000, Currency: "INR"}, nil)

	order, err := f.service.CreateOrder(context.Background(), testUserID, CreateOrderInput{
		Amount:   130,
		Currency: "inr",
	})
	require.NoError(t, err)

	assert.Equal(t, testOrderID, order.OrderID)
	assert.Equal(t, int64(13000), order.Amount)
	assert.Equal(t, testKeyID, order.KeyID)

	params, ok := f.provider.Calls[0].Arguments.Get(1).(OrderParams)
	require.True(t, ok)
	assert.Equal(t, "rec_2f4d8e17_"+lastN(fmt.Sprint(f.now.UnixMilli()), 10), params.Receipt)
	assert.LessOrEqual(t, len(params.Receipt), 40)
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateOrderInput
		message string
	}{
		{
			name:    "below minimum",
			in:      CreateOrderInput{Amount: 0.5},
			message: "Amount must be between ₹1 and ₹10000",
		},
		{
			name:    "above maximum",
			in:      CreateOrderInput{Amount: 20000},
			message: "Amount must be between ₹1 and ₹10000",
		},
		{
			name:    "does not match plan",
			in:      CreateOrderInput{Amount: 100},
			message: "Amount does not match plan pricing. Expected ₹130 for monthly plan",
		},
		{
			name:    "unsupported currency",
			in:      CreateOrderInput{Amount: 130, Currency: "USD"},
			message: "Only INR payments are supported",
		},
		{
			name:    "unknown plan",
			in:      CreateOrderInput{Amount: 130, Plan: "yearly"},
			message: "Unknown plan: yearly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.service.CreateOrder(context.Background(), testUserID, tt.in)
			require.Error(t, err)

			appErr, ok := core.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, 400, appErr.StatusCode)
			assert.Equal(t, tt.message, appErr.Message)
			f.provider.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestStatus(t *testing.T) {
	f := newFixture()
	expires := f.now.Add(12 * 24 * time.Hour)
	f.ledger.account.IsSubscribed = true
	f.ledger.account.SubscriptionExpiresAt = &expires

	f.provider.On("FetchOrder", mock.Anything, testOrderID).Return(&Order{
		ID:       testOrderID,
		Amount:   13000,
		Currency: "INR",
		Status:   "paid",
		Notes:    Notes{"userId": testUserID},
	}, nil)

	status, err := f.service.Status(context.Background(), testUserID, testOrderID)
	require.NoError(t, err)

	assert.InDelta(t, 130.0, status.Amount, 0.001)
	assert.Equal(t, "paid", status.Status)
	assert.True(t, status.IsSubscribed)
	assert.Equal(t, &expires, status.SubscriptionExpiresAt)

	_, err = f.service.Status(context.Background(), "someone-else", testOrderID)
	assert.ErrorIs(t, err, ErrOrderOwnershipMismatch)
}

func TestStatusRefusesOrderWithoutOwner(t *testing.T) {
	f := newFixture()

	f.provider.On("FetchOrder", mock.Anything, "order_Foreign01").Return(&Order{
		ID:       "order_Foreign01",
		Amount:   13000,
		Currency: "INR",
		Status:   "paid",
	}, nil)

	status, err := f.service.Status(context.Background(), testUserID, "order_Foreign01")
	assert.ErrorIs(t, err, ErrOrderOwnershipMismatch)
	assert.Nil(t, status)
}

func TestReceiptFor(t *testing.T) {
	at := time.UnixMilli(1767225600123)

	assert.Equal(t, "rec_abc_7225600123", receiptFor("abc", at))
	assert.Equal(
		t,
		"rec_89abcdef_7225600123",
		receiptFor("0123456789abcdef", at),
	)
}
