// AngelaMos | 2026
// razorpay_test.go

package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/promptcraft/internal/config"
	"github.com/carterperez-dev/promptcraft/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RazorpayClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewRazorpayClient(
		config.PaymentConfig{
			KeyID:     testKeyID,
			KeySecret: testKeySecret,
			BaseURL:   srv.URL,
		},
		WithFetchBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
}

func TestRazorpayCreateOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, testKeyID, user)
		assert.Equal(t, testKeySecret, pass)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		var params OrderParams
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, int64(13000), params.Amount)
		assert.Equal(t, testUserID, params.Notes["userId"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_Nx81kQ2bZ0aP","amount":13000,"currency":"INR","status":"created","notes":{"userId":"` + testUserID + `"}}`))
	})

	order, err := client.CreateOrder(context.Background(), OrderParams{
		Amount:   13000,
		Currency: CurrencyINR,
		Receipt:  "rec_2f4d8e17_7225600123",
		Notes:    Notes{"userId": testUserID},
	})
	require.NoError(t, err)

	assert.Equal(t, testOrderID, order.ID)
	assert.Equal(t, "created", order.Status)
}

func TestRazorpayFetchOrderAcceptsEmptyNotesArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"order_Nx81kQ2bZ0aP","amount":13000,"currency":"INR","status":"paid","notes":[]}`))
	})

	order, err := client.FetchOrder(context.Background(), testOrderID)
	require.NoError(t, err)

	assert.Empty(t, order.Notes)
	assert.Empty(t, order.Notes["userId"])
}

func TestRazorpayFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"pay_Nx82LmW3cT9q","order_id":"order_Nx81kQ2bZ0aP","status":"captured"}`))
	})

	p, err := client.FetchPayment(context.Background(), testPaymentID)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, testOrderID, p.OrderID)
	assert.True(t, p.IsSettleable())
}

func TestRazorpayErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		wantCalls int32
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: core.ErrNotFound, wantCalls: 1},
		{name: "bad request", status: http.StatusBadRequest, wantErr: ErrProviderRejected, wantCalls: 1},
		{name: "auth failure", status: http.StatusUnauthorized, wantErr: core.ErrProviderUnavailable, wantCalls: 1},
		{name: "persistent outage", status: http.StatusServiceUnavailable, wantErr: core.ErrProviderUnavailable, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
			})

			_, err := client.FetchOrder(context.Background(), "order_missing")
			require.ErrorIs(t, err, tt.wantErr)

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "BAD_REQUEST_ERROR", perr.Code)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestRazorpayNotConfigured(t *testing.T) {
	client := NewRazorpayClient(config.PaymentConfig{})

	_, err := client.FetchOrder(context.Background(), testOrderID)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
