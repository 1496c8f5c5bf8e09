// AngelaMos | 2026
// handler_test.go

package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/middleware"
)

func passthrough(next http.Handler) http.Handler { return next }

func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	NewHandler(f.service).RegisterRoutes(r, asUser(testUserID), passthrough, passthrough)
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) core.ErrorResponse {
	t.Helper()
	var body core.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandlerVerifyPayment(t *testing.T) {
	f := newFixture()
	f.expectProviderOK()
	router := newTestRouter(f)

	in := validInput()
	payload := `{"razorpay_order_id":"` + in.OrderID +
		`","razorpay_payment_id":"` + in.PaymentID +
		`","razorpay_signature":"` + in.Signature + `"}`

	req := httptest.NewRequest(http.MethodPost, "/payment/verify-payment", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body VerifyPaymentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, settledMessage, body.Message)
	assert.Equal(t, testPaymentID, body.PaymentID)

	req = httptest.NewRequest(http.MethodPost, "/payment/verify-payment", strings.NewReader(payload))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_PROCESSED", decodeError(t, rec).Error.Code)
}

func TestHandlerVerifyPaymentErrors(t *testing.T) {
	in := validInput()

	tests := []struct {
		name       string
		body       string
		setup      func(f *fixture)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed ids",
			body:       `{"orderId":"abc","paymentId":"pay_1","signature":"00"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name: "bad signature",
			body: `{"orderId":"` + in.OrderID + `","paymentId":"` + in.PaymentID +
				`","signature":"` + strings.Repeat("a", 64) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_SIGNATURE",
		},
		{
			name: "foreign order",
			body: `{"orderId":"` + in.OrderID + `","paymentId":"` + in.PaymentID +
				`","signature":"` + in.Signature + `"}`,
			setup: func(f *fixture) {
				f.provider.On("FetchOrder", mock.Anything, testOrderID).
					Return(&Order{ID: testOrderID, Notes: Notes{"userId": "intruder"}}, nil)
			},
			wantStatus: http.StatusForbidden,
			wantCode:   "ORDER_OWNERSHIP_MISMATCH",
		},
		{
			name: "provider outage",
			body: `{"orderId":"` + in.OrderID + `","paymentId":"` + in.PaymentID +
				`","signature":"` + in.Signature + `"}`,
			setup: func(f *fixture) {
				f.provider.On("FetchOrder", mock.Anything, testOrderID).
					Return(nil, core.ErrProviderUnavailable)
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}

			req := httptest.NewRequest(http.MethodPost, "/payment/verify-payment", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			newTestRouter(f).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.False(t, body.Success)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body.Error.Code)
			}
			assert.Empty(t, f.repo.records)
		})
	}
}

func TestHandlerCreateOrderRejectsWrongAmount(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/payment/create-order", strings.NewReader(`{"amount":99}`))
	rec := httptest.NewRecorder()
	newTestRouter(f).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(
		t,
		"Amount does not match plan pricing. Expected ₹130 for monthly plan",
		decodeError(t, rec).Error.Message,
	)
}

func TestHandlerPaymentStatusValidatesOrderID(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/payment/payment-status?orderId=bogus", nil)
	rec := httptest.NewRecorder()
	newTestRouter(f).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid order ID format", decodeError(t, rec).Error.Message)
}
