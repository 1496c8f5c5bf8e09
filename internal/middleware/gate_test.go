// AngelaMos | 2026
// gate_test.go

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/entitlement"
)

type stubChecker struct {
	decision entitlement.Decision
	err      error
	calls    int
}

func (s *stubChecker) CanUseService(
	context.Context,
	string,
) (entitlement.Decision, error) {
	s.calls++
	return s.decision, s.err
}

func gatedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/grammarize", nil)
	if userID == "" {
		return req
	}
	ctx := withClaims(req.Context(), &TokenClaims{UserID: userID})
	return req.WithContext(ctx)
}

func TestGateDenied(t *testing.T) {
	checker := &stubChecker{
		decision: entitlement.Decide(entitlement.Account{
			FreeTrialsUsed: entitlement.FreeTrialLimit,
		}),
	}

	called := false
	handler := Gate(checker)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, gatedRequest("user-1"))

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "trial_exhausted", body["reason"])
	assert.Equal(t, entitlement.TrialExhaustedMessage, body["message"])
	assert.Equal(t, true, body["requiresSubscription"])

	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ENTITLEMENT_EXCEEDED", errBody["code"])
}

func TestGateAdmitsWithSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		account entitlement.Account
		want    EntitlementSnapshot
	}{
		{
			name:    "trial",
			account: entitlement.Account{FreeTrialsUsed: 7},
			want:    EntitlementSnapshot{RemainingTrials: 3},
		},
		{
			name:    "subscribed",
			account: entitlement.Account{IsSubscribed: true, FreeTrialsUsed: 10},
			want:    EntitlementSnapshot{IsSubscribed: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &stubChecker{decision: entitlement.Decide(tt.account)}

			var got EntitlementSnapshot
			var ok bool
			handler := Gate(checker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, ok = GetEntitlement(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, gatedRequest("user-1"))

			assert.Equal(t, http.StatusOK, rec.Code)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGateFaults(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no identity",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "AUTHENTICATION_REQUIRED",
		},
		{
			name:       "user missing",
			userID:     "user-1",
			err:        fmt.Errorf("get account: %w", core.ErrNotFound),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "ACCOUNT_INACTIVE",
		},
		{
			name:       "ledger fault",
			userID:     "user-1",
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &stubChecker{err: tt.err}
			handler := Gate(checker)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, gatedRequest(tt.userID))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Error.Code)
		})
	}
}
