// AngelaMos | 2026
// gate.go

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/entitlement"
)

type EntitlementChecker interface {
	CanUseService(
		ctx context.Context,
		userID string,
	) (entitlement.Decision, error)
}

// EntitlementSnapshot is what the gate saw when it admitted the request.
// Handlers use it to decide whether the attempt consumes a trial.
type EntitlementSnapshot struct {
	IsSubscribed    bool
	RemainingTrials int
}

type entitlementDenied struct {
	Success              bool           `json:"success"`
	Error                core.ErrorBody `json:"error"`
	Reason               string         `json:"reason"`
	Message              string         `json:"message"`
	RequiresSubscription bool           `json:"requiresSubscription"`
}

// Gate must run after Authenticator. It reads the ledger directly and
// never touches the usage cache or the trial counter.
func Gate(checker EntitlementChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				core.JSONError(w, core.AuthenticationRequiredError())
				return
			}

			decision, err := checker.CanUseService(r.Context(), userID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					core.JSONError(w, core.AccountInactiveError())
					return
				}
				core.InternalServerError(w, err)
				return
			}

			if !decision.Allowed {
				core.JSON(w, http.StatusForbidden, entitlementDenied{
					Success: false,
					Error: core.ErrorBody{
						Code:    "ENTITLEMENT_EXCEEDED",
						Message: decision.Message,
					},
					Reason:               string(decision.Reason),
					Message:              decision.Message,
					RequiresSubscription: true,
				})
				return
			}

			ctx := context.WithValue(r.Context(), EntitlementKey, EntitlementSnapshot{
				IsSubscribed:    decision.IsSubscribed,
				RemainingTrials: decision.RemainingTrials,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetEntitlement(ctx context.Context) (EntitlementSnapshot, bool) {
	snapshot, ok := ctx.Value(EntitlementKey).(EntitlementSnapshot)
	return snapshot, ok
}
