// AngelaMos | 2026
// auth.go

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/promptcraft/internal/core"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	UserEmailKey   contextKey = "user_email"
	UserNameKey    contextKey = "user_name"
	ClaimsKey      contextKey = "token_claims"
	EntitlementKey contextKey = "entitlement"
	RequestIDKey   contextKey = "request_id"
)

// Tokens shorter than this are rejected before any verification work.
const minTokenLength = 10

const maxTokenBodyBytes = 1 << 20

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*TokenClaims, error)
}

type TokenClaims struct {
	UserID    string
	Email     string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type AccountChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// Authenticator runs the token and account stages of the request gate.
// A request that passes carries the verified identity in its context.
func Authenticator(
	verifier TokenVerifier,
	accounts AccountChecker,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if len(token) < minTokenLength {
				core.JSONError(w, core.AuthenticationRequiredError())
				return
			}

			claims, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			active, err := accounts.IsActive(r.Context(), claims.UserID)
			if err != nil {
				core.InternalServerError(w, err)
				return
			}
			if !active {
				core.JSONError(w, core.AccountInactiveError())
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

func withClaims(ctx context.Context, claims *TokenClaims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, UserNameKey, claims.Name)
	return context.WithValue(ctx, ClaimsKey, claims)
}

// ExtractToken looks for a token in the Authorization header, then the
// token query parameter, then a "token" field in a JSON body. The body is
// restored so handlers can still decode it.
func ExtractToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}

	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}

	return BodyToken(r)
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// BodyToken reads only the "token" field of a JSON body and restores the
// body afterwards.
func BodyToken(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return ""
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBodyBytes))
	//nolint:errcheck // original body is replaced below
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf))
	if err != nil {
		return ""
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(buf, &payload); err != nil {
		return ""
	}

	return strings.TrimSpace(payload.Token)
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrAccountInactive):
		core.JSONError(w, core.AccountInactiveError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

