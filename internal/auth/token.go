// AngelaMos | 2026
// token.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/promptcraft/internal/config"
	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/middleware"
)

const DefaultTokenExpire = 30 * 24 * time.Hour

type TokenPayload struct {
	UserID string
	Email  string
	Name   string
}

// TokenManager signs and verifies HS256 tokens. It holds no state besides
// the secret, so verification never touches storage.
type TokenManager struct {
	secret   []byte
	expire   time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

type TokenOption func(*TokenManager)

func WithTokenClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		m.now = now
	}
}

func NewTokenManager(cfg config.JWTConfig, opts ...TokenOption) *TokenManager {
	expire := cfg.TokenExpire
	if expire <= 0 {
		expire = DefaultTokenExpire
	}

	m := &TokenManager{
		secret:   []byte(cfg.Secret),
		expire:   expire,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *TokenManager) Issue(payload TokenPayload) (string, time.Time, error) {
	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(m.expire)

	builder := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Subject(payload.UserID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt).
		Claim("email", payload.Email).
		Claim("name", payload.Name)

	if m.issuer != "" {
		builder = builder.Issuer(m.issuer)
	}
	if m.audience != "" {
		builder = builder.Audience([]string{m.audience})
	}

	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), expiresAt, nil
}

// VerifyToken wraps every failure in core.ErrTokenInvalid. Expired, forged
// and malformed tokens are indistinguishable to callers.
func (m *TokenManager) VerifyToken(
	_ context.Context,
	tokenString string,
) (*middleware.TokenClaims, error) {
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256(), m.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	claims := &middleware.TokenClaims{UserID: subject}

	//nolint:errcheck // email and name are informational
	_ = token.Get("email", &claims.Email)
	//nolint:errcheck // email and name are informational
	_ = token.Get("name", &claims.Name)

	if iat, ok := token.IssuedAt(); ok {
		claims.IssuedAt = iat
	}
	if exp, ok := token.Expiration(); ok {
		claims.ExpiresAt = exp
	}

	return claims, nil
}

func (m *TokenManager) Expiry() time.Duration {
	return m.expire
}

var _ middleware.TokenVerifier = (*TokenManager)(nil)
