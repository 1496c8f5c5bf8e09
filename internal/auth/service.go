// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/entitlement"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
)

type UserInfo struct {
	ID                    string
	Email                 string
	Name                  string
	PasswordHash          string
	IsActive              bool
	FreeTrialsUsed        int
	IsSubscribed          bool
	SubscriptionExpiresAt *time.Time
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		email, passwordHash, name string,
	) (*UserInfo, error)
	RecordLogin(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type EntitlementChecker interface {
	CanUseService(
		ctx context.Context,
		userID string,
	) (entitlement.Decision, error)
}

const userLookupRetries = 2

type Service struct {
	tokens       *TokenManager
	repo         Repository
	users        UserProvider
	entitlements EntitlementChecker
	logger       *slog.Logger
	newBackOff   func() backoff.BackOff
}

type ServiceOption func(*Service)

// WithRetryBackOff replaces the policy used for user lookups during token
// validation.
func WithRetryBackOff(fn func() backoff.BackOff) ServiceOption {
	return func(s *Service) {
		s.newBackOff = fn
	}
}

func NewService(
	tokens *TokenManager,
	repo Repository,
	users UserProvider,
	entitlements EntitlementChecker,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		tokens:       tokens,
		repo:         repo,
		users:        users,
		entitlements: entitlements,
		logger:       logger,
		newBackOff:   defaultBackOff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = time.Second
	return b
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	client ClientInfo,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Email, passwordHash, req.Name)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)

	return s.createAuthResponse(ctx, user, client, "User registered successfully")
}

// Login checks the password before the account status so a disabled
// account is only revealed to someone who knows its password.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	client ClientInfo,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, fmt.Errorf("login: %w", core.ErrAccountInactive)
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.UpdatePassword(ctx, user.ID, newHash)
	}

	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		s.logger.Warn("record login failed", "user_id", user.ID, "error", err)
	}

	return s.createAuthResponse(ctx, user, client, "Login successful")
}

// ValidateToken reports the caller's identity and current entitlement.
// Token and account problems come back as errors wrapping
// core.ErrTokenInvalid or core.ErrAccountInactive.
func (s *Service) ValidateToken(
	ctx context.Context,
	token string,
) (*ValidateTokenResponse, error) {
	claims, err := s.tokens.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.lookupUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("validate token: %w", core.ErrAccountInactive)
		}
		return nil, fmt.Errorf("validate token: %w", err)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("validate token: %w", core.ErrAccountInactive)
	}

	decision, err := s.entitlements.CanUseService(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}

	// The decision already reflects any lapsed subscription it corrected.
	expiresAt := user.SubscriptionExpiresAt
	if !decision.IsSubscribed {
		expiresAt = nil
	}

	return &ValidateTokenResponse{
		Valid: true,
		User: &ValidatedUser{
			ID:                    user.ID,
			Email:                 user.Email,
			Name:                  user.Name,
			FreeTrialsUsed:        user.FreeTrialsUsed,
			IsSubscribed:          decision.IsSubscribed,
			SubscriptionExpiresAt: expiresAt,
		},
		CanUseService:   decision.Allowed,
		Message:         decision.Message,
		RemainingTrials: decision.RemainingTrials,
	}, nil
}

func (s *Service) lookupUser(ctx context.Context, userID string) (*UserInfo, error) {
	var user *UserInfo

	op := func() error {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		user = u
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(s.newBackOff(), userLookupRetries),
		ctx,
	)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	return user, nil
}

// PurgeExpiredTokens removes audit rows for tokens that can no longer verify.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.logger.Info("purged expired token audit rows", "count", removed)
	}

	return removed, nil
}

func (s *Service) createAuthResponse(
	ctx context.Context,
	user *UserInfo,
	client ClientInfo,
	message string,
) (*AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.recordIssued(ctx, user.ID, token, expiresAt, client)

	return &AuthResponse{
		Success:   true,
		Message:   message,
		Token:     token,
		ExpiresAt: expiresAt,
		User: UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
		},
	}, nil
}

func (s *Service) recordIssued(
	ctx context.Context,
	userID, token string,
	expiresAt time.Time,
	client ClientInfo,
) {
	if s.repo == nil {
		return
	}

	err := s.repo.Create(ctx, &IssuedToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: core.HashToken(token),
		ExpiresAt: expiresAt,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	})
	if err != nil {
		s.logger.Warn("token audit write failed", "user_id", userID, "error", err)
	}
}
