// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/entitlement"
)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*UserInfo, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*UserInfo)
	return u, args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*UserInfo, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*UserInfo)
	return u, args.Error(1)
}

func (m *mockUsers) Create(
	ctx context.Context,
	email, passwordHash, name string,
) (*UserInfo, error) {
	args := m.Called(ctx, email, passwordHash, name)
	u, _ := args.Get(0).(*UserInfo)
	return u, args.Error(1)
}

func (m *mockUsers) RecordLogin(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUsers) UpdatePassword(ctx context.Context, userID, hash string) error {
	return m.Called(ctx, userID, hash).Error(0)
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens []IssuedToken
	err    error
}

func (r *memTokenRepo) Create(_ context.Context, token *IssuedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.tokens = append(r.tokens, *token)
	return nil
}

func (r *memTokenRepo) CountActiveForUser(
	_ context.Context,
	userID string,
	now time.Time,
) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID && !t.IsExpired(now) {
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.tokens[:0]
	var removed int64
	for _, t := range r.tokens {
		if t.IsExpired(now) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	r.tokens = kept
	return removed, nil
}

type entitlementFunc func(ctx context.Context, userID string) (entitlement.Decision, error)

func (f entitlementFunc) CanUseService(
	ctx context.Context,
	userID string,
) (entitlement.Decision, error) {
	return f(ctx, userID)
}

func allowTrial(remaining int) entitlementFunc {
	return func(context.Context, string) (entitlement.Decision, error) {
		return entitlement.Decide(entitlement.Account{
			FreeTrialsUsed: entitlement.FreeTrialLimit - remaining,
		}), nil
	}
}

type fixture struct {
	users   *mockUsers
	repo    *memTokenRepo
	tokens  *TokenManager
	clock   *fakeClock
	service *Service
}

func newFixture(t *testing.T, checker EntitlementChecker) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Now()}
	f := &fixture{
		users:  &mockUsers{},
		repo:   &memTokenRepo{},
		clock:  clock,
		tokens: newTestTokens(clock, testSecret),
	}
	f.service = NewService(
		f.tokens,
		f.repo,
		f.users,
		checker,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithRetryBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := core.HashPassword(password)
	require.NoError(t, err)
	return h
}

func TestRegister(t *testing.T) {
	f := newFixture(t, allowTrial(10))
	ctx := context.Background()

	f.users.On("Create", ctx, "ana@example.com", mock.AnythingOfType("string"), "Ana").
		Return(&UserInfo{ID: "user-1", Email: "ana@example.com", Name: "Ana", IsActive: true}, nil)

	resp, err := f.service.Register(ctx, RegisterRequest{
		Email:    "ana@example.com",
		Name:     "Ana",
		Password: "secret1",
	}, ClientInfo{UserAgent: "test", IPAddress: "203.0.113.1"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "user-1", resp.User.ID)

	claims, err := f.tokens.VerifyToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	require.Len(t, f.repo.tokens, 1)
	assert.Equal(t, core.HashToken(resp.Token), f.repo.tokens[0].TokenHash)
	assert.Equal(t, "203.0.113.1", f.repo.tokens[0].IPAddress)

	f.users.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t, allowTrial(10))
	ctx := context.Background()

	f.users.On("Create", ctx, "ana@example.com", mock.Anything, "Ana").
		Return(nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey))

	_, err := f.service.Register(ctx, RegisterRequest{
		Email:    "ana@example.com",
		Name:     "Ana",
		Password: "secret1",
	}, ClientInfo{})

	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogin(t *testing.T) {
	hash := hashed(t, "correct-horse")

	tests := []struct {
		name      string
		email     string
		password  string
		user      *UserInfo
		lookupErr error
		wantErr   error
	}{
		{
			name:     "success",
			email:    "ana@example.com",
			password: "correct-horse",
			user:     &UserInfo{ID: "user-1", Email: "ana@example.com", PasswordHash: hash, IsActive: true},
		},
		{
			name:     "wrong password",
			email:    "ana@example.com",
			password: "battery-staple",
			user:     &UserInfo{ID: "user-1", PasswordHash: hash, IsActive: true},
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:      "unknown email",
			email:     "nobody@example.com",
			password:  "correct-horse",
			lookupErr: fmt.Errorf("get user by email: %w", core.ErrNotFound),
			wantErr:   ErrInvalidCredentials,
		},
		{
			name:     "inactive account",
			email:    "ana@example.com",
			password: "correct-horse",
			user:     &UserInfo{ID: "user-1", PasswordHash: hash, IsActive: false},
			wantErr:  core.ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, allowTrial(10))
			ctx := context.Background()

			f.users.On("GetByEmail", ctx, tt.email).Return(tt.user, tt.lookupErr)
			f.users.On("RecordLogin", ctx, "user-1").Return(nil).Maybe()

			resp, err := f.service.Login(ctx, LoginRequest{
				Email:    tt.email,
				Password: tt.password,
			}, ClientInfo{})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.users.AssertNotCalled(t, "RecordLogin", mock.Anything, mock.Anything)
				assert.Empty(t, f.repo.tokens)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, resp.Token)
			f.users.AssertCalled(t, "RecordLogin", ctx, "user-1")
		})
	}
}

func TestLoginSurvivesAuditFailure(t *testing.T) {
	f := newFixture(t, allowTrial(10))
	f.repo.err = errors.New("insert failed")
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "ana@example.com").Return(&UserInfo{
		ID:           "user-1",
		PasswordHash: hashed(t, "correct-horse"),
		IsActive:     true,
	}, nil)
	f.users.On("RecordLogin", ctx, "user-1").Return(errors.New("timeout"))

	resp, err := f.service.Login(ctx, LoginRequest{
		Email:    "ana@example.com",
		Password: "correct-horse",
	}, ClientInfo{})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestValidateToken(t *testing.T) {
	ctx := context.Background()

	t.Run("trial user", func(t *testing.T) {
		f := newFixture(t, allowTrial(4))
		token, _, err := f.tokens.Issue(TokenPayload{UserID: "user-1"})
		require.NoError(t, err)

		f.users.On("GetByID", ctx, "user-1").Return(&UserInfo{
			ID:             "user-1",
			Email:          "ana@example.com",
			IsActive:       true,
			FreeTrialsUsed: 6,
		}, nil)

		resp, err := f.service.ValidateToken(ctx, token)
		require.NoError(t, err)

		assert.True(t, resp.Valid)
		assert.True(t, resp.CanUseService)
		assert.Equal(t, 4, resp.RemainingTrials)
		assert.Equal(t, 6, resp.User.FreeTrialsUsed)
	})

	t.Run("lapsed subscription is reported as unsubscribed", func(t *testing.T) {
		f := newFixture(t, allowTrial(10))
		token, _, err := f.tokens.Issue(TokenPayload{UserID: "user-1"})
		require.NoError(t, err)

		past := time.Now().Add(-time.Hour)
		f.users.On("GetByID", ctx, "user-1").Return(&UserInfo{
			ID:                    "user-1",
			IsActive:              true,
			IsSubscribed:          true,
			SubscriptionExpiresAt: &past,
		}, nil)

		resp, err := f.service.ValidateToken(ctx, token)
		require.NoError(t, err)

		assert.False(t, resp.User.IsSubscribed)
		assert.Nil(t, resp.User.SubscriptionExpiresAt)
	})

	t.Run("exhausted trial is still a valid token", func(t *testing.T) {
		f := newFixture(t, allowTrial(0))
		token, _, err := f.tokens.Issue(TokenPayload{UserID: "user-1"})
		require.NoError(t, err)

		f.users.On("GetByID", ctx, "user-1").Return(&UserInfo{
			ID:             "user-1",
			IsActive:       true,
			FreeTrialsUsed: 10,
		}, nil)

		resp, err := f.service.ValidateToken(ctx, token)
		require.NoError(t, err)

		assert.True(t, resp.Valid)
		assert.False(t, resp.CanUseService)
		assert.Equal(t, entitlement.TrialExhaustedMessage, resp.Message)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newFixture(t, allowTrial(10))

		_, err := f.service.ValidateToken(ctx, "eyJhbGciOiJIUzI1NiJ9.e30.bogus")
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
		f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("missing user is inactive without retry", func(t *testing.T) {
		f := newFixture(t, allowTrial(10))
		token, _, err := f.tokens.Issue(TokenPayload{UserID: "user-1"})
		require.NoError(t, err)

		f.users.On("GetByID", ctx, "user-1").
			Return(nil, fmt.Errorf("get user: %w", core.ErrNotFound)).Once()

		_, err = f.service.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, core.ErrAccountInactive)
		f.users.AssertNumberOfCalls(t, "GetByID", 1)
	})

	t.Run("transient lookup failure is retried", func(t *testing.T) {
		f := newFixture(t, allowTrial(10))
		token, _, err := f.tokens.Issue(TokenPayload{UserID: "user-1"})
		require.NoError(t, err)

		f.users.On("GetByID", ctx, "user-1").
			Return(nil, errors.New("connection reset")).Once()
		f.users.On("GetByID", ctx, "user-1").
			Return(&UserInfo{ID: "user-1", IsActive: true}, nil).Once()

		resp, err := f.service.ValidateToken(ctx, token)
		require.NoError(t, err)
		assert.True(t, resp.Valid)
		f.users.AssertNumberOfCalls(t, "GetByID", 2)
	})
}

func TestPurgeExpiredTokens(t *testing.T) {
	f := newFixture(t, allowTrial(10))
	now := time.Now()

	f.repo.tokens = []IssuedToken{
		{ID: "old", UserID: "user-1", ExpiresAt: now.Add(-time.Minute)},
		{ID: "live", UserID: "user-1", ExpiresAt: now.Add(time.Hour)},
	}

	removed, err := f.service.PurgeExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	active, err := f.repo.CountActiveForUser(context.Background(), "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}
