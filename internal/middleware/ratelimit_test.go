// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/promptcraft/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBudget(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := NewRateLimiter(rdb, RateLimitConfig{
		Name: "auth",
		Limit: LimitFromConfig(config.LimitConfig{
			Requests: 2,
			Window:   15 * time.Minute,
		}),
		FailOpen: true,
	})
	handler := limiter.Handler(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "203.0.113.7:41000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	assert.Equal(t, http.StatusOK, send().Code)

	rec := send()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Error.Code)
}

func TestRateLimiterFallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	limiter := NewRateLimiter(rdb, RateLimitConfig{
		Name:  "payment",
		Limit: PerHour(1, 1),
	})
	handler := limiter.Handler(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestLimitFromConfigDefaultsBurst(t *testing.T) {
	limit := LimitFromConfig(config.LimitConfig{Requests: 5, Window: time.Hour})

	assert.Equal(t, 5, limit.Rate)
	assert.Equal(t, 5, limit.Burst)
	assert.Equal(t, time.Hour, limit.Period)
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(
		t,
		"/api/payment/{id}",
		normalizeEndpoint("/api/payment/2f1c7e3a-9d4b-4c55-8a0e-7b9d2c1f4e60"),
	)
	assert.Equal(t, "/api/contact/{id}", normalizeEndpoint("/api/contact/42"))
}
