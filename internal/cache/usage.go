// AngelaMos | 2026
// usage.go

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/promptcraft/internal/metrics"
)

const (
	keyPrefix  = "usage:"
	DefaultTTL = 3 * time.Minute
)

// UsageCache holds per-user usage summary snapshots. Entries are display
// data only and may be stale up to the TTL.
type UsageCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUsageCache(client *redis.Client, ttl time.Duration) *UsageCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &UsageCache{client: client, ttl: ttl}
}

func Key(userID string) string {
	return keyPrefix + userID
}

func (c *UsageCache) Get(
	ctx context.Context,
	userID string,
	dest any,
) (bool, error) {
	raw, err := c.client.Get(ctx, Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup("miss")
		return false, nil
	}
	if err != nil {
		metrics.RecordCacheLookup("error")
		return false, fmt.Errorf("get usage snapshot: %w", err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		metrics.RecordCacheLookup("error")
		return false, fmt.Errorf("decode usage snapshot: %w", err)
	}

	metrics.RecordCacheLookup("hit")
	return true, nil
}

func (c *UsageCache) Set(ctx context.Context, userID string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode usage snapshot: %w", err)
	}

	if err := c.client.Set(ctx, Key(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set usage snapshot: %w", err)
	}

	return nil
}

func (c *UsageCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate usage snapshot: %w", err)
	}
	return nil
}

func (c *UsageCache) TTL() time.Duration {
	return c.ttl
}
