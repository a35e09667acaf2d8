package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsKey = "stats:summary"

// ErrMiss is returned when the cached aggregate is absent.
var ErrMiss = errors.New("cache miss")

// StatsCache is the read-through cache over the computed statistics
// aggregate. A nil client degrades to a permanent miss so the service
// keeps working without Redis.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache builds the cache on top of an established client.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get loads the cached aggregate into dst. Returns ErrMiss when absent.
func (c *StatsCache) Get(ctx context.Context, dst any) error {
	if c == nil || c.client == nil {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Set stores the aggregate with the configured TTL.
func (c *StatsCache) Set(ctx context.Context, value any) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, raw, c.ttl).Err()
}

// Invalidate removes the cached aggregate.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, statsKey).Err()
}
