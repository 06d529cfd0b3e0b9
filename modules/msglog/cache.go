package msglog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheOpTimeout = 2 * time.Second

// historyCache is a Redis cache-aside layer for history reads. It is an
// optimization only: every operation is bounded and every failure falls
// through to the database.
type historyCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// newHistoryCache creates a cache on an open Redis client.
func newHistoryCache(client *redis.Client, prefix string, ttl time.Duration) *historyCache {
	return &historyCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get retrieves a cached value. The boolean reports a cache hit.
func (c *historyCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	data, err := c.client.Get(cctx, c.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal: %w", err)
	}
	return true, nil
}

// Set stores a value with the configured TTL.
func (c *historyCache) Set(ctx context.Context, key string, value any) error {
	cctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(cctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate removes a cached value.
func (c *historyCache) Invalidate(ctx context.Context, key string) error {
	cctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	if err := c.client.Del(cctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *historyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *historyCache) Close() error {
	return c.client.Close()
}
