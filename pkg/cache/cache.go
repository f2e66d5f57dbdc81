// Package cache provides a Redis-backed cache of successful CEP lookups.
// Reruns over overlapping key sets hit the cache instead of burning the
// external service quota again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested CEP was not found in cache.
	ErrCacheMiss = errors.New("cache miss")
)

// DefaultTTL is how long a cached payload stays valid. Address data
// changes rarely; a day keeps reruns cheap without going stale.
const DefaultTTL = 24 * time.Hour

// Cache stores raw address payloads keyed by normalized CEP.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New creates a cache backed by the given Redis client. A zero ttl falls
// back to DefaultTTL.
func New(redisClient *redis.Client, ttl time.Duration) *Cache {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		redis: redisClient,
		ttl:   ttl,
	}
}

// cacheKey builds the deterministic Redis key for a CEP.
func cacheKey(cep string) string {
	return "cep:addr:" + cep
}

// Get retrieves the cached payload for a CEP.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
func (c *Cache) Get(ctx context.Context, cep string) ([]byte, error) {
	data, err := c.redis.Get(ctx, cacheKey(cep)).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.Inc()
	return data, nil
}

// Set stores the payload for a CEP with the configured TTL.
func (c *Cache) Set(ctx context.Context, cep string, payload []byte) error {
	if err := c.redis.Set(ctx, cacheKey(cep), payload, c.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a cached payload.
func (c *Cache) Delete(ctx context.Context, cep string) error {
	if err := c.redis.Del(ctx, cacheKey(cep)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
