package favicon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "favicon:"

// RedisCache is the Redis-backed Cache implementation, for deployments
// where resolved favicons should survive restarts and be shared across
// replicas. Expiry is delegated to Redis TTLs, so Sweep is a no-op.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
	hits   int64
	misses int64
}

// NewRedisCache creates a RedisCache on top of an established client. A
// non-positive ttl falls back to DefaultTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, domain string) (string, bool) {
	url, err := c.client.Get(ctx, redisKeyPrefix+domain).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithField("error", err.Error()).Warn("Favicon cache read failed")
		}
		atomic.AddInt64(&c.misses, 1)
		return "", false
	}
	atomic.AddInt64(&c.hits, 1)
	return url, true
}

func (c *RedisCache) Set(ctx context.Context, domain, url string) {
	if err := c.client.Set(ctx, redisKeyPrefix+domain, url, c.ttl).Err(); err != nil {
		c.logger.WithField("error", err.Error()).Warn("Favicon cache write failed")
	}
}

// Sweep is a no-op: Redis evicts expired keys itself.
func (c *RedisCache) Sweep(_ context.Context) {}

func (c *RedisCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.WithField("error", err.Error()).Warn("Favicon cache delete failed")
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.WithField("error", err.Error()).Warn("Favicon cache scan failed")
	}
}

func (c *RedisCache) Stats(ctx context.Context) CacheStats {
	size := 0
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		size++
	}
	return CacheStats{
		Size:   size,
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}
}
