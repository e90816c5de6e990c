// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"time"

	"market-solver/internal/common/database"
	"market-solver/internal/common/logger"
	"market-solver/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 3 * time.Second

// RedisCache is the redis-backed backend. Expiry rides on native key TTLs,
// so CleanupExpired has nothing to do. Redis failures degrade to cache
// misses rather than surfacing to the estimation path.
type RedisCache struct {
	client    *database.RedisClient
	ttl       time.Duration
	keyPrefix string
	logger    logger.Logger
}

func NewRedisCache(client *database.RedisClient, ttl time.Duration, keyPrefix string, log logger.Logger) *RedisCache {
	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
		logger:    log.With(map[string]interface{}{"component": "redis-cache"}),
	}
}

func (c *RedisCache) CleanupExpired() {
	// Redis expires entries server-side via the key TTL.
}

func (c *RedisCache) Get(prompt, model string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key(prompt, model))
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache lookup failed", map[string]interface{}{"error": err.Error()})
		}
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return "", false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Warn("cache entry undecodable", map[string]interface{}{"error": err.Error()})
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return "", false
	}

	if entry.Expired(time.Now(), c.ttl) {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return "", false
	}

	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return entry.Response, true
}

func (c *RedisCache) Store(prompt, model, response string) {
	entry := Entry{
		Prompt:    prompt,
		Model:     model,
		Response:  response,
		CreatedAt: time.Now().UTC(),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("cache entry encode failed", map[string]interface{}{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.key(prompt, model), string(raw), c.ttl); err != nil {
		c.logger.Warn("cache store failed", map[string]interface{}{"error": err.Error()})
	}
}

func (c *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.DeleteByPrefix(ctx, c.keyPrefix+":"); err != nil {
		c.logger.Warn("cache clear failed", map[string]interface{}{"error": err.Error()})
	}
}

func (c *RedisCache) key(prompt, model string) string {
	return c.keyPrefix + ":" + entryKey(prompt, model)
}
