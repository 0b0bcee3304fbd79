package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultRedisTTL = 24 * time.Hour

// RedisCache is a redis-backed embedding cache. Failures are logged and
// treated as misses; caching never breaks the embedding path.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisCache creates a cache over the given redis client.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get implements EmbeddingCache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float64, bool) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Debug("Redis cache read failed")
		return nil, false
	}

	var embedding []float64
	if err := json.Unmarshal([]byte(data), &embedding); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding corrupt cache entry")
		_ = c.client.Del(ctx, key).Err()
		return nil, false
	}
	return embedding, true
}

// Set implements EmbeddingCache.
func (c *RedisCache) Set(ctx context.Context, key string, embedding []float64) {
	data, err := json.Marshal(embedding)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("Redis cache write failed")
	}
}
