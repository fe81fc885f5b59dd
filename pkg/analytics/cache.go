package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
)

const summaryCacheKey = "cotmap:analytics:summary"

// RedisCache stores the built summary in Redis with a TTL. Cache failures
// are logged and treated as misses so the summary endpoint keeps working
// when Redis is down.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetSummary(ctx context.Context) (*Summary, bool) {
	payload, err := c.client.Get(ctx, summaryCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Warn("Failed to read summary cache")
		}
		return nil, false
	}

	var summary Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		logger.Log.WithError(err).Warn("Discarding malformed summary cache entry")
		return nil, false
	}
	return &summary, true
}

func (c *RedisCache) SetSummary(ctx context.Context, summary *Summary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to marshal summary for cache")
		return
	}
	if err := c.client.Set(ctx, summaryCacheKey, payload, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to write summary cache")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, summaryCacheKey).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to invalidate summary cache")
	}
}
