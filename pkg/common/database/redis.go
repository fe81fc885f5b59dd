package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tradeops/cot-mapping-service/pkg/common/config"
	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
)

// NewRedis builds a client from configuration. Connection failures are
// logged, not fatal: the summary cache degrades to direct reads.
func NewRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to connect to Redis")
	} else {
		logger.Log.Info("Connected to Redis")
	}

	return client
}
