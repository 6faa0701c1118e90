package database

import (
	"context"
	"fmt"
	"time"

	"optometry_report/config"
	"optometry_report/internal/logger"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient returns nil, nil when Redis_Addr is empty: the mirror and
// snapshot tiers are then skipped.
func NewRedisClient(c *config.Configuration) (*redis.Client, error) {
	if c.Redis_Addr == "" {
		logger.GetAppLogger().Warn("REDIS_ADDR is empty, Redis mirror and snapshot tiers disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         c.Redis_Addr,
		Password:     c.Redis_Password,
		DB:           c.Redis_DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", c.Redis_Addr, err)
	}

	logger.GetAppLogger().WithField("addr", c.Redis_Addr).Info("Successfully connected to Redis")
	return client, nil
}

// CloseRedis closes client when it is set.
func CloseRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
