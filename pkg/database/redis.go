package database

import (
	"context"
	"fmt"
	"time"

	"resort-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to Redis. Callers treat an error as "run without Redis":
// the availability cache is skipped and rate limiting falls back to memory.
func InitRedis(config utils.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}

	return client, nil
}
