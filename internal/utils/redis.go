package utils

import (
	"context"
	"fmt"
	"time"

	"mailmaster/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client with additional functionality
type RedisClient struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		Username: cfg.Redis.Username,
		DB:       cfg.Redis.DB,

		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 5,

		// Timeout settings
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		// Retry settings
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{Client: client}, nil
}

// HealthCheck checks if Redis is healthy
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.Ping(ctx).Err()
}

// RateLimitKey returns the key a client's hits on a bucket are counted under.
func RateLimitKey(clientID, bucket string) string {
	return fmt.Sprintf("rate_limit:%s:%s", clientID, bucket)
}

// IncrementRateLimit counts one hit in the fixed window stored at key and
// returns the count so far and the time left in the window. The window
// starts with the first hit.
func (r *RedisClient) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	count, err := r.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}

	if count == 1 {
		if err := r.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return 1, window, nil
	}

	ttl, err := r.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// The key lost its expiry; start a fresh window.
		if err := r.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}

	return int(count), ttl, nil
}
