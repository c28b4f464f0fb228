package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/contactsbook/apiserver/config"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// RedisCounter counts requests in redis. Keys expire with the window,
// so abandoned windows clean themselves up.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter connects to redis and verifies the connection.
func NewRedisCounter(cfg config.RedisConfig) (*RedisCounter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCounter{client: client}, nil
}

// Incr increments the key, setting its expiry on first touch only.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Close releases the redis connection pool.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}
