package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces the ceiling with a fixed one-second window in Redis,
// for deployments running more than one instance behind a balancer. It
// implements the same Limiter interface as MemoryLimiter.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
}

// NewRedisLimiter connects to Redis and verifies connectivity.
func NewRedisLimiter(ctx context.Context, redisURL string, limit int) (*RedisLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 3

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLimiter{client: client, limit: int64(limit)}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := time.Now()
	windowKey := fmt.Sprintf("rl:%s:%d", key, now.Unix())
	resetAt := now.Truncate(time.Second).Add(time.Second)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, resetAt, fmt.Errorf("redis incr: %w", err)
	}

	count := incr.Val()
	if count > l.limit {
		return false, 0, resetAt, nil
	}
	return true, int(l.limit - count), resetAt, nil
}

// Close releases the Redis connection pool.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
