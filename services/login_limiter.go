package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles repeated failed logins for the same account.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// RedisLoginLimiter counts failures in Redis. The counter expires window after
// the first failure, so a locked-out account unlocks on its own.
type RedisLoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewRedisLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func loginFailuresKey(key string) string {
	return "login:failures:" + key
}

func (l *RedisLoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Get(ctx, loginFailuresKey(key)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("limiter: reading failures: %w", err)
	}
	return n < l.maxAttempts, nil
}

func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, key string) error {
	k := loginFailuresKey(key)
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("limiter: counting failure: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("limiter: setting window: %w", err)
		}
	}
	return nil
}

func (l *RedisLoginLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, loginFailuresKey(key)).Err(); err != nil {
		return fmt.Errorf("limiter: clearing failures: %w", err)
	}
	return nil
}

// NoopLoginLimiter never throttles; used when Redis is not configured.
type NoopLoginLimiter struct{}

func (NoopLoginLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (NoopLoginLimiter) RecordFailure(context.Context, string) error { return nil }
func (NoopLoginLimiter) Reset(context.Context, string) error         { return nil }
