// Package ratelimit counts failed attempts per key in redis using fixed
// windows (INCR + EXPIRE).
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned once a key has used up its attempts.
	ErrRateLimited = errors.New("too many attempts")
	// ErrUnavailable wraps redis failures.
	ErrUnavailable = errors.New("rate limiter unavailable")
)

// Config holds limiter tuning parameters.
type Config struct {
	Prefix      string
	MaxAttempts int
	Cooldown    time.Duration
}

// Limiter enforces an attempt budget per key. A nil *Limiter allows
// everything, so callers can run without redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &Limiter{redis: redisClient, config: cfg}
}

func (l *Limiter) key(k string) string {
	return l.config.Prefix + ":" + k
}

// Check returns ErrRateLimited when key has reached its budget.
func (l *Limiter) Check(ctx context.Context, key string) error {
	if l == nil {
		return nil
	}

	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Fail records one failed attempt. The window starts on the first failure.
func (l *Limiter) Fail(ctx context.Context, key string) error {
	if l == nil {
		return nil
	}

	k := l.key(key)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for key, typically after a successful attempt.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
