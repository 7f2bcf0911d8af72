package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hydrosnap/internal/core"
)

const rateLimitKeyPrefix = "hydrosnap:ratelimit:"

// CounterClient is the subset of *redis.Client the rate limiter uses.
type CounterClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateLimiter is a fixed-window counter in Redis. The first hit in a window
// sets the key's expiry.
type RateLimiter struct {
	client CounterClient
	now    func() time.Time
}

var _ core.RateLimiter = (*RateLimiter)(nil)

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(client CounterClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow implements core.RateLimiter.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (core.RateLimitResult, error) {
	key = rateLimitKeyPrefix + key

	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return core.RateLimitResult{}, fmt.Errorf("rate limit incr %s: %w", key, err)
	}

	ttl := window
	if n == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return core.RateLimitResult{}, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
	} else if d, err := l.client.PTTL(ctx, key).Result(); err == nil && d > 0 {
		ttl = d
	} else if err == nil && d < 0 {
		// A key left without expiry by a failed Expire would never reset.
		_ = l.client.Expire(ctx, key, window).Err()
	}

	return core.RateLimitResult{
		Allowed:   n <= int64(limit),
		Remaining: max(limit-int(n), 0),
		ResetAt:   l.now().Add(ttl),
	}, nil
}
