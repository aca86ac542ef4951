// ABOUTME: Redis-backed fixed-window limiter shared by every relay replica
// ABOUTME: Uses INCR and sets the window expiry on the first hit

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests in Redis so the limit holds across instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
}

// NewRedisLimiter allows limit requests per key in each period. name keeps
// the counters of different route groups apart.
func NewRedisLimiter(client *redis.Client, name string, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "fitcheck:ratelimit:" + name + ":",
		limit:  limit,
		period: period,
	}
}

// Allow fails open when Redis is unreachable; a cache outage must not take
// the whole API down.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	k := l.prefix + key

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		slog.Warn("Rate limit store unavailable, allowing request", "error", err)
		return true, 0
	}

	if n == 1 {
		if err := l.client.PExpire(ctx, k, l.period).Err(); err != nil {
			slog.Warn("Failed to set rate limit window", "error", err)
		}
		return true, 0
	}
	if n <= int64(l.limit) {
		return true, 0
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		// A window without expiry would block the key forever
		l.client.PExpire(ctx, k, l.period)
		ttl = l.period
	}
	return false, ttl
}
