package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/metrics"
)

// limiterClient is the subset of redis.Client the limiter uses. Tests
// substitute an in-memory counter here.
type limiterClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimiter applies a fixed-window per-IP request limit backed by Redis.
// It is only installed when a Redis client is configured.
type RateLimiter struct {
	client limiterClient
	logger zerolog.Logger
	rpm    int
	window time.Duration
}

// NewRateLimiter creates a rate limiter allowing rpm requests per client IP
// per minute.
func NewRateLimiter(client limiterClient, logger zerolog.Logger, rpm int) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		rpm:    rpm,
		window: time.Minute,
	}
}

// Middleware enforces the limit. Redis being unreachable never blocks
// traffic; the check is skipped and logged.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ratelimit:ip:" + clientIP(r)

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			rl.logger.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, rl.window)
		}

		remaining := rl.rpm - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.rpm))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > rl.rpm {
			metrics.RateLimitHits.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client address, tolerating a bare IP left by the
// RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
