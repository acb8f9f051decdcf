package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/pkg/clientip"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 300
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = 15 * time.Minute
)

// RedisRateLimiter is a fixed-window per-IP limiter shared by every
// instance through Redis. Clients that exceed the window are blocked for
// BlockedIPDuration. Redis errors fail open.
type RedisRateLimiter struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisRateLimiter(client *redis.Client, logger *zap.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, logger: logger}
}

func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ipAddress := clientip.RealClientIP(r)
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		blockedKey := BlockedIPKeyPrefix + ipAddress
		isBlocked, err := l.client.Exists(ctx, blockedKey).Result()
		if err == nil && isBlocked > 0 {
			writeJSONError(w, http.StatusTooManyRequests, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
			return
		}

		rateLimitKey := RateLimitKeyPrefix + ipAddress
		count64, err := l.client.Incr(ctx, rateLimitKey).Result()
		if err != nil {
			l.logger.Debug("rate limit check failed, allowing request", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if count64 == 1 {
			l.client.Expire(ctx, rateLimitKey, RateLimitWindow)
		}
		count := int(count64)

		if count > RateLimitMaxRequests {
			if err := l.client.Set(ctx, blockedKey, "1", BlockedIPDuration).Err(); err != nil {
				l.logger.Warn("failed to block ip", zap.String("ip", ipAddress), zap.Error(err))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.","retry_after":%d}`, int(BlockedIPDuration.Seconds()))))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(RateLimitMaxRequests-count))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(RateLimitWindow).Unix(), 10))

		next.ServeHTTP(w, r)
	})
}
