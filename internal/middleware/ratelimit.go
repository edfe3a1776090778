package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bazario/bazario-backend/pkg/clientip"
)

const (
	rateLimitWindow      = 120 * time.Second
	rateLimitMaxRequests = 100
	rateLimitKeyPrefix   = "ratelimit:"
	blockedIPKeyPrefix   = "blocked_ip:"
	blockedIPDuration    = 24 * time.Hour
)

// RateLimit is a Redis-backed fixed-window limiter with IP blocking. Redis
// failures fail open: the request is allowed through.
func RateLimit(rdb *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientip.RealClientIP(r)
			ctx := context.Background()

			blockedKey := blockedIPKeyPrefix + ip
			if blocked, err := rdb.Exists(ctx, blockedKey).Result(); err == nil && blocked > 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"success":false,"message":"Your IP has been temporarily blocked due to excessive requests. Please try again later."}`))
				return
			}

			rateLimitKey := rateLimitKeyPrefix + ip
			count, err := rdb.Incr(ctx, rateLimitKey).Result()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(ctx, rateLimitKey, rateLimitWindow)
			}

			if count > rateLimitMaxRequests {
				rdb.Set(ctx, blockedKey, "1", blockedIPDuration)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.","retry_after":%d}`, int(rateLimitWindow.Seconds()))))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(rateLimitMaxRequests-count, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateLimitWindow).Unix(), 10))

			next.ServeHTTP(w, r)
		})
	}
}
