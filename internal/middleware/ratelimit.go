package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/diary-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitWindow is 60 seconds
	RateLimitWindow = 60 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 120
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
)

// RedisRateLimit is a fixed-window per-IP counter shared by every instance.
// If Redis fails the request is allowed (fail open).
func RedisRateLimit(client *redis.Client, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := RateLimitKeyPrefix + clientip.FromRequest(r)

			n, err := client.Incr(ctx, key).Result()
			if err != nil {
				log.WarnContext(ctx, "rate limit counter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if n == 1 {
				// First request in this window
				client.Expire(ctx, key, RateLimitWindow)
			}

			count := int(n)
			if count > RateLimitMaxRequests {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(RateLimitWindow.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(fmt.Sprintf(`{"error":"Rate limit exceeded. Please try again later.","retry_after":%d}`, int(RateLimitWindow.Seconds()))))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(RateLimitMaxRequests-count))
			next.ServeHTTP(w, r)
		})
	}
}
