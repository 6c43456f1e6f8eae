package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"resort-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// NewLimiterStore returns a Redis store shared across instances, or a
// process-local store when rdb is nil.
func NewLimiterStore(rdb *redis.Client, routeID string) (limiter.Store, error) {
	prefix := fmt.Sprintf("rate_limiter:%s", routeID)
	if rdb == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix}), nil
	}
	store, err := redisstore.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("create rate limit store %s: %w", routeID, err)
	}
	return store, nil
}

// RateLimit allows rate (e.g. "5-M") requests per caller. Authenticated
// callers are keyed by user id, everyone else by client IP. A failing store
// lets the request through.
func RateLimit(store limiter.Store, rate string, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	lim := limiter.New(store, parsed)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := lim.Get(r.Context(), rateLimitKey(r))
			if err != nil {
				logger.Warn("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))

			if result.Reached {
				logger.Warn("Rate limit reached",
					zap.String("path", r.URL.Path),
					zap.String("key", rateLimitKey(r)))
				utils.ResponseTooManyRequests(w, "Too many requests, please slow down")
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func rateLimitKey(r *http.Request) string {
	if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
