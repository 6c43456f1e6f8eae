package wire

import (
	"net/http"

	"resort-booking/pkg/middleware"
	"resort-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type rateLimits struct {
	OTP     func(http.Handler) http.Handler
	Payment func(http.Handler) http.Handler
}

func newRateLimits(rdb *redis.Client, config utils.RateLimitConfig, log *zap.Logger) (*rateLimits, error) {
	otp, err := newRateLimit(rdb, "otp", config.OTP, log)
	if err != nil {
		return nil, err
	}
	pay, err := newRateLimit(rdb, "payment", config.Payment, log)
	if err != nil {
		return nil, err
	}
	return &rateLimits{OTP: otp, Payment: pay}, nil
}

func newRateLimit(rdb *redis.Client, routeID, rate string, log *zap.Logger) (func(http.Handler) http.Handler, error) {
	store, err := middleware.NewLimiterStore(rdb, routeID)
	if err != nil {
		return nil, err
	}
	return middleware.RateLimit(store, rate, log.With(zap.String("limiter", routeID)))
}
