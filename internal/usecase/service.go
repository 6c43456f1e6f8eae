package usecase

import (
	"time"

	"resort-booking/internal/data/repository"
	"resort-booking/internal/payment"
	"resort-booking/pkg/utils"

	"go.uber.org/zap"
)

// Clock returns the current time. Services never call time.Now directly so
// tests can drive expiry.
type Clock func() time.Time

type Service struct {
	Auth         AuthService
	User         UserService
	Resort       ResortService
	Availability AvailabilityService
	Attempt      AttemptService
	Payment      PaymentService
	Booking      BookingService
}

func NewService(
	repo *repository.Repository,
	gateway payment.Gateway,
	notifier BookingNotifier,
	cache AvailabilityCache,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	return newService(repo, gateway, notifier, cache, config, log, time.Now)
}

func newService(
	repo *repository.Repository,
	gateway payment.Gateway,
	notifier BookingNotifier,
	cache AvailabilityCache,
	config *utils.Config,
	log *zap.Logger,
	now Clock,
) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cache == nil {
		cache = NopCache{}
	}

	availability := NewAvailabilityService(repo, cache, now, log)
	attempts := NewAttemptService(repo, config, now, log)
	finalizer := NewFinalizer(now, log)

	return &Service{
		Auth:         NewAuthService(repo, config, now, log),
		User:         NewUserService(repo.User, log),
		Resort:       NewResortService(repo, cache, log),
		Availability: availability,
		Attempt:      attempts,
		Payment:      NewPaymentService(repo, gateway, finalizer, attempts, notifier, cache, config, now, log),
		Booking:      NewBookingService(repo, notifier, cache, now, log),
	}
}
