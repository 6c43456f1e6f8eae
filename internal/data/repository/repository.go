package repository

import (
	"resort-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Transactor

	User         UserRepository
	Session      SessionRepository
	OTP          OTPRepository
	Resort       ResortRepository
	Room         RoomRepository
	Attempt      AttemptRepository
	Payment      PaymentRepository
	Booking      BookingRepository
	WebhookEvent WebhookEventRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newRepository(db, log)
	repo.Transactor = &pgxTransactor{db: db, log: log.With(zap.String("repository", "tx"))}
	return repo
}

// newRepository binds every repository to q, which is either the pool or an
// open transaction.
func newRepository(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		User:         NewUserRepository(q, log),
		Session:      NewSessionRepository(q, log),
		OTP:          NewOTPRepository(q, log),
		Resort:       NewResortRepository(q, log),
		Room:         NewRoomRepository(q, log),
		Attempt:      NewAttemptRepository(q, log),
		Payment:      NewPaymentRepository(q, log),
		Booking:      NewBookingRepository(q, log),
		WebhookEvent: NewWebhookEventRepository(q, log),
	}
}
