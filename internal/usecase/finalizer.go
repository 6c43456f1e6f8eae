package usecase

import (
	"context"
	"fmt"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Finalizer converts a pending attempt with a successful payment into a
// confirmed booking. It is the only writer of final_bookings, booking_rooms
// and booking_guests, and always runs inside the caller's transaction.
type Finalizer interface {
	Finalize(ctx context.Context, tx *repository.Repository, attempt *entity.BookingAttempt, payment *entity.Payment) (*entity.FinalBooking, error)
}

type finalizer struct {
	now Clock
	log *zap.Logger
}

func NewFinalizer(now Clock, log *zap.Logger) Finalizer {
	return &finalizer{
		now: now,
		log: log.With(zap.String("service", "finalizer")),
	}
}

var errNoRoomsSelected = apperror.New(apperror.KindConflict, "booking attempt has no rooms")

func (f *finalizer) Finalize(ctx context.Context, tx *repository.Repository, attempt *entity.BookingAttempt, payment *entity.Payment) (*entity.FinalBooking, error) {
	start := time.Now()
	defer func() { utils.FinalizeLatency.Observe(time.Since(start).Seconds()) }()

	ctx, span := utils.StartSpan(ctx, "booking.finalize")
	defer span.End()
	span.SetAttributes(attribute.String("attempt_id", attempt.ID.String()))

	now := f.now()
	if err := checkPending(attempt, now); err != nil {
		return nil, err
	}
	if payment.Status != entity.PaymentStatusSuccess || payment.AttemptID != attempt.ID {
		return nil, fmt.Errorf("finalize attempt %s: payment %s is not a success for it", attempt.ID, payment.ID)
	}

	rooms, err := tx.Attempt.FindRooms(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("find attempt rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, errNoRoomsSelected
	}

	roomIDs := make([]uuid.UUID, len(rooms))
	for i, room := range rooms {
		roomIDs[i] = room.ID
	}

	// Exclusive locks make concurrent finalizers for the same rooms queue up
	// here; the loser then sees the winner's booking in the re-check.
	if _, err := tx.Room.LockByIDs(ctx, roomIDs, repository.LockUpdate); err != nil {
		return nil, fmt.Errorf("lock rooms: %w", err)
	}

	stay := attempt.Range()
	if amount := stayAmount(rooms, stay); amount != payment.Amount {
		return nil, apperror.Newf(apperror.KindConflict,
			"booking is priced at %s but the payment was for %s",
			utils.FormatAmount(amount), utils.FormatAmount(payment.Amount))
	}

	booked, err := tx.Room.FindBookedRoomIDs(ctx, roomIDs, stay)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if len(booked) > 0 {
		return nil, apperror.Newf(apperror.KindRoomUnavailable,
			"room %s was booked by someone else", roomNumber(rooms, booked[0]))
	}

	guests, err := tx.Attempt.FindGuests(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("find attempt guests: %w", err)
	}

	booking := &entity.FinalBooking{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		UserID:       attempt.UserID,
		ResortID:     attempt.ResortID,
		AttemptID:    attempt.ID,
		PaymentID:    payment.ID,
		CheckIn:      stay.CheckIn,
		CheckOut:     stay.CheckOut,
		GuestCount:   attempt.GuestCount,
		TotalAmount:  payment.Amount,
		Currency:     payment.Currency,
		Status:       entity.BookingStatusConfirmed,
	}
	if err := tx.Booking.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	bookingRooms := make([]*entity.BookingRoom, len(rooms))
	for i, room := range rooms {
		bookingRooms[i] = &entity.BookingRoom{
			ID:        uuid.New(),
			BookingID: booking.ID,
			RoomID:    room.ID,
			Stay:      stay,
			Status:    entity.BookingStatusConfirmed,
		}
	}
	if err := tx.Booking.CreateRooms(ctx, bookingRooms); err != nil {
		if repository.IsExclusionViolation(err) {
			return nil, apperror.Wrap(apperror.KindRoomUnavailable, "room was booked by someone else", err)
		}
		return nil, fmt.Errorf("create booking rooms: %w", err)
	}

	if len(guests) > 0 {
		bookingGuests := make([]*entity.BookingGuest, len(guests))
		for i, g := range guests {
			bookingGuests[i] = &entity.BookingGuest{
				ID:        uuid.New(),
				BookingID: booking.ID,
				RoomID:    g.RoomID,
				Name:      g.Name,
				Age:       g.Age,
				Position:  g.Position,
			}
		}
		if err := tx.Booking.CreateGuests(ctx, bookingGuests); err != nil {
			return nil, fmt.Errorf("create booking guests: %w", err)
		}
	}

	completed, err := tx.Attempt.UpdateStatus(ctx, attempt.ID, entity.AttemptStatusPending, entity.AttemptStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	if !completed {
		return nil, apperror.ErrAttemptNotPending
	}

	f.log.Debug("Booking finalized in transaction",
		zap.String("booking_id", booking.ID.String()),
		zap.String("attempt_id", attempt.ID.String()),
		zap.Int("rooms", len(rooms)),
		zap.Int("guests", len(guests)),
	)
	return booking, nil
}
