package usecase

import (
	"context"
	"fmt"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"
	"resort-booking/internal/dto/request"
	"resort-booking/internal/dto/response"
	"resort-booking/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// Public endpoints (auth required)
	GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetUserBooking(ctx context.Context, userID uuid.UUID, bookingID string) (*response.BookingDetailResponse, error)

	// Admin endpoints
	GetAllBookings(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetBookingByID(ctx context.Context, bookingID string) (*response.BookingDetailResponse, error)
	CancelBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error)
}

type bookingService struct {
	repo     *repository.Repository
	notifier BookingNotifier
	cache    AvailabilityCache
	now      Clock
	log      *zap.Logger
}

func NewBookingService(repo *repository.Repository, notifier BookingNotifier, cache AvailabilityCache, now Clock, log *zap.Logger) BookingService {
	return &bookingService{
		repo:     repo,
		notifier: notifier,
		cache:    cache,
		now:      now,
		log:      log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get user bookings", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("get bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	out, err := s.toResponses(ctx, bookings)
	if err != nil {
		return nil, err
	}
	return response.NewPaginatedResponse(out, req.Page, req.Limit(), total), nil
}

func (s *bookingService) GetUserBooking(ctx context.Context, userID uuid.UUID, bookingID string) (*response.BookingDetailResponse, error) {
	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, errBookingNotFound
	}
	return s.detail(ctx, booking)
}

func (s *bookingService) GetAllBookings(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	bookings, err := s.repo.Booking.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("get bookings: %w", err)
	}

	total, err := s.repo.Booking.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	out, err := s.toResponses(ctx, bookings)
	if err != nil {
		return nil, err
	}
	return response.NewPaginatedResponse(out, req.Page, req.Limit(), total), nil
}

func (s *bookingService) GetBookingByID(ctx context.Context, bookingID string) (*response.BookingDetailResponse, error) {
	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, booking)
}

// CancelBooking cancels a confirmed booking and releases its rooms for the
// stay. Refunds are handled with the provider out of band.
func (s *bookingService) CancelBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := parseID(bookingID, errBookingNotFound)
	if err != nil {
		return nil, err
	}

	var booking *entity.FinalBooking
	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		booking, err = tx.Booking.FindByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		if booking == nil {
			return errBookingNotFound
		}
		if booking.Status == entity.BookingStatusCancelled {
			return apperror.New(apperror.KindConflict, "booking is already cancelled")
		}

		now := s.now()
		cancelled, err := tx.Booking.Cancel(ctx, id, now)
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if !cancelled {
			return apperror.New(apperror.KindConflict, "booking is already cancelled")
		}
		booking.Status = entity.BookingStatusCancelled
		booking.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, booking.ResortID)
	s.notifier.BookingCancelled(ctx, booking.ID)

	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_id", booking.PaymentID.String()),
	)

	resp := response.BookingToResponse(booking, "")
	return &resp, nil
}

func (s *bookingService) findBooking(ctx context.Context, bookingID string) (*entity.FinalBooking, error) {
	id, err := parseID(bookingID, errBookingNotFound)
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to find booking", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, errBookingNotFound
	}
	return booking, nil
}

func (s *bookingService) toResponses(ctx context.Context, bookings []*entity.FinalBooking) ([]response.BookingResponse, error) {
	names := map[uuid.UUID]string{}
	out := make([]response.BookingResponse, len(bookings))
	for i, b := range bookings {
		name, ok := names[b.ResortID]
		if !ok {
			resort, err := s.repo.Resort.FindByID(ctx, b.ResortID)
			if err != nil {
				return nil, fmt.Errorf("find resort: %w", err)
			}
			if resort != nil {
				name = resort.Name
			}
			names[b.ResortID] = name
		}
		out[i] = response.BookingToResponse(b, name)
	}
	return out, nil
}

func (s *bookingService) detail(ctx context.Context, booking *entity.FinalBooking) (*response.BookingDetailResponse, error) {
	summaries, err := s.toResponses(ctx, []*entity.FinalBooking{booking})
	if err != nil {
		return nil, err
	}

	rooms, err := s.repo.Booking.FindRooms(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("find booking rooms: %w", err)
	}
	guests, err := s.repo.Booking.FindGuests(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("find booking guests: %w", err)
	}
	payment, err := s.repo.Payment.FindByID(ctx, booking.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("find booking payment: %w", err)
	}

	resp := &response.BookingDetailResponse{
		BookingResponse: summaries[0],
		Rooms:           make([]response.BookedRoomResponse, 0, len(rooms)),
		Guests:          response.BookingGuestsToResponse(guests),
	}
	for _, br := range rooms {
		item := response.BookedRoomResponse{RoomID: br.RoomID.String(), Status: br.Status}
		if room, err := s.repo.Room.FindByID(ctx, br.RoomID); err == nil && room != nil {
			item.RoomNumber = room.RoomNumber
			item.Capacity = room.Capacity
		}
		resp.Rooms = append(resp.Rooms, item)
	}
	if payment != nil {
		p := response.PaymentToResponse(payment)
		resp.Payment = &p
	}
	return resp, nil
}
