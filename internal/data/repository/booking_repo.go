package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.FinalBooking) error
	CreateRooms(ctx context.Context, rooms []*entity.BookingRoom) error
	CreateGuests(ctx context.Context, guests []*entity.BookingGuest) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.FinalBooking, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.FinalBooking, error)
	FindByAttemptID(ctx context.Context, attemptID uuid.UUID) (*entity.FinalBooking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.FinalBooking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.FinalBooking, error)
	CountAll(ctx context.Context) (int64, error)
	FindRooms(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingRoom, error)
	FindGuests(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingGuest, error)

	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, user_id, resort_id, attempt_id, payment_id, check_in, check_out,
	guest_count, total_amount, currency, status, created_at, updated_at, cancelled_at`

func scanBooking(row pgx.Row) (*entity.FinalBooking, error) {
	var booking entity.FinalBooking
	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.ResortID,
		&booking.AttemptID,
		&booking.PaymentID,
		&booking.CheckIn,
		&booking.CheckOut,
		&booking.GuestCount,
		&booking.TotalAmount,
		&booking.Currency,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.FinalBooking) error {
	query := `
		INSERT INTO final_bookings (id, user_id, resort_id, attempt_id, payment_id, check_in, check_out,
		                            guest_count, total_amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.UserID,
		booking.ResortID,
		booking.AttemptID,
		booking.PaymentID,
		booking.CheckIn,
		booking.CheckOut,
		booking.GuestCount,
		booking.TotalAmount,
		booking.Currency,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("attempt_id", booking.AttemptID.String()),
			zap.String("user_id", booking.UserID.String()),
		)
		return fmt.Errorf("create booking for attempt %s: %w", booking.AttemptID, err)
	}

	return nil
}

// CreateRooms inserts the frozen room copies. An overlap with another
// confirmed booking is rejected by the exclusion constraint (23P01).
func (r *bookingRepository) CreateRooms(ctx context.Context, rooms []*entity.BookingRoom) error {
	query := `
		INSERT INTO booking_rooms (id, booking_id, room_id, stay, status)
		VALUES ($1, $2, $3, daterange($4::date, $5::date, '[)'), $6)
	`

	for _, room := range rooms {
		_, err := r.db.Exec(ctx, query,
			room.ID,
			room.BookingID,
			room.RoomID,
			room.Stay.CheckIn,
			room.Stay.CheckOut,
			room.Status,
		)
		if err != nil {
			if !IsExclusionViolation(err) {
				r.log.Error("Failed to create booking room",
					zap.Error(err),
					zap.String("booking_id", room.BookingID.String()),
					zap.String("room_id", room.RoomID.String()),
				)
			}
			return fmt.Errorf("create booking room %s: %w", room.RoomID, err)
		}
	}

	return nil
}

func (r *bookingRepository) CreateGuests(ctx context.Context, guests []*entity.BookingGuest) error {
	query := `
		INSERT INTO booking_guests (id, booking_id, room_id, name, age, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, guest := range guests {
		_, err := r.db.Exec(ctx, query,
			guest.ID,
			guest.BookingID,
			guest.RoomID,
			guest.Name,
			guest.Age,
			guest.Position,
		)
		if err != nil {
			r.log.Error("Failed to create booking guest",
				zap.Error(err),
				zap.String("booking_id", guest.BookingID.String()),
			)
			return fmt.Errorf("create booking guest: %w", err)
		}
	}

	return nil
}

func (r *bookingRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.FinalBooking, error) {
	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}
	return booking, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.FinalBooking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM final_bookings WHERE id = $1`, id)
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.FinalBooking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM final_bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *bookingRepository) FindByAttemptID(ctx context.Context, attemptID uuid.UUID) (*entity.FinalBooking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM final_bookings WHERE attempt_id = $1`, attemptID)
}

func (r *bookingRepository) list(ctx context.Context, query string, args ...any) ([]*entity.FinalBooking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list bookings", zap.Error(err))
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.FinalBooking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.FinalBooking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM final_bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, userID, limit, offset)
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM final_bookings WHERE user_id = $1`, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by user ID", zap.Error(err), zap.String("user_id", userID.String()))
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID, err)
	}
	return count, nil
}

func (r *bookingRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.FinalBooking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM final_bookings
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *bookingRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM final_bookings`).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings", zap.Error(err))
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

func (r *bookingRepository) FindRooms(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingRoom, error) {
	query := `
		SELECT id, booking_id, room_id, lower(stay), upper(stay), status
		FROM booking_rooms
		WHERE booking_id = $1
		ORDER BY room_id
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find booking rooms", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("find booking rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*entity.BookingRoom
	for rows.Next() {
		var room entity.BookingRoom
		if err := rows.Scan(
			&room.ID,
			&room.BookingID,
			&room.RoomID,
			&room.Stay.CheckIn,
			&room.Stay.CheckOut,
			&room.Status,
		); err != nil {
			return nil, fmt.Errorf("scan booking room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	return rooms, rows.Err()
}

func (r *bookingRepository) FindGuests(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingGuest, error) {
	query := `
		SELECT id, booking_id, room_id, name, age, position
		FROM booking_guests
		WHERE booking_id = $1
		ORDER BY position
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find booking guests", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("find booking guests: %w", err)
	}
	defer rows.Close()

	var guests []*entity.BookingGuest
	for rows.Next() {
		var guest entity.BookingGuest
		if err := rows.Scan(
			&guest.ID,
			&guest.BookingID,
			&guest.RoomID,
			&guest.Name,
			&guest.Age,
			&guest.Position,
		); err != nil {
			return nil, fmt.Errorf("scan booking guest: %w", err)
		}
		guests = append(guests, &guest)
	}

	return guests, rows.Err()
}

// Cancel flips a confirmed booking and its rooms to cancelled, which takes
// the rooms out of the overlap constraint and frees the dates.
func (r *bookingRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE final_bookings
		SET status = 'cancelled', cancelled_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'confirmed'
	`, id, at)
	if err != nil {
		r.log.Error("Failed to cancel booking", zap.Error(err), zap.String("booking_id", id.String()))
		return false, fmt.Errorf("cancel booking %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := r.db.Exec(ctx, `UPDATE booking_rooms SET status = 'cancelled' WHERE booking_id = $1`, id); err != nil {
		r.log.Error("Failed to cancel booking rooms", zap.Error(err), zap.String("booking_id", id.String()))
		return false, fmt.Errorf("cancel rooms of booking %s: %w", id, err)
	}

	return true, nil
}
