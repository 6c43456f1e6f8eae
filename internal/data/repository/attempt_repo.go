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

type AttemptRepository interface {
	Create(ctx context.Context, attempt *entity.BookingAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.BookingAttempt, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.BookingAttempt, error)

	// Status transitions, all conditional on the current status
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.AttemptStatus) (bool, error)
	ExpireIfDue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	// Rooms and guests attached to an attempt
	ReplaceRooms(ctx context.Context, attemptID uuid.UUID, roomIDs []uuid.UUID) error
	FindRooms(ctx context.Context, attemptID uuid.UUID) ([]*entity.Room, error)
	ReplaceGuests(ctx context.Context, attemptID uuid.UUID, guests []*entity.AttemptGuest) error
	FindGuests(ctx context.Context, attemptID uuid.UUID) ([]*entity.AttemptGuest, error)
}

type attemptRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewAttemptRepository(db database.Querier, log *zap.Logger) AttemptRepository {
	return &attemptRepository{
		db:  db,
		log: log.With(zap.String("repository", "attempt")),
	}
}

const attemptColumns = `id, user_id, resort_id, check_in, check_out, guest_count, status, expires_at, created_at, updated_at`

func scanAttempt(row pgx.Row) (*entity.BookingAttempt, error) {
	var attempt entity.BookingAttempt
	err := row.Scan(
		&attempt.ID,
		&attempt.UserID,
		&attempt.ResortID,
		&attempt.CheckIn,
		&attempt.CheckOut,
		&attempt.GuestCount,
		&attempt.Status,
		&attempt.ExpiresAt,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) Create(ctx context.Context, attempt *entity.BookingAttempt) error {
	query := `
		INSERT INTO booking_attempts (id, user_id, resort_id, check_in, check_out,
		                              guest_count, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.UserID,
		attempt.ResortID,
		attempt.CheckIn,
		attempt.CheckOut,
		attempt.GuestCount,
		attempt.Status,
		attempt.ExpiresAt,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking attempt",
			zap.Error(err),
			zap.String("user_id", attempt.UserID.String()),
			zap.String("resort_id", attempt.ResortID.String()),
		)
		return fmt.Errorf("create attempt: %w", err)
	}

	return nil
}

func (r *attemptRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.BookingAttempt, error) {
	attempt, err := scanAttempt(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking attempt", zap.Error(err), zap.String("attempt_id", id.String()))
		return nil, fmt.Errorf("find attempt %s: %w", id, err)
	}
	return attempt, nil
}

func (r *attemptRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.BookingAttempt, error) {
	return r.findOne(ctx, `SELECT `+attemptColumns+` FROM booking_attempts WHERE id = $1`, id)
}

// FindByIDForUpdate locks the attempt row until the surrounding transaction
// ends.
func (r *attemptRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.BookingAttempt, error) {
	return r.findOne(ctx, `SELECT `+attemptColumns+` FROM booking_attempts WHERE id = $1 FOR UPDATE`, id)
}

// UpdateStatus moves the attempt from -> to and reports whether it did.
// A false result means the attempt was no longer in from.
func (r *attemptRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.AttemptStatus) (bool, error) {
	query := `
		UPDATE booking_attempts
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update attempt status",
			zap.Error(err),
			zap.String("attempt_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update attempt %s status: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *attemptRepository) ExpireIfDue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE booking_attempts
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND expires_at < $2
	`

	result, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		r.log.Error("Failed to expire attempt", zap.Error(err), zap.String("attempt_id", id.String()))
		return false, fmt.Errorf("expire attempt %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

// ExpireDue expires up to limit overdue pending attempts and returns their
// ids. Rows locked by an in-flight operation are skipped for the next run.
func (r *attemptRepository) ExpireDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		UPDATE booking_attempts
		SET status = 'expired', updated_at = NOW()
		WHERE id IN (
		    SELECT id FROM booking_attempts
		    WHERE status = 'pending' AND expires_at < $1
		    ORDER BY expires_at
		    LIMIT $2
		    FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to expire due attempts", zap.Error(err))
		return nil, fmt.Errorf("expire due attempts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired attempt id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ReplaceRooms swaps the attempt's room set. Guests reference rooms, so the
// roster is cleared as well.
func (r *attemptRepository) ReplaceRooms(ctx context.Context, attemptID uuid.UUID, roomIDs []uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM attempt_guests WHERE attempt_id = $1`, attemptID); err != nil {
		r.log.Error("Failed to clear attempt guests", zap.Error(err), zap.String("attempt_id", attemptID.String()))
		return fmt.Errorf("clear attempt guests: %w", err)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM attempt_rooms WHERE attempt_id = $1`, attemptID); err != nil {
		r.log.Error("Failed to clear attempt rooms", zap.Error(err), zap.String("attempt_id", attemptID.String()))
		return fmt.Errorf("clear attempt rooms: %w", err)
	}

	if len(roomIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO attempt_rooms (attempt_id, room_id)
		SELECT $1, unnest($2::uuid[])
	`

	if _, err := r.db.Exec(ctx, query, attemptID, roomIDs); err != nil {
		r.log.Error("Failed to attach rooms", zap.Error(err), zap.String("attempt_id", attemptID.String()))
		return fmt.Errorf("attach rooms to attempt %s: %w", attemptID, err)
	}

	return nil
}

func (r *attemptRepository) FindRooms(ctx context.Context, attemptID uuid.UUID) ([]*entity.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM attempt_rooms ar
		JOIN rooms r ON r.id = ar.room_id
		WHERE ar.attempt_id = $1
		ORDER BY r.id
	`

	rows, err := r.db.Query(ctx, query, attemptID)
	if err != nil {
		r.log.Error("Failed to find attempt rooms", zap.Error(err), zap.String("attempt_id", attemptID.String()))
		return nil, fmt.Errorf("find attempt rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*entity.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (r *attemptRepository) ReplaceGuests(ctx context.Context, attemptID uuid.UUID, guests []*entity.AttemptGuest) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM attempt_guests WHERE attempt_id = $1`, attemptID); err != nil {
		r.log.Error("Failed to clear attempt guests", zap.Error(err), zap.String("attempt_id", attemptID.String()))
		return fmt.Errorf("clear attempt guests: %w", err)
	}

	query := `
		INSERT INTO attempt_guests (id, attempt_id, room_id, name, age, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, guest := range guests {
		_, err := r.db.Exec(ctx, query,
			guest.ID,
			attemptID,
			guest.RoomID,
			guest.Name,
			guest.Age,
			guest.Position,
			guest.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to add attempt guest", zap.Error(err), zap.String("attempt_id", attemptID.String()))
			return fmt.Errorf("add guest to attempt %s: %w", attemptID, err)
		}
	}

	return nil
}

func (r *attemptRepository) FindGuests(ctx context.Context, attemptID uuid.UUID) ([]*entity.AttemptGuest, error) {
	query := `
		SELECT id, attempt_id, room_id, name, age, position, created_at
		FROM attempt_guests
		WHERE attempt_id = $1
		ORDER BY position
	`

	rows, err := r.db.Query(ctx, query, attemptID)
	if err != nil {
		r.log.Error("Failed to find attempt guests", zap.Error(err), zap.String("attempt_id", attemptID.String()))
		return nil, fmt.Errorf("find attempt guests: %w", err)
	}
	defer rows.Close()

	var guests []*entity.AttemptGuest
	for rows.Next() {
		var guest entity.AttemptGuest
		if err := rows.Scan(
			&guest.ID,
			&guest.AttemptID,
			&guest.RoomID,
			&guest.Name,
			&guest.Age,
			&guest.Position,
			&guest.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt guest: %w", err)
		}
		guests = append(guests, &guest)
	}

	return guests, rows.Err()
}
