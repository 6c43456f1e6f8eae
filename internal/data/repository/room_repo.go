package repository

import (
	"context"
	"errors"
	"fmt"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type LockMode string

const (
	LockShare  LockMode = "FOR SHARE"
	LockUpdate LockMode = "FOR UPDATE"
)

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Room, error)
	FindByResortID(ctx context.Context, resortID uuid.UUID) ([]*entity.Room, error)
	Update(ctx context.Context, room *entity.Room) error

	// Availability queries
	FindAvailable(ctx context.Context, resortID uuid.UUID, stay entity.DateRange) ([]*entity.Room, error)
	FindBookedRoomIDs(ctx context.Context, roomIDs []uuid.UUID, stay entity.DateRange) ([]uuid.UUID, error)
	LockByIDs(ctx context.Context, roomIDs []uuid.UUID, mode LockMode) ([]*entity.Room, error)
}

type roomRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewRoomRepository(db database.Querier, log *zap.Logger) RoomRepository {
	return &roomRepository{
		db:  db,
		log: log.With(zap.String("repository", "room")),
	}
}

const roomColumns = `r.id, r.resort_id, r.room_number, r.capacity, r.price_per_night, r.created_at, r.updated_at`

func scanRoom(row pgx.Row) (*entity.Room, error) {
	var room entity.Room
	err := row.Scan(
		&room.ID,
		&room.ResortID,
		&room.RoomNumber,
		&room.Capacity,
		&room.PricePerNight,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) collect(rows pgx.Rows) ([]*entity.Room, error) {
	defer rows.Close()

	var rooms []*entity.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			r.log.Error("Failed to scan room row", zap.Error(err))
			return nil, fmt.Errorf("scan room row: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *roomRepository) Create(ctx context.Context, room *entity.Room) error {
	query := `
		INSERT INTO rooms (id, resort_id, room_number, capacity, price_per_night, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		room.ID,
		room.ResortID,
		room.RoomNumber,
		room.Capacity,
		room.PricePerNight,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create room",
			zap.Error(err),
			zap.String("resort_id", room.ResortID.String()),
			zap.String("room_number", room.RoomNumber),
		)
		return fmt.Errorf("create room %s: %w", room.RoomNumber, err)
	}

	return nil
}

func (r *roomRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.id = $1`

	room, err := scanRoom(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find room by ID", zap.Error(err), zap.String("room_id", id.String()))
		return nil, fmt.Errorf("find room by ID %s: %w", id, err)
	}

	return room, nil
}

func (r *roomRepository) FindByResortID(ctx context.Context, resortID uuid.UUID) ([]*entity.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		WHERE r.resort_id = $1
		ORDER BY r.room_number ASC
	`

	rows, err := r.db.Query(ctx, query, resortID)
	if err != nil {
		r.log.Error("Failed to list rooms", zap.Error(err), zap.String("resort_id", resortID.String()))
		return nil, fmt.Errorf("list rooms of resort %s: %w", resortID, err)
	}

	return r.collect(rows)
}

func (r *roomRepository) Update(ctx context.Context, room *entity.Room) error {
	query := `
		UPDATE rooms
		SET room_number = $2, capacity = $3, price_per_night = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		room.ID,
		room.RoomNumber,
		room.Capacity,
		room.PricePerNight,
		room.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update room", zap.Error(err), zap.String("room_id", room.ID.String()))
		return fmt.Errorf("update room %s: %w", room.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("room %s not found", room.ID)
	}

	return nil
}

// FindAvailable returns the resort's rooms with no confirmed booking
// overlapping stay, smallest and cheapest first. It takes no locks.
func (r *roomRepository) FindAvailable(ctx context.Context, resortID uuid.UUID, stay entity.DateRange) ([]*entity.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		WHERE r.resort_id = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM booking_rooms br
		      WHERE br.room_id = r.id
		        AND br.status = 'confirmed'
		        AND br.stay && daterange($2::date, $3::date, '[)')
		  )
		ORDER BY r.capacity ASC, r.price_per_night ASC, r.id ASC
	`

	rows, err := r.db.Query(ctx, query, resortID, stay.CheckIn, stay.CheckOut)
	if err != nil {
		r.log.Error("Failed to find available rooms",
			zap.Error(err),
			zap.String("resort_id", resortID.String()),
		)
		return nil, fmt.Errorf("find available rooms: %w", err)
	}

	return r.collect(rows)
}

// FindBookedRoomIDs returns which of roomIDs hold a confirmed booking
// overlapping stay.
func (r *roomRepository) FindBookedRoomIDs(ctx context.Context, roomIDs []uuid.UUID, stay entity.DateRange) ([]uuid.UUID, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT br.room_id
		FROM booking_rooms br
		WHERE br.room_id = ANY($1)
		  AND br.status = 'confirmed'
		  AND br.stay && daterange($2::date, $3::date, '[)')
		ORDER BY br.room_id
	`

	rows, err := r.db.Query(ctx, query, roomIDs, stay.CheckIn, stay.CheckOut)
	if err != nil {
		r.log.Error("Failed to find booked rooms", zap.Error(err))
		return nil, fmt.Errorf("find booked rooms: %w", err)
	}
	defer rows.Close()

	var booked []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan booked room id: %w", err)
		}
		booked = append(booked, id)
	}

	return booked, rows.Err()
}

// LockByIDs row-locks the given rooms in id order so that concurrent lockers
// always acquire them in the same sequence. Missing ids are simply absent from
// the result.
func (r *roomRepository) LockByIDs(ctx context.Context, roomIDs []uuid.UUID, mode LockMode) ([]*entity.Room, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	if mode != LockShare && mode != LockUpdate {
		return nil, fmt.Errorf("unknown lock mode %q", mode)
	}

	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		WHERE r.id = ANY($1)
		ORDER BY r.id
		` + string(mode)

	rows, err := r.db.Query(ctx, query, roomIDs)
	if err != nil {
		r.log.Error("Failed to lock rooms", zap.Error(err), zap.Int("count", len(roomIDs)))
		return nil, fmt.Errorf("lock rooms: %w", err)
	}

	return r.collect(rows)
}
