package usecase

import (
	"context"
	"fmt"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"
	"resort-booking/internal/dto/request"
	"resort-booking/internal/dto/response"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultAttemptTTL = 30 * time.Minute

type AttemptService interface {
	CreateAttempt(ctx context.Context, userID uuid.UUID, req *request.CreateAttemptRequest) (*response.AttemptResponse, error)
	GetAttempt(ctx context.Context, userID uuid.UUID, attemptID string) (*response.AttemptResponse, error)
	SelectRooms(ctx context.Context, userID uuid.UUID, attemptID string, req *request.SelectRoomsRequest) (*response.AttemptResponse, error)
	AddGuests(ctx context.Context, userID uuid.UUID, attemptID string, req *request.AddGuestsRequest) (*response.AttemptResponse, error)

	// ExpireIfDue moves a pending attempt past its expiry to expired.
	ExpireIfDue(ctx context.Context, attemptID uuid.UUID) (bool, error)
	// ExpireDue expires up to limit due attempts and returns their ids.
	ExpireDue(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type attemptService struct {
	repo     *repository.Repository
	ttl      time.Duration
	currency string
	now      Clock
	log      *zap.Logger
}

func NewAttemptService(repo *repository.Repository, config *utils.Config, now Clock, log *zap.Logger) AttemptService {
	ttl := time.Duration(config.Booking.AttemptTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = defaultAttemptTTL
	}
	return &attemptService{
		repo:     repo,
		ttl:      ttl,
		currency: config.Payment.Currency,
		now:      now,
		log:      log.With(zap.String("service", "attempt")),
	}
}

func (s *attemptService) CreateAttempt(ctx context.Context, userID uuid.UUID, req *request.CreateAttemptRequest) (*response.AttemptResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Create attempt validation failed", zap.Error(err))
		return nil, err
	}

	now := s.now()
	stay, err := parseStay(req.CheckIn, req.CheckOut, now)
	if err != nil {
		return nil, err
	}

	resortID, err := parseID(req.ResortID, errResortNotFound)
	if err != nil {
		return nil, err
	}

	ctx, span := utils.StartSpan(ctx, "attempt.create")
	defer span.End()

	resort, err := s.repo.Resort.FindByID(ctx, resortID)
	if err != nil {
		return nil, fmt.Errorf("find resort: %w", err)
	}
	if resort == nil {
		return nil, errResortNotFound
	}

	attempt := &entity.BookingAttempt{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		UserID:       userID,
		ResortID:     resort.ID,
		CheckIn:      stay.CheckIn,
		CheckOut:     stay.CheckOut,
		GuestCount:   req.GuestCount,
		Status:       entity.AttemptStatusPending,
		ExpiresAt:    now.Add(s.ttl),
	}

	if err := s.repo.Attempt.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	utils.AttemptsCreatedTotal.Inc()
	s.log.Info("Booking attempt created",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("resort_id", resort.ID.String()),
		zap.Time("expires_at", attempt.ExpiresAt),
	)

	resp := response.AttemptToResponse(attempt, nil, nil, 0, s.currency)
	return &resp, nil
}

func (s *attemptService) GetAttempt(ctx context.Context, userID uuid.UUID, attemptID string) (*response.AttemptResponse, error) {
	id, err := parseID(attemptID, apperror.ErrAttemptNotFound)
	if err != nil {
		return nil, err
	}

	if _, err := s.ExpireIfDue(ctx, id); err != nil {
		return nil, err
	}

	return s.load(ctx, userID, id)
}

func (s *attemptService) SelectRooms(ctx context.Context, userID uuid.UUID, attemptID string, req *request.SelectRoomsRequest) (*response.AttemptResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	id, err := parseID(attemptID, apperror.ErrAttemptNotFound)
	if err != nil {
		return nil, err
	}

	roomIDs := make([]uuid.UUID, len(req.RoomIDs))
	for i, raw := range req.RoomIDs {
		roomIDs[i] = uuid.MustParse(raw)
	}

	ctx, span := utils.StartSpan(ctx, "attempt.select_rooms")
	defer span.End()
	span.SetAttributes(attribute.String("attempt_id", id.String()), attribute.Int("rooms", len(roomIDs)))

	if _, err := s.ExpireIfDue(ctx, id); err != nil {
		return nil, err
	}

	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		attempt, err := lockOwnedAttempt(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if err := checkPending(attempt, s.now()); err != nil {
			return err
		}
		if err := checkUnpaid(ctx, tx, id); err != nil {
			return err
		}

		rooms, err := tx.Room.LockByIDs(ctx, roomIDs, repository.LockShare)
		if err != nil {
			return fmt.Errorf("lock rooms: %w", err)
		}
		if err := checkRoomsBelong(rooms, roomIDs, attempt.ResortID); err != nil {
			return err
		}

		booked, err := tx.Room.FindBookedRoomIDs(ctx, roomIDs, attempt.Range())
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if len(booked) > 0 {
			utils.RoomSelectionRejectedTotal.WithLabelValues("room_unavailable").Inc()
			return apperror.Newf(apperror.KindRoomUnavailable,
				"room %s is not available for the selected dates", roomNumber(rooms, booked[0]))
		}

		if capacity := entity.TotalCapacity(rooms); capacity < attempt.GuestCount {
			utils.RoomSelectionRejectedTotal.WithLabelValues("insufficient_capacity").Inc()
			return apperror.Newf(apperror.KindInsufficientCapacity,
				"selected rooms hold %d guests, %d requested", capacity, attempt.GuestCount)
		}

		return tx.Attempt.ReplaceRooms(ctx, id, roomIDs)
	})
	if err != nil {
		s.logRejected("Select rooms rejected", id, err)
		return nil, err
	}

	utils.RoomsSelectedTotal.Add(float64(len(roomIDs)))
	s.log.Info("Rooms selected",
		zap.String("attempt_id", id.String()),
		zap.Int("rooms", len(roomIDs)),
	)

	return s.load(ctx, userID, id)
}

// AddGuests replaces the guest roster. Every entry is checked before any
// write and all problems come back in one validation error.
func (s *attemptService) AddGuests(ctx context.Context, userID uuid.UUID, attemptID string, req *request.AddGuestsRequest) (*response.AttemptResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	id, err := parseID(attemptID, apperror.ErrAttemptNotFound)
	if err != nil {
		return nil, err
	}

	ctx, span := utils.StartSpan(ctx, "attempt.add_guests")
	defer span.End()

	if _, err := s.ExpireIfDue(ctx, id); err != nil {
		return nil, err
	}

	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		attempt, err := lockOwnedAttempt(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if err := checkPending(attempt, s.now()); err != nil {
			return err
		}
		if err := checkUnpaid(ctx, tx, id); err != nil {
			return err
		}

		rooms, err := tx.Attempt.FindRooms(ctx, id)
		if err != nil {
			return fmt.Errorf("find attempt rooms: %w", err)
		}
		if len(rooms) == 0 {
			return apperror.Validation(map[string]string{"guests": "Select rooms before adding guests"})
		}

		guests, err := buildRoster(id, attempt.GuestCount, rooms, req.Guests, s.now())
		if err != nil {
			return err
		}
		return tx.Attempt.ReplaceGuests(ctx, id, guests)
	})
	if err != nil {
		s.logRejected("Add guests rejected", id, err)
		return nil, err
	}

	s.log.Info("Guests added", zap.String("attempt_id", id.String()), zap.Int("guests", len(req.Guests)))
	return s.load(ctx, userID, id)
}

func (s *attemptService) ExpireIfDue(ctx context.Context, attemptID uuid.UUID) (bool, error) {
	expired, err := s.repo.Attempt.ExpireIfDue(ctx, attemptID, s.now())
	if err != nil {
		return false, fmt.Errorf("expire attempt: %w", err)
	}
	if expired {
		utils.AttemptsExpiredTotal.Inc()
		s.log.Info("Booking attempt expired", zap.String("attempt_id", attemptID.String()))
	}
	return expired, nil
}

func (s *attemptService) ExpireDue(ctx context.Context, limit int) ([]uuid.UUID, error) {
	ids, err := s.repo.Attempt.ExpireDue(ctx, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("expire due attempts: %w", err)
	}
	utils.AttemptsExpiredTotal.Add(float64(len(ids)))
	return ids, nil
}

func (s *attemptService) load(ctx context.Context, userID, id uuid.UUID) (*response.AttemptResponse, error) {
	attempt, err := s.repo.Attempt.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	if attempt == nil || attempt.UserID != userID {
		return nil, apperror.ErrAttemptNotFound
	}

	rooms, err := s.repo.Attempt.FindRooms(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find attempt rooms: %w", err)
	}
	guests, err := s.repo.Attempt.FindGuests(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find attempt guests: %w", err)
	}
	payment, err := s.repo.Payment.FindByAttemptID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find attempt payment: %w", err)
	}

	resp := response.AttemptToResponse(attempt, rooms, guests, stayAmount(rooms, attempt.Range()), s.currency)
	if payment != nil {
		p := response.PaymentToResponse(payment)
		resp.Payment = &p
	}
	return &resp, nil
}

func (s *attemptService) logRejected(msg string, id uuid.UUID, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		s.log.Error(msg, zap.Error(err), zap.String("attempt_id", id.String()))
		return
	}
	s.log.Warn(msg, zap.String("attempt_id", id.String()), zap.String("kind", string(apperror.KindOf(err))))
}

// lockOwnedAttempt locks the attempt row. Another user's attempt is reported
// as not found.
func lockOwnedAttempt(ctx context.Context, tx *repository.Repository, id, userID uuid.UUID) (*entity.BookingAttempt, error) {
	attempt, err := tx.Attempt.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock attempt: %w", err)
	}
	if attempt == nil || attempt.UserID != userID {
		return nil, apperror.ErrAttemptNotFound
	}
	return attempt, nil
}

var errPaymentStarted = apperror.New(apperror.KindConflict, "payment has already been initiated for this booking attempt")

// checkUnpaid keeps rooms and guests fixed once a payment has been priced
// from them. The attempt row must already be locked.
func checkUnpaid(ctx context.Context, tx *repository.Repository, id uuid.UUID) error {
	existing, err := tx.Payment.FindByAttemptID(ctx, id)
	if err != nil {
		return fmt.Errorf("find payment: %w", err)
	}
	if existing != nil {
		return errPaymentStarted
	}
	return nil
}

func checkPending(attempt *entity.BookingAttempt, now time.Time) error {
	switch {
	case attempt.Status == entity.AttemptStatusExpired:
		return apperror.ErrAttemptExpired
	case !attempt.IsPending():
		return apperror.ErrAttemptNotPending
	case attempt.IsDue(now):
		return apperror.ErrAttemptExpired
	}
	return nil
}

func checkRoomsBelong(rooms []*entity.Room, requested []uuid.UUID, resortID uuid.UUID) error {
	found := make(map[uuid.UUID]*entity.Room, len(rooms))
	for _, room := range rooms {
		found[room.ID] = room
	}

	fields := map[string]string{}
	for i, id := range requested {
		room, ok := found[id]
		switch {
		case !ok:
			fields[fmt.Sprintf("room_ids[%d]", i)] = "Room does not exist"
		case room.ResortID != resortID:
			fields[fmt.Sprintf("room_ids[%d]", i)] = "Room belongs to another resort"
		}
	}
	if len(fields) > 0 {
		return apperror.Validation(fields)
	}
	return nil
}

// buildRoster checks a guest list against the selected rooms: each guest
// names a selected room, no room holds more than its capacity, and the list
// fits guestCount.
func buildRoster(attemptID uuid.UUID, guestCount int, rooms []*entity.Room, in []request.GuestRequest, now time.Time) ([]*entity.AttemptGuest, error) {
	selected := make(map[uuid.UUID]*entity.Room, len(rooms))
	for _, room := range rooms {
		selected[room.ID] = room
	}

	fields := map[string]string{}
	if len(in) > guestCount {
		fields["guests"] = fmt.Sprintf("At most %d guests for this booking", guestCount)
	}

	perRoom := map[uuid.UUID]int{}
	guests := make([]*entity.AttemptGuest, 0, len(in))
	for i, g := range in {
		roomID := uuid.MustParse(g.RoomID)
		room, ok := selected[roomID]
		if !ok {
			fields[fmt.Sprintf("guests[%d].room_id", i)] = "Room is not part of this booking"
			continue
		}

		perRoom[roomID]++
		if perRoom[roomID] > room.Capacity {
			fields[fmt.Sprintf("guests[%d].room_id", i)] = fmt.Sprintf("Room %s holds at most %d guests", room.RoomNumber, room.Capacity)
			continue
		}

		guests = append(guests, &entity.AttemptGuest{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			AttemptID:  attemptID,
			RoomID:     roomID,
			Name:       g.Name,
			Age:        g.Age,
			Position:   i,
		})
	}

	if len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}
	return guests, nil
}

func roomNumber(rooms []*entity.Room, id uuid.UUID) string {
	for _, room := range rooms {
		if room.ID == id {
			return room.RoomNumber
		}
	}
	return id.String()
}
