package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"
	"resort-booking/internal/dto/request"
	"resort-booking/internal/dto/response"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ResortService interface {
	// Public endpoints
	GetAllResorts(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ResortResponse], error)
	GetResortByID(ctx context.Context, resortID string) (*response.ResortDetailResponse, error)

	// Admin endpoints
	CreateResort(ctx context.Context, req *request.CreateResortRequest) (*response.ResortResponse, error)
	UpdateResort(ctx context.Context, resortID string, req *request.UpdateResortRequest) (*response.ResortResponse, error)
	DeleteResort(ctx context.Context, resortID string) error
	CreateRoom(ctx context.Context, resortID string, req *request.CreateRoomRequest) (*response.RoomResponse, error)
	GetRooms(ctx context.Context, resortID string) ([]response.RoomResponse, error)
	UpdateRoom(ctx context.Context, resortID, roomID string, req *request.UpdateRoomRequest) (*response.RoomResponse, error)
}

type resortService struct {
	repo  *repository.Repository
	cache AvailabilityCache
	log   *zap.Logger
}

func NewResortService(repo *repository.Repository, cache AvailabilityCache, log *zap.Logger) ResortService {
	return &resortService{
		repo:  repo,
		cache: cache,
		log:   log.With(zap.String("service", "resort")),
	}
}

func (s *resortService) GetAllResorts(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ResortResponse], error) {
	resorts, err := s.repo.Resort.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("get resorts: %w", err)
	}

	total, err := s.repo.Resort.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count resorts: %w", err)
	}

	out := make([]response.ResortResponse, len(resorts))
	for i, resort := range resorts {
		out[i] = response.ResortToResponse(resort)
	}
	return response.NewPaginatedResponse(out, req.Page, req.Limit(), total), nil
}

func (s *resortService) GetResortByID(ctx context.Context, resortID string) (*response.ResortDetailResponse, error) {
	resort, err := s.findResort(ctx, resortID)
	if err != nil {
		return nil, err
	}

	rooms, err := s.repo.Room.FindByResortID(ctx, resort.ID)
	if err != nil {
		return nil, fmt.Errorf("get rooms: %w", err)
	}

	return &response.ResortDetailResponse{
		ResortResponse: response.ResortToResponse(resort),
		Rooms:          response.RoomsToResponse(rooms),
	}, nil
}

func (s *resortService) CreateResort(ctx context.Context, req *request.CreateResortRequest) (*response.ResortResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	now := time.Now()
	resort := &entity.Resort{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:     strings.TrimSpace(req.Name),
		Location: strings.TrimSpace(req.Location),
		Address:  strings.TrimSpace(req.Address),
	}

	if err := s.repo.Resort.Create(ctx, resort); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperror.Newf(apperror.KindConflict, "resort %q already exists", resort.Name)
		}
		return nil, fmt.Errorf("create resort: %w", err)
	}

	s.log.Info("Resort created", zap.String("resort_id", resort.ID.String()), zap.String("name", resort.Name))

	resp := response.ResortToResponse(resort)
	return &resp, nil
}

func (s *resortService) UpdateResort(ctx context.Context, resortID string, req *request.UpdateResortRequest) (*response.ResortResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	resort, err := s.findResort(ctx, resortID)
	if err != nil {
		return nil, err
	}

	resort.Name = strings.TrimSpace(req.Name)
	resort.Location = strings.TrimSpace(req.Location)
	resort.Address = strings.TrimSpace(req.Address)
	resort.UpdatedAt = time.Now()

	if err := s.repo.Resort.Update(ctx, resort); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperror.Newf(apperror.KindConflict, "resort %q already exists", resort.Name)
		}
		return nil, fmt.Errorf("update resort: %w", err)
	}

	s.log.Info("Resort updated", zap.String("resort_id", resort.ID.String()))

	resp := response.ResortToResponse(resort)
	return &resp, nil
}

func (s *resortService) DeleteResort(ctx context.Context, resortID string) error {
	resort, err := s.findResort(ctx, resortID)
	if err != nil {
		return err
	}

	if err := s.repo.Resort.SoftDelete(ctx, resort.ID); err != nil {
		return fmt.Errorf("delete resort: %w", err)
	}
	s.cache.Invalidate(ctx, resort.ID)

	s.log.Info("Resort deleted", zap.String("resort_id", resort.ID.String()))
	return nil
}

func (s *resortService) CreateRoom(ctx context.Context, resortID string, req *request.CreateRoomRequest) (*response.RoomResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	price, err := parsePrice(req.PricePerNight)
	if err != nil {
		return nil, err
	}

	resort, err := s.findResort(ctx, resortID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	room := &entity.Room{
		BaseNoDelete:  entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ResortID:      resort.ID,
		RoomNumber:    strings.TrimSpace(req.RoomNumber),
		Capacity:      req.Capacity,
		PricePerNight: price,
	}

	if err := s.repo.Room.Create(ctx, room); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperror.Newf(apperror.KindConflict, "room %s already exists in this resort", room.RoomNumber)
		}
		return nil, fmt.Errorf("create room: %w", err)
	}
	s.cache.Invalidate(ctx, resort.ID)

	s.log.Info("Room created",
		zap.String("resort_id", resort.ID.String()),
		zap.String("room_id", room.ID.String()),
		zap.String("room_number", room.RoomNumber),
	)

	resp := response.RoomToResponse(room)
	return &resp, nil
}

func (s *resortService) GetRooms(ctx context.Context, resortID string) ([]response.RoomResponse, error) {
	resort, err := s.findResort(ctx, resortID)
	if err != nil {
		return nil, err
	}

	rooms, err := s.repo.Room.FindByResortID(ctx, resort.ID)
	if err != nil {
		return nil, fmt.Errorf("get rooms: %w", err)
	}
	return response.RoomsToResponse(rooms), nil
}

// UpdateRoom changes a room's number, capacity or price. Confirmed bookings
// keep the amount they were charged.
func (s *resortService) UpdateRoom(ctx context.Context, resortID, roomID string, req *request.UpdateRoomRequest) (*response.RoomResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	price, err := parsePrice(req.PricePerNight)
	if err != nil {
		return nil, err
	}

	resort, err := s.findResort(ctx, resortID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(roomID, errRoomNotFound)
	if err != nil {
		return nil, err
	}

	room, err := s.repo.Room.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	if room == nil || room.ResortID != resort.ID {
		return nil, errRoomNotFound
	}

	room.RoomNumber = strings.TrimSpace(req.RoomNumber)
	room.Capacity = req.Capacity
	room.PricePerNight = price
	room.UpdatedAt = time.Now()

	if err := s.repo.Room.Update(ctx, room); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperror.Newf(apperror.KindConflict, "room %s already exists in this resort", room.RoomNumber)
		}
		return nil, fmt.Errorf("update room: %w", err)
	}
	s.cache.Invalidate(ctx, resort.ID)

	s.log.Info("Room updated", zap.String("room_id", room.ID.String()))

	resp := response.RoomToResponse(room)
	return &resp, nil
}

func (s *resortService) findResort(ctx context.Context, resortID string) (*entity.Resort, error) {
	id, err := parseID(resortID, errResortNotFound)
	if err != nil {
		return nil, err
	}

	resort, err := s.repo.Resort.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to find resort", zap.Error(err), zap.String("resort_id", resortID))
		return nil, fmt.Errorf("find resort: %w", err)
	}
	if resort == nil {
		return nil, errResortNotFound
	}
	return resort, nil
}

func parsePrice(raw string) (int64, error) {
	price, err := utils.ParseAmount(raw)
	if err != nil {
		return 0, apperror.Validation(map[string]string{"price_per_night": "Must be a non-negative amount with at most two decimals"})
	}
	return price, nil
}
