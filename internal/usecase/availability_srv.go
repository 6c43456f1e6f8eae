package usecase

import (
	"context"
	"fmt"
	"sort"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"
	"resort-booking/internal/dto/request"
	"resort-booking/internal/dto/response"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type AvailabilityService interface {
	// FindAvailableRooms returns the rooms of a resort with no confirmed
	// booking overlapping stay, by capacity, price then id. It takes no locks.
	FindAvailableRooms(ctx context.Context, resort *entity.Resort, stay entity.DateRange) ([]*entity.Room, error)
	CheckAvailability(ctx context.Context, resortID string, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error)
	Search(ctx context.Context, req *request.SearchRoomsRequest) ([]response.SearchResultResponse, error)
}

type availabilityService struct {
	repo  *repository.Repository
	cache AvailabilityCache
	now   Clock
	log   *zap.Logger
}

func NewAvailabilityService(repo *repository.Repository, cache AvailabilityCache, now Clock, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo:  repo,
		cache: cache,
		now:   now,
		log:   log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) FindAvailableRooms(ctx context.Context, resort *entity.Resort, stay entity.DateRange) ([]*entity.Room, error) {
	if !stay.Valid() {
		return nil, apperror.ErrInvalidDateRange
	}

	ctx, span := utils.StartSpan(ctx, "availability.find_available_rooms")
	defer span.End()
	span.SetAttributes(attribute.String("resort_id", resort.ID.String()))

	cached, version, hit := s.cache.Get(ctx, resort.ID, stay)
	if hit {
		utils.AvailabilityCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	utils.AvailabilityCacheTotal.WithLabelValues("miss").Inc()

	rooms, err := s.repo.Room.FindAvailable(ctx, resort.ID, stay)
	if err != nil {
		s.log.Error("Failed to query available rooms", zap.Error(err), zap.String("resort_id", resort.ID.String()))
		return nil, fmt.Errorf("find available rooms: %w", err)
	}

	s.cache.Set(ctx, resort.ID, version, stay, rooms)
	return rooms, nil
}

func (s *availabilityService) CheckAvailability(ctx context.Context, resortID string, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	id, err := parseID(resortID, errResortNotFound)
	if err != nil {
		return nil, err
	}

	stay, err := parseStay(req.CheckIn, req.CheckOut, s.now())
	if err != nil {
		return nil, err
	}

	resort, err := s.repo.Resort.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find resort: %w", err)
	}
	if resort == nil {
		return nil, errResortNotFound
	}

	rooms, err := s.FindAvailableRooms(ctx, resort, stay)
	if err != nil {
		return nil, err
	}

	resp := availabilityResponse(resort, stay, req.Guests, rooms)
	return &resp, nil
}

// Search lists resorts whose location matches and whose free rooms can hold
// the party together.
func (s *availabilityService) Search(ctx context.Context, req *request.SearchRoomsRequest) ([]response.SearchResultResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	stay, err := parseStay(req.CheckIn, req.CheckOut, s.now())
	if err != nil {
		return nil, err
	}

	ctx, span := utils.StartSpan(ctx, "availability.search")
	defer span.End()

	resorts, err := s.repo.Resort.SearchByLocation(ctx, req.Location)
	if err != nil {
		s.log.Error("Failed to search resorts", zap.Error(err), zap.String("location", req.Location))
		return nil, fmt.Errorf("search resorts: %w", err)
	}

	results := make([]response.SearchResultResponse, 0, len(resorts))
	for _, resort := range resorts {
		rooms, err := s.FindAvailableRooms(ctx, resort, stay)
		if err != nil {
			return nil, err
		}
		if entity.TotalCapacity(rooms) < req.Guests {
			continue
		}
		results = append(results, response.SearchResultResponse{
			Resort:       response.ResortToResponse(resort),
			Availability: availabilityResponse(resort, stay, req.Guests, rooms),
		})
	}

	s.log.Debug("Room search",
		zap.String("location", req.Location),
		zap.Int("resorts", len(resorts)),
		zap.Int("matches", len(results)),
	)
	return results, nil
}

func availabilityResponse(resort *entity.Resort, stay entity.DateRange, guests int, rooms []*entity.Room) response.AvailabilityResponse {
	resp := response.AvailabilityResponse{
		ResortID:      resort.ID.String(),
		CheckIn:       stay.CheckIn.Format(utils.DateLayout),
		CheckOut:      stay.CheckOut.Format(utils.DateLayout),
		Nights:        stay.Nights(),
		Guests:        guests,
		Rooms:         response.RoomsToResponse(rooms),
		TotalCapacity: entity.TotalCapacity(rooms),
	}

	if suggested, err := SuggestRooms(rooms, guests); err == nil {
		resp.Sufficient = true
		resp.Suggested = response.RoomsToResponse(suggested)
		resp.SuggestedTotal = utils.FormatAmount(stayAmount(suggested, stay))
	}
	return resp
}

// SuggestRooms picks rooms greedily, largest first (ties by id), until they
// hold guests. It is a heuristic and may not find the cheapest or smallest
// combination.
func SuggestRooms(rooms []*entity.Room, guests int) ([]*entity.Room, error) {
	if entity.TotalCapacity(rooms) < guests {
		return nil, apperror.ErrInsufficientCapacity
	}

	ordered := make([]*entity.Room, len(rooms))
	copy(ordered, rooms)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Capacity != ordered[j].Capacity {
			return ordered[i].Capacity > ordered[j].Capacity
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	var (
		chosen []*entity.Room
		total  int
	)
	for _, room := range ordered {
		if total >= guests {
			break
		}
		chosen = append(chosen, room)
		total += room.Capacity
	}
	return chosen, nil
}
