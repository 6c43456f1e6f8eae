package response

import (
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/utils"
)

type ResortResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ResortDetailResponse struct {
	ResortResponse
	Rooms []RoomResponse `json:"rooms"`
}

type RoomResponse struct {
	ID            string `json:"id"`
	ResortID      string `json:"resort_id"`
	RoomNumber    string `json:"room_number"`
	Capacity      int    `json:"capacity"`
	PricePerNight string `json:"price_per_night"`
}

// AvailabilityResponse is the oracle answer for one resort and stay, with a
// first-fit suggestion when the free rooms can hold the party.
type AvailabilityResponse struct {
	ResortID       string         `json:"resort_id"`
	CheckIn        string         `json:"check_in"`
	CheckOut       string         `json:"check_out"`
	Nights         int            `json:"nights"`
	Guests         int            `json:"guests"`
	Rooms          []RoomResponse `json:"rooms"`
	TotalCapacity  int            `json:"total_capacity"`
	Sufficient     bool           `json:"sufficient"`
	Suggested      []RoomResponse `json:"suggested,omitempty"`
	SuggestedTotal string         `json:"suggested_total,omitempty"`
}

type SearchResultResponse struct {
	Resort       ResortResponse       `json:"resort"`
	Availability AvailabilityResponse `json:"availability"`
}

// Helper converters
func ResortToResponse(resort *entity.Resort) ResortResponse {
	return ResortResponse{
		ID:        resort.ID.String(),
		Name:      resort.Name,
		Location:  resort.Location,
		Address:   resort.Address,
		CreatedAt: resort.CreatedAt,
	}
}

func RoomToResponse(room *entity.Room) RoomResponse {
	return RoomResponse{
		ID:            room.ID.String(),
		ResortID:      room.ResortID.String(),
		RoomNumber:    room.RoomNumber,
		Capacity:      room.Capacity,
		PricePerNight: utils.FormatAmount(room.PricePerNight),
	}
}

func RoomsToResponse(rooms []*entity.Room) []RoomResponse {
	out := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, RoomToResponse(room))
	}
	return out
}
