package request

type CreateResortRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=150"`
	Location string `json:"location" validate:"required,min=2,max=150"`
	Address  string `json:"address" validate:"max=500"`
}

type UpdateResortRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=150"`
	Location string `json:"location" validate:"required,min=2,max=150"`
	Address  string `json:"address" validate:"max=500"`
}

// Prices are decimal strings in the configured currency, e.g. "150.00".
type CreateRoomRequest struct {
	RoomNumber    string `json:"room_number" validate:"required,max=20"`
	Capacity      int    `json:"capacity" validate:"required,gte=1,lte=20"`
	PricePerNight string `json:"price_per_night" validate:"required"`
}

type UpdateRoomRequest struct {
	RoomNumber    string `json:"room_number" validate:"required,max=20"`
	Capacity      int    `json:"capacity" validate:"required,gte=1,lte=20"`
	PricePerNight string `json:"price_per_night" validate:"required"`
}

type AvailabilityRequest struct {
	CheckIn  string `json:"check_in" validate:"required,isodate"`
	CheckOut string `json:"check_out" validate:"required,isodate"`
	Guests   int    `json:"guests" validate:"required,gte=1,lte=50"`
}

type SearchRoomsRequest struct {
	Location string `json:"location" validate:"required,min=2,max=150"`
	CheckIn  string `json:"check_in" validate:"required,isodate"`
	CheckOut string `json:"check_out" validate:"required,isodate"`
	Guests   int    `json:"guests" validate:"required,gte=1,lte=50"`
}
