package request

type CreateAttemptRequest struct {
	ResortID   string `json:"resort_id" validate:"required,uuid"`
	CheckIn    string `json:"check_in" validate:"required,isodate"`
	CheckOut   string `json:"check_out" validate:"required,isodate"`
	GuestCount int    `json:"guest_count" validate:"required,gte=1,lte=50"`
}

type SelectRoomsRequest struct {
	RoomIDs []string `json:"room_ids" validate:"required,min=1,max=20,unique,dive,uuid"`
}

type GuestRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	Age    int    `json:"age" validate:"gte=0,lte=120"`
	RoomID string `json:"room_id" validate:"required,uuid"`
}

type AddGuestsRequest struct {
	Guests []GuestRequest `json:"guests" validate:"required,min=1,max=50,dive"`
}
