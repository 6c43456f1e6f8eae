package response

import (
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/utils"
)

type GuestResponse struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	RoomID string `json:"room_id"`
}

type AttemptResponse struct {
	ID         string               `json:"id"`
	ResortID   string               `json:"resort_id"`
	CheckIn    string               `json:"check_in"`
	CheckOut   string               `json:"check_out"`
	Nights     int                  `json:"nights"`
	GuestCount int                  `json:"guest_count"`
	Status     entity.AttemptStatus `json:"status"`
	ExpiresAt  time.Time            `json:"expires_at"`
	Rooms      []RoomResponse       `json:"rooms"`
	Guests     []GuestResponse      `json:"guests"`
	Amount     string               `json:"amount"`
	Currency   string               `json:"currency"`
	Payment    *PaymentResponse     `json:"payment,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

func AttemptToResponse(attempt *entity.BookingAttempt, rooms []*entity.Room, guests []*entity.AttemptGuest, amount int64, currency string) AttemptResponse {
	resp := AttemptResponse{
		ID:         attempt.ID.String(),
		ResortID:   attempt.ResortID.String(),
		CheckIn:    attempt.CheckIn.Format(utils.DateLayout),
		CheckOut:   attempt.CheckOut.Format(utils.DateLayout),
		Nights:     attempt.Range().Nights(),
		GuestCount: attempt.GuestCount,
		Status:     attempt.Status,
		ExpiresAt:  attempt.ExpiresAt,
		Rooms:      RoomsToResponse(rooms),
		Guests:     make([]GuestResponse, 0, len(guests)),
		Amount:     utils.FormatAmount(amount),
		Currency:   currency,
		CreatedAt:  attempt.CreatedAt,
	}

	for _, g := range guests {
		resp.Guests = append(resp.Guests, GuestResponse{Name: g.Name, Age: g.Age, RoomID: g.RoomID.String()})
	}

	return resp
}
