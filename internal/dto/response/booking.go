package response

import (
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/utils"
)

type BookingResponse struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	ResortID    string               `json:"resort_id"`
	ResortName  string               `json:"resort_name,omitempty"`
	CheckIn     string               `json:"check_in"`
	CheckOut    string               `json:"check_out"`
	Nights      int                  `json:"nights"`
	GuestCount  int                  `json:"guest_count"`
	TotalAmount string               `json:"total_amount"`
	Currency    string               `json:"currency"`
	Status      entity.BookingStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	CancelledAt *time.Time           `json:"cancelled_at,omitempty"`
}

type BookedRoomResponse struct {
	RoomID     string               `json:"room_id"`
	RoomNumber string               `json:"room_number,omitempty"`
	Capacity   int                  `json:"capacity,omitempty"`
	Status     entity.BookingStatus `json:"status"`
}

type BookingDetailResponse struct {
	BookingResponse
	Rooms   []BookedRoomResponse `json:"rooms"`
	Guests  []GuestResponse      `json:"guests"`
	Payment *PaymentResponse     `json:"payment,omitempty"`
}

func BookingToResponse(b *entity.FinalBooking, resortName string) BookingResponse {
	return BookingResponse{
		ID:          b.ID.String(),
		UserID:      b.UserID.String(),
		ResortID:    b.ResortID.String(),
		ResortName:  resortName,
		CheckIn:     b.CheckIn.Format(utils.DateLayout),
		CheckOut:    b.CheckOut.Format(utils.DateLayout),
		Nights:      b.Range().Nights(),
		GuestCount:  b.GuestCount,
		TotalAmount: utils.FormatAmount(b.TotalAmount),
		Currency:    b.Currency,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		CancelledAt: b.CancelledAt,
	}
}

func BookingGuestsToResponse(guests []*entity.BookingGuest) []GuestResponse {
	out := make([]GuestResponse, 0, len(guests))
	for _, g := range guests {
		out = append(out, GuestResponse{Name: g.Name, Age: g.Age, RoomID: g.RoomID.String()})
	}
	return out
}
