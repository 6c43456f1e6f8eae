package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// FinalBooking is the confirmed outcome of a paid attempt. Rooms and guests
// are frozen copies taken at finalization.
type FinalBooking struct {
	BaseNoDelete
	UserID      uuid.UUID     `db:"user_id"`
	ResortID    uuid.UUID     `db:"resort_id"`
	AttemptID   uuid.UUID     `db:"attempt_id"`
	PaymentID   uuid.UUID     `db:"payment_id"`
	CheckIn     time.Time     `db:"check_in"`
	CheckOut    time.Time     `db:"check_out"`
	GuestCount  int           `db:"guest_count"`
	TotalAmount int64         `db:"total_amount"`
	Currency    string        `db:"currency"`
	Status      BookingStatus `db:"status"`
	CancelledAt *time.Time    `db:"cancelled_at"`
}

func (b *FinalBooking) Range() DateRange {
	return NewDateRange(b.CheckIn, b.CheckOut)
}

type BookingRoom struct {
	ID        uuid.UUID     `db:"id"`
	BookingID uuid.UUID     `db:"booking_id"`
	RoomID    uuid.UUID     `db:"room_id"`
	Stay      DateRange     `db:"stay"`
	Status    BookingStatus `db:"status"`
}

type BookingGuest struct {
	ID        uuid.UUID `db:"id"`
	BookingID uuid.UUID `db:"booking_id"`
	RoomID    uuid.UUID `db:"room_id"`
	Name      string    `db:"name"`
	Age       int       `db:"age"`
	Position  int       `db:"position"`
}
