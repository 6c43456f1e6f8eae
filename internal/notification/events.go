package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is the message published for a committed booking change.
type BookingEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	BookingID uuid.UUID `json:"booking_id"`
}

func newBookingEvent(eventType string, bookingID uuid.UUID) BookingEvent {
	return BookingEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		BookingID: bookingID,
	}
}
