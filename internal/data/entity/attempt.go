package entity

import (
	"time"

	"github.com/google/uuid"
)

type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "pending"
	AttemptStatusExpired   AttemptStatus = "expired"
	AttemptStatusFailed    AttemptStatus = "failed"
	AttemptStatusCompleted AttemptStatus = "completed"
)

// BookingAttempt is a time-boxed reservation in progress. Once it leaves
// pending it never changes again.
type BookingAttempt struct {
	BaseNoDelete
	UserID     uuid.UUID     `db:"user_id"`
	ResortID   uuid.UUID     `db:"resort_id"`
	CheckIn    time.Time     `db:"check_in"`
	CheckOut   time.Time     `db:"check_out"`
	GuestCount int           `db:"guest_count"`
	Status     AttemptStatus `db:"status"`
	ExpiresAt  time.Time     `db:"expires_at"`
}

func (a *BookingAttempt) Range() DateRange {
	return NewDateRange(a.CheckIn, a.CheckOut)
}

func (a *BookingAttempt) IsPending() bool {
	return a.Status == AttemptStatusPending
}

// IsDue reports whether a pending attempt has passed its expiry.
func (a *BookingAttempt) IsDue(now time.Time) bool {
	return a.Status == AttemptStatusPending && a.ExpiresAt.Before(now)
}

type AttemptRoom struct {
	AttemptID uuid.UUID `db:"attempt_id"`
	RoomID    uuid.UUID `db:"room_id"`
}

type AttemptGuest struct {
	BaseSimple
	AttemptID uuid.UUID `db:"attempt_id"`
	RoomID    uuid.UUID `db:"room_id"`
	Name      string    `db:"name"`
	Age       int       `db:"age"`
	Position  int       `db:"position"`
}
