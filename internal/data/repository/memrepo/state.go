package memrepo

import (
	"resort-booking/internal/data/entity"

	"github.com/google/uuid"
)

type state struct {
	users         map[uuid.UUID]*entity.User
	otps          map[uuid.UUID]*entity.OTP
	sessions      map[uuid.UUID]*entity.Session // by token
	resorts       map[uuid.UUID]*entity.Resort
	rooms         map[uuid.UUID]*entity.Room
	attempts      map[uuid.UUID]*entity.BookingAttempt
	attemptRooms  map[uuid.UUID][]uuid.UUID
	attemptGuests map[uuid.UUID][]*entity.AttemptGuest
	payments      map[uuid.UUID]*entity.Payment
	bookings      map[uuid.UUID]*entity.FinalBooking
	bookingRooms  map[uuid.UUID][]*entity.BookingRoom
	bookingGuests map[uuid.UUID][]*entity.BookingGuest
	webhookEvents map[string]*entity.WebhookEvent
}

func newState() *state {
	return &state{
		users:         map[uuid.UUID]*entity.User{},
		otps:          map[uuid.UUID]*entity.OTP{},
		sessions:      map[uuid.UUID]*entity.Session{},
		resorts:       map[uuid.UUID]*entity.Resort{},
		rooms:         map[uuid.UUID]*entity.Room{},
		attempts:      map[uuid.UUID]*entity.BookingAttempt{},
		attemptRooms:  map[uuid.UUID][]uuid.UUID{},
		attemptGuests: map[uuid.UUID][]*entity.AttemptGuest{},
		payments:      map[uuid.UUID]*entity.Payment{},
		bookings:      map[uuid.UUID]*entity.FinalBooking{},
		bookingRooms:  map[uuid.UUID][]*entity.BookingRoom{},
		bookingGuests: map[uuid.UUID][]*entity.BookingGuest{},
		webhookEvents: map[string]*entity.WebhookEvent{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:         cloneMap(s.users),
		otps:          cloneMap(s.otps),
		sessions:      cloneMap(s.sessions),
		resorts:       cloneMap(s.resorts),
		rooms:         cloneMap(s.rooms),
		attempts:      cloneMap(s.attempts),
		attemptRooms:  make(map[uuid.UUID][]uuid.UUID, len(s.attemptRooms)),
		attemptGuests: make(map[uuid.UUID][]*entity.AttemptGuest, len(s.attemptGuests)),
		payments:      cloneMap(s.payments),
		bookings:      cloneMap(s.bookings),
		bookingRooms:  make(map[uuid.UUID][]*entity.BookingRoom, len(s.bookingRooms)),
		bookingGuests: make(map[uuid.UUID][]*entity.BookingGuest, len(s.bookingGuests)),
		webhookEvents: cloneMap(s.webhookEvents),
	}
	for k, ids := range s.attemptRooms {
		c.attemptRooms[k] = append([]uuid.UUID(nil), ids...)
	}
	for k, guests := range s.attemptGuests {
		c.attemptGuests[k] = copyAll(guests)
	}
	for k, rooms := range s.bookingRooms {
		c.bookingRooms[k] = copyAll(rooms)
	}
	for k, guests := range s.bookingGuests {
		c.bookingGuests[k] = copyAll(guests)
	}
	return c
}

func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyAll[T any](in []*T) []*T {
	if in == nil {
		return nil
	}
	out := make([]*T, len(in))
	for i, v := range in {
		out[i] = copyOf(v)
	}
	return out
}

func cloneMap[K comparable, T any](in map[K]*T) map[K]*T {
	out := make(map[K]*T, len(in))
	for k, v := range in {
		out[k] = copyOf(v)
	}
	return out
}
