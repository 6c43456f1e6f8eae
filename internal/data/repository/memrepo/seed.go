package memrepo

import (
	"fmt"
	"time"

	"resort-booking/internal/data/entity"

	"github.com/google/uuid"
)

// SeedResort adds a resort with the given rooms and returns it with its rooms
// in argument order.
func (s *Store) SeedResort(name, location string, rooms ...entity.Room) (*entity.Resort, []*entity.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	resort := &entity.Resort{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:     name,
		Location: location,
	}
	s.state.resorts[resort.ID] = resort

	out := make([]*entity.Room, 0, len(rooms))
	for i := range rooms {
		room := rooms[i]
		if room.ID == uuid.Nil {
			room.ID = uuid.New()
		}
		if room.RoomNumber == "" {
			room.RoomNumber = fmt.Sprintf("R%d", i+1)
		}
		room.ResortID = resort.ID
		room.CreatedAt = now
		room.UpdatedAt = now
		s.state.rooms[room.ID] = &room
		out = append(out, copyOf(&room))
	}

	return copyOf(resort), out
}

// SeedUser adds an active user.
func (s *Store) SeedUser(phone string, role entity.UserRole, email *string) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	user := &entity.User{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Phone:    phone,
		Role:     role,
		Email:    email,
		IsActive: true,
	}
	s.state.users[user.ID] = user
	return copyOf(user)
}

// SeedConfirmedBooking books roomIDs for stay directly, bypassing the attempt
// flow.
func (s *Store) SeedConfirmedBooking(userID, resortID uuid.UUID, stay entity.DateRange, roomIDs ...uuid.UUID) *entity.FinalBooking {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	booking := &entity.FinalBooking{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		UserID:       userID,
		ResortID:     resortID,
		AttemptID:    uuid.New(),
		PaymentID:    uuid.New(),
		CheckIn:      stay.CheckIn,
		CheckOut:     stay.CheckOut,
		GuestCount:   1,
		Currency:     "INR",
		Status:       entity.BookingStatusConfirmed,
	}
	s.state.bookings[booking.ID] = booking
	for _, roomID := range roomIDs {
		s.state.bookingRooms[booking.ID] = append(s.state.bookingRooms[booking.ID], &entity.BookingRoom{
			ID:        uuid.New(),
			BookingID: booking.ID,
			RoomID:    roomID,
			Stay:      stay,
			Status:    entity.BookingStatusConfirmed,
		})
	}
	return copyOf(booking)
}

// ExpireAt rewrites an attempt's expiry, for driving TTL paths without
// waiting.
func (s *Store) ExpireAt(attemptID uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.state.attempts[attemptID]; ok {
		a.ExpiresAt = at
	}
}
