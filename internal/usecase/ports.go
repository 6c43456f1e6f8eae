package usecase

import (
	"context"

	"resort-booking/internal/data/entity"

	"github.com/google/uuid"
)

// BookingNotifier is told about committed booking changes. Calls must not
// block the request; delivery is best effort.
type BookingNotifier interface {
	BookingConfirmed(ctx context.Context, bookingID uuid.UUID)
	BookingCancelled(ctx context.Context, bookingID uuid.UUID)
}

// AvailabilityCache keeps oracle results per resort and stay. It is an index
// only: a miss or an error means "ask the database".
//
// Get also reports the resort's cache version it looked at. A result read
// from the database after a miss is stored with Set under that version, so a
// result that raced an Invalidate is written where nobody reads it.
type AvailabilityCache interface {
	Get(ctx context.Context, resortID uuid.UUID, stay entity.DateRange) (rooms []*entity.Room, version int64, hit bool)
	Set(ctx context.Context, resortID uuid.UUID, version int64, stay entity.DateRange, rooms []*entity.Room)
	Invalidate(ctx context.Context, resortID uuid.UUID)
}

type NopNotifier struct{}

func (NopNotifier) BookingConfirmed(context.Context, uuid.UUID) {}
func (NopNotifier) BookingCancelled(context.Context, uuid.UUID) {}

type NopCache struct{}

func (NopCache) Get(context.Context, uuid.UUID, entity.DateRange) ([]*entity.Room, int64, bool) {
	return nil, 0, false
}
func (NopCache) Set(context.Context, uuid.UUID, int64, entity.DateRange, []*entity.Room) {}
func (NopCache) Invalidate(context.Context, uuid.UUID)                                   {}
