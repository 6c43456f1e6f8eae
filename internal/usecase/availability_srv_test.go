package usecase

import (
	"context"
	"fmt"
	"testing"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/dto/request"
	"resort-booking/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func room(id string, capacity int, price int64) *entity.Room {
	return &entity.Room{
		BaseNoDelete:  entity.BaseNoDelete{ID: uuid.MustParse(id)},
		RoomNumber:    id[:2],
		Capacity:      capacity,
		PricePerNight: price,
	}
}

func TestSuggestRooms(t *testing.T) {
	a := room("0a000000-0000-0000-0000-000000000000", 2, 100)
	b := room("0b000000-0000-0000-0000-000000000000", 2, 100)
	c := room("0c000000-0000-0000-0000-000000000000", 4, 300)
	d := room("0d000000-0000-0000-0000-000000000000", 1, 50)
	all := []*entity.Room{d, b, a, c}

	tests := []struct {
		name   string
		guests int
		want   []*entity.Room
	}{
		{"single largest room suffices", 3, []*entity.Room{c}},
		{"largest then lowest id", 5, []*entity.Room{c, a}},
		{"needs three", 8, []*entity.Room{c, a, b}},
		{"everything", 9, []*entity.Room{c, a, b, d}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SuggestRooms(all, tt.guests)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("insufficient capacity", func(t *testing.T) {
		_, err := SuggestRooms(all, 10)
		assert.ErrorIs(t, err, apperror.ErrInsufficientCapacity)
	})

	t.Run("input order is kept", func(t *testing.T) {
		_, _ = SuggestRooms(all, 5)
		assert.Equal(t, []*entity.Room{d, b, a, c}, all)
	})
}

func TestFindAvailableRooms_ExcludesOverlappingConfirmedBookings(t *testing.T) {
	f := newFixture(t)
	stay := f.stay()

	// D1 overlaps, D2 ends the day the stay begins
	f.store.SeedConfirmedBooking(f.bob.ID, f.resort.ID,
		entity.NewDateRange(stay.CheckIn.AddDate(0, 0, 1), stay.CheckOut.AddDate(0, 0, 2)), f.d1.ID)
	f.store.SeedConfirmedBooking(f.bob.ID, f.resort.ID,
		entity.NewDateRange(stay.CheckIn.AddDate(0, 0, -3), stay.CheckIn), f.d2.ID)

	rooms, err := f.svc.Availability.FindAvailableRooms(context.Background(), f.resort, stay)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{f.d2.ID, f.s1.ID}, ids(rooms))
}

func TestFindAvailableRooms_OrderedByCapacityThenPrice(t *testing.T) {
	f := newFixture(t)
	resort, _ := f.store.SeedResort("Palm Grove", "Kovalam, Kerala",
		entity.Room{RoomNumber: "big", Capacity: 4, PricePerNight: 100},
		entity.Room{RoomNumber: "pricey", Capacity: 2, PricePerNight: 900},
		entity.Room{RoomNumber: "cheap", Capacity: 2, PricePerNight: 200},
	)

	rooms, err := f.svc.Availability.FindAvailableRooms(context.Background(), resort, f.stay())
	require.NoError(t, err)

	numbers := make([]string, len(rooms))
	for i, r := range rooms {
		numbers[i] = r.RoomNumber
	}
	assert.Equal(t, []string{"cheap", "pricey", "big"}, numbers)
}

func TestFindAvailableRooms_CancelledBookingsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	booking := f.store.SeedConfirmedBooking(f.bob.ID, f.resort.ID, f.stay(), f.s1.ID)

	_, err := f.svc.Booking.CancelBooking(context.Background(), booking.ID.String())
	require.NoError(t, err)

	rooms, err := f.svc.Availability.FindAvailableRooms(context.Background(), f.resort, f.stay())
	require.NoError(t, err)
	assert.Len(t, rooms, 3)
}

func TestFindAvailableRooms_UsesCache(t *testing.T) {
	f := newFixture(t)
	cache := &mockCache{}
	svc := NewAvailabilityService(f.store.Repository(), cache, f.clock.Now, zap.NewNop())

	cached := []*entity.Room{f.s1}
	cache.On("Get", mock.Anything, f.resort.ID, f.stay()).Return(cached, int64(4), true).Once()

	rooms, err := svc.FindAvailableRooms(context.Background(), f.resort, f.stay())
	require.NoError(t, err)
	assert.Equal(t, cached, rooms)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFindAvailableRooms_FillsCacheOnMiss(t *testing.T) {
	f := newFixture(t)
	cache := &mockCache{}
	svc := NewAvailabilityService(f.store.Repository(), cache, f.clock.Now, zap.NewNop())

	cache.On("Get", mock.Anything, f.resort.ID, f.stay()).Return(nil, int64(7), false).Once()
	cache.On("Set", mock.Anything, f.resort.ID, int64(7), f.stay(), mock.Anything).Return().Once()

	rooms, err := svc.FindAvailableRooms(context.Background(), f.resort, f.stay())
	require.NoError(t, err)
	assert.Len(t, rooms, 3)
	cache.AssertExpectations(t)
}

// versionedCache keeps entries per resort version in memory. beforeSet runs
// between the database read and the write back.
type versionedCache struct {
	versions  map[uuid.UUID]int64
	entries   map[string][]*entity.Room
	beforeSet func()
}

func newVersionedCache() *versionedCache {
	return &versionedCache{versions: map[uuid.UUID]int64{}, entries: map[string][]*entity.Room{}}
}

func (c *versionedCache) key(resortID uuid.UUID, version int64, stay entity.DateRange) string {
	return fmt.Sprintf("%s:%d:%s", resortID, version, stay)
}

func (c *versionedCache) Get(_ context.Context, resortID uuid.UUID, stay entity.DateRange) ([]*entity.Room, int64, bool) {
	version := c.versions[resortID]
	rooms, ok := c.entries[c.key(resortID, version, stay)]
	return rooms, version, ok
}

func (c *versionedCache) Set(_ context.Context, resortID uuid.UUID, version int64, stay entity.DateRange, rooms []*entity.Room) {
	if c.beforeSet != nil {
		c.beforeSet()
		c.beforeSet = nil
	}
	c.entries[c.key(resortID, version, stay)] = rooms
}

func (c *versionedCache) Invalidate(_ context.Context, resortID uuid.UUID) {
	c.versions[resortID]++
}

func TestFindAvailableRooms_ResultRacingABookingIsNotServed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := newVersionedCache()
	svc := NewAvailabilityService(f.store.Repository(), cache, f.clock.Now, zap.NewNop())

	// S1 is booked and the cache invalidated after the rooms were read but
	// before they are written back.
	cache.beforeSet = func() {
		f.store.SeedConfirmedBooking(f.bob.ID, f.resort.ID, f.stay(), f.s1.ID)
		cache.Invalidate(ctx, f.resort.ID)
	}

	rooms, err := svc.FindAvailableRooms(ctx, f.resort, f.stay())
	require.NoError(t, err)
	assert.Len(t, rooms, 3)

	rooms, err = svc.FindAvailableRooms(ctx, f.resort, f.stay())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	for _, room := range rooms {
		assert.NotEqual(t, f.s1.ID, room.ID)
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("suggests a combination", func(t *testing.T) {
		resp, err := f.svc.Availability.CheckAvailability(ctx, f.resort.ID.String(), &request.AvailabilityRequest{
			CheckIn: stayIn, CheckOut: stayOut, Guests: 5,
		})
		require.NoError(t, err)

		assert.True(t, resp.Sufficient)
		assert.Equal(t, 8, resp.TotalCapacity)
		assert.Equal(t, 3, resp.Nights)
		require.Len(t, resp.Suggested, 2)
		assert.Equal(t, "S1", resp.Suggested[0].RoomNumber)
		// (250.00 + 150.00) x 3 nights
		assert.Equal(t, "1200.00", resp.SuggestedTotal)
	})

	t.Run("not enough rooms", func(t *testing.T) {
		resp, err := f.svc.Availability.CheckAvailability(ctx, f.resort.ID.String(), &request.AvailabilityRequest{
			CheckIn: stayIn, CheckOut: stayOut, Guests: 9,
		})
		require.NoError(t, err)
		assert.False(t, resp.Sufficient)
		assert.Empty(t, resp.Suggested)
	})

	t.Run("check_out before check_in", func(t *testing.T) {
		_, err := f.svc.Availability.CheckAvailability(ctx, f.resort.ID.String(), &request.AvailabilityRequest{
			CheckIn: stayOut, CheckOut: stayIn, Guests: 1,
		})
		assert.ErrorIs(t, err, apperror.ErrInvalidDateRange)
	})

	t.Run("same day", func(t *testing.T) {
		_, err := f.svc.Availability.CheckAvailability(ctx, f.resort.ID.String(), &request.AvailabilityRequest{
			CheckIn: stayIn, CheckOut: stayIn, Guests: 1,
		})
		assert.ErrorIs(t, err, apperror.ErrInvalidDateRange)
	})

	t.Run("in the past", func(t *testing.T) {
		_, err := f.svc.Availability.CheckAvailability(ctx, f.resort.ID.String(), &request.AvailabilityRequest{
			CheckIn: "2026-11-20", CheckOut: "2026-11-22", Guests: 1,
		})
		assert.Equal(t, apperror.KindInvalidDateRange, apperror.KindOf(err))
	})

	t.Run("unknown resort", func(t *testing.T) {
		_, err := f.svc.Availability.CheckAvailability(ctx, uuid.NewString(), &request.AvailabilityRequest{
			CheckIn: stayIn, CheckOut: stayOut, Guests: 1,
		})
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	})
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.store.SeedResort("Tiny Huts", "Anjuna, Goa", entity.Room{RoomNumber: "H1", Capacity: 2, PricePerNight: 5000})
	f.store.SeedResort("Hill View", "Munnar, Kerala", entity.Room{RoomNumber: "V1", Capacity: 6, PricePerNight: 9000})

	results, err := f.svc.Availability.Search(context.Background(), &request.SearchRoomsRequest{
		Location: "goa", CheckIn: stayIn, CheckOut: stayOut, Guests: 4,
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "Coral Bay", results[0].Resort.Name)
	assert.True(t, results[0].Availability.Sufficient)
}

func ids(rooms []*entity.Room) []uuid.UUID {
	out := make([]uuid.UUID, len(rooms))
	for i, r := range rooms {
		out[i] = r.ID
	}
	return out
}
