package cache

import (
	"context"
	"testing"
	"time"

	"resort-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func stay() entity.DateRange {
	return entity.NewDateRange(
		time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 13, 0, 0, 0, 0, time.UTC),
	)
}

func TestEntryKey_ChangesWithVersion(t *testing.T) {
	resortID := uuid.MustParse("6f1c2b7e-0000-4000-8000-000000000001")

	assert.Equal(t,
		"availability:6f1c2b7e-0000-4000-8000-000000000001:v0:2026-12-10:2026-12-13",
		entryKey(resortID, 0, stay()))
	assert.NotEqual(t, entryKey(resortID, 0, stay()), entryKey(resortID, 1, stay()))
	assert.Equal(t, "availability:6f1c2b7e-0000-4000-8000-000000000001:version", versionKey(resortID))
}

func TestEncodeDecodeRooms(t *testing.T) {
	rooms := []*entity.Room{
		{BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()}, ResortID: uuid.New(), RoomNumber: "D1", Capacity: 2, PricePerNight: 15000},
		{BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()}, ResortID: uuid.New(), RoomNumber: "S1", Capacity: 4, PricePerNight: 25000},
	}

	raw, err := encodeRooms(rooms)
	require.NoError(t, err)
	got, err := decodeRooms(raw)
	require.NoError(t, err)

	assert.Equal(t, rooms, got)
}

func TestDecodeRooms_Garbage(t *testing.T) {
	_, err := decodeRooms([]byte("not json"))
	assert.Error(t, err)
}

// An unreachable Redis behaves as a permanent miss.
func TestAvailability_UnreachableRedisIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	c := NewAvailability(rdb, time.Minute, zap.NewNop())
	ctx := context.Background()
	resortID := uuid.New()

	c.Set(ctx, resortID, 0, stay(), []*entity.Room{{RoomNumber: "D1"}})
	c.Invalidate(ctx, resortID)

	rooms, version, ok := c.Get(ctx, resortID, stay())
	assert.False(t, ok)
	assert.Nil(t, rooms)
	assert.Equal(t, noVersion, version)
}
