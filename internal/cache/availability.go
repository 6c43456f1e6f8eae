// Package cache keeps availability answers in Redis. Entries are keyed by a
// per-resort version, so invalidation is one INCR and stale entries age out
// on their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix  = "availability"
	defaultTTL = 15 * time.Second
)

type Availability struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewAvailability(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Availability {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Availability{
		rdb: rdb,
		ttl: ttl,
		log: log.With(zap.String("component", "availability_cache")),
	}
}

type cachedRoom struct {
	ID            uuid.UUID `json:"id"`
	ResortID      uuid.UUID `json:"resort_id"`
	RoomNumber    string    `json:"room_number"`
	Capacity      int       `json:"capacity"`
	PricePerNight int64     `json:"price_per_night"`
}

// noVersion is reported when the version key could not be read; Set drops
// entries carrying it.
const noVersion int64 = -1

// Get returns the cached rooms and the version it read them under.
func (c *Availability) Get(ctx context.Context, resortID uuid.UUID, stay entity.DateRange) ([]*entity.Room, int64, bool) {
	version, err := c.version(ctx, resortID)
	if err != nil {
		c.log.Warn("Availability cache version lookup failed", zap.Error(err))
		return nil, noVersion, false
	}

	raw, err := c.rdb.Get(ctx, entryKey(resortID, version, stay)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Availability cache read failed", zap.Error(err))
		}
		return nil, version, false
	}

	rooms, err := decodeRooms(raw)
	if err != nil {
		c.log.Warn("Dropping unreadable availability entry", zap.Error(err))
		return nil, version, false
	}
	return rooms, version, true
}

// Set stores rooms under the version a preceding Get reported. If the resort
// was invalidated in between, the entry lands under a retired version.
func (c *Availability) Set(ctx context.Context, resortID uuid.UUID, version int64, stay entity.DateRange, rooms []*entity.Room) {
	if version < 0 {
		return
	}
	raw, err := encodeRooms(rooms)
	if err != nil {
		c.log.Warn("Failed to encode availability entry", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, entryKey(resortID, version, stay), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Availability cache write failed", zap.Error(err))
	}
}

// Invalidate bumps the resort's version; entries written under older
// versions are never read again.
func (c *Availability) Invalidate(ctx context.Context, resortID uuid.UUID) {
	if err := c.rdb.Incr(ctx, versionKey(resortID)).Err(); err != nil {
		c.log.Error("Availability cache invalidation failed",
			zap.Error(err),
			zap.String("resort_id", resortID.String()),
		)
	}
}

func (c *Availability) version(ctx context.Context, resortID uuid.UUID) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey(resortID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func versionKey(resortID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:version", keyPrefix, resortID)
}

func entryKey(resortID uuid.UUID, version int64, stay entity.DateRange) string {
	return fmt.Sprintf("%s:%s:v%d:%s:%s", keyPrefix, resortID, version,
		stay.CheckIn.Format(utils.DateLayout), stay.CheckOut.Format(utils.DateLayout))
}

func encodeRooms(rooms []*entity.Room) ([]byte, error) {
	out := make([]cachedRoom, len(rooms))
	for i, r := range rooms {
		out[i] = cachedRoom{
			ID:            r.ID,
			ResortID:      r.ResortID,
			RoomNumber:    r.RoomNumber,
			Capacity:      r.Capacity,
			PricePerNight: r.PricePerNight,
		}
	}
	return json.Marshal(out)
}

func decodeRooms(raw []byte) ([]*entity.Room, error) {
	var in []cachedRoom
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	rooms := make([]*entity.Room, len(in))
	for i, r := range in {
		rooms[i] = &entity.Room{
			BaseNoDelete:  entity.BaseNoDelete{ID: r.ID},
			ResortID:      r.ResortID,
			RoomNumber:    r.RoomNumber,
			Capacity:      r.Capacity,
			PricePerNight: r.PricePerNight,
		}
	}
	return rooms, nil
}
