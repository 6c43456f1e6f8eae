package usecase

import (
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"github.com/google/uuid"
)

var (
	errResortNotFound  = apperror.New(apperror.KindNotFound, "resort not found")
	errRoomNotFound    = apperror.New(apperror.KindNotFound, "room not found")
	errBookingNotFound = apperror.New(apperror.KindNotFound, "booking not found")
	errUserNotFound    = apperror.New(apperror.KindNotFound, "user not found")
)

// parseID maps a malformed path id to notFound, since an id that cannot
// exist is simply not found.
func parseID(raw string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return apperror.Validation(errs)
	}
	return nil
}

// parseStay reads a check_in/check_out pair of DateLayout dates. The stay
// must be non-empty and must not start before today (UTC).
func parseStay(checkIn, checkOut string, now time.Time) (entity.DateRange, error) {
	in, err := time.Parse(utils.DateLayout, checkIn)
	if err != nil {
		return entity.DateRange{}, apperror.Validation(map[string]string{"check_in": "Must be a date in YYYY-MM-DD format"})
	}
	out, err := time.Parse(utils.DateLayout, checkOut)
	if err != nil {
		return entity.DateRange{}, apperror.Validation(map[string]string{"check_out": "Must be a date in YYYY-MM-DD format"})
	}

	stay := entity.NewDateRange(in, out)
	if !stay.Valid() {
		return entity.DateRange{}, apperror.ErrInvalidDateRange
	}
	if stay.CheckIn.Before(entity.TruncateDate(now.UTC())) {
		return entity.DateRange{}, apperror.New(apperror.KindInvalidDateRange, "check_in cannot be in the past")
	}
	return stay, nil
}

// stayAmount is nights x the sum of nightly prices.
func stayAmount(rooms []*entity.Room, stay entity.DateRange) int64 {
	var perNight int64
	for _, room := range rooms {
		perNight += room.PricePerNight
	}
	return perNight * int64(stay.Nights())
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
