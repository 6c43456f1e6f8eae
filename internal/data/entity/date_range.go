package entity

import (
	"time"
)

// DateRange is a half-open stay [CheckIn, CheckOut) on calendar dates. Both
// ends are kept at UTC midnight.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func NewDateRange(checkIn, checkOut time.Time) DateRange {
	return DateRange{CheckIn: TruncateDate(checkIn), CheckOut: TruncateDate(checkOut)}
}

// TruncateDate drops the clock part of t, keeping its calendar date.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r DateRange) Valid() bool {
	return r.CheckIn.Before(r.CheckOut)
}

// Nights is the number of nights in the stay, zero or negative when the range
// is invalid.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// Overlaps reports whether two half-open ranges share at least one night.
// Back-to-back stays (one checks out the day the other checks in) do not
// overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && r.CheckOut.After(other.CheckIn)
}
