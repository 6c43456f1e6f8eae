package entity

import (
	"time"
)

// OTP is a one-time login code for a phone number. Only the bcrypt hash of the
// code is stored.
type OTP struct {
	BaseSimple
	Phone     string     `db:"phone"`
	CodeHash  string     `db:"code_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	Attempts  int        `db:"attempts"`
	UsedAt    *time.Time `db:"used_at"`
}

func (o *OTP) IsUsable(now time.Time, maxAttempts int) bool {
	return o.UsedAt == nil && now.Before(o.ExpiresAt) && o.Attempts < maxAttempts
}
