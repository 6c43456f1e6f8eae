package entity

import "time"

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	Base
	Phone    string   `db:"phone"`
	Name     string   `db:"name"`
	Email    *string  `db:"email"`
	Role     UserRole `db:"role"`
	IsActive bool     `db:"is_active"`

	Gender      *string    `db:"gender"`
	DateOfBirth *time.Time `db:"date_of_birth"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
