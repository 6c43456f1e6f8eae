package response

import (
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/utils"
)

type OTPRequestedResponse struct {
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthResponse struct {
	UserID    string          `json:"user_id"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Phone     string          `json:"phone"`
	Name      string          `json:"name"`
	Role      entity.UserRole `json:"role"`
	IsNewUser bool            `json:"is_new_user"`
}

type UserResponse struct {
	ID        string          `json:"id"`
	Phone     string          `json:"phone"`
	Name      string          `json:"name"`
	Email     *string         `json:"email,omitempty"`
	Role      entity.UserRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`

	Gender      *string `json:"gender,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

// Helper converters
func UserToResponse(user *entity.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID.String(),
		Phone:     user.Phone,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		Gender:    user.Gender,
	}
	if user.DateOfBirth != nil {
		dob := user.DateOfBirth.Format(utils.DateLayout)
		resp.DateOfBirth = &dob
	}
	return resp
}

func AuthToResponse(user *entity.User, session *entity.Session, isNew bool) AuthResponse {
	resp := AuthResponse{
		UserID:    user.ID.String(),
		Phone:     user.Phone,
		Name:      user.Name,
		Role:      user.Role,
		IsNewUser: isNew,
	}

	if session != nil {
		resp.Token = session.Token.String()
		resp.ExpiresAt = session.ExpiresAt
	}

	return resp
}
