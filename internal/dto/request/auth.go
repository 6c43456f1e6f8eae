package request

type RequestOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,numeric,min=4,max=8"`
}

type UpdateProfileRequest struct {
	Name  string  `json:"name" validate:"required,min=2,max=100"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	// Gender is free text as entered by the guest
	Gender      *string `json:"gender,omitempty" validate:"omitempty,max=10"`
	DateOfBirth *string `json:"date_of_birth,omitempty" validate:"omitempty,isodate"`
}

type SetUserActiveRequest struct {
	IsActive bool `json:"is_active"`
}
