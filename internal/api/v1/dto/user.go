package dto

import "time"

// SignupDTO is the incoming registration request.
type SignupDTO struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Board      string `json:"board"`
	ClassLevel string `json:"class_level"`
	Stream     string `json:"stream"`
}

// LoginDTO is the incoming login request.
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileDTO carries profile changes.
type UpdateProfileDTO struct {
	Name       string `json:"name"`
	Board      string `json:"board"`
	ClassLevel string `json:"class_level"`
	Stream     string `json:"stream"`
}

// AutoDeductDTO toggles the charge confirmation gate.
type AutoDeductDTO struct {
	Enabled bool `json:"enabled"`
}

// UserResponseDTO is returned in API responses.
type UserResponseDTO struct {
	UserID              string     `json:"user_id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	Credits             int        `json:"credits"`
	SubscriptionTier    string     `json:"subscription_tier"`
	SubscriptionLevel   string     `json:"subscription_level"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date,omitempty"`
	AutoDeductEnabled   bool       `json:"auto_deduct_enabled"`
	Board               string     `json:"board"`
	ClassLevel          string     `json:"class_level"`
	Stream              string     `json:"stream"`
	CreatedAt           time.Time  `json:"created_at"`
}

// SessionResponseDTO is the signup/login answer.
type SessionResponseDTO struct {
	Token string          `json:"token"`
	User  UserResponseDTO `json:"user"`
}
