package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform roles. Every authenticated user carries exactly one.
const (
	RoleStudent  = "student"
	RoleAdvisor  = "advisor"
	RoleLecturer = "lecturer"
	RoleAdmin    = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleAdvisor, RoleLecturer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	StudyCycle   *string    `json:"study_cycle"`
	Specialty    *string    `json:"specialty"`
	IsVerified   bool       `json:"is_verified"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

type RegisterRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	StudyCycle string `json:"study_cycle"`
	Specialty  string `json:"specialty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	FullName   string  `json:"full_name"`
	StudyCycle *string `json:"study_cycle"`
	Specialty  *string `json:"specialty"`
}
