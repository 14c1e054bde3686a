package dto

import (
	"github.com/google/uuid"
)

// Response DTOs

type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role,omitempty"`
	Speciality string    `json:"speciality,omitempty"`
}
