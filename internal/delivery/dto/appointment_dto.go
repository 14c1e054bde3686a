package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateAppointmentRequest struct {
	SpecialistID      string    `json:"specialist_id" validate:"required,uuid4"`
	StartTime         time.Time `json:"start_time" validate:"required"`
	EndTime           time.Time `json:"end_time" validate:"required"`
	CommunicationType string    `json:"communication_type" validate:"required,oneof=video_call phone_call live_chat"`
	PhoneNumber       *string   `json:"phone_number,omitempty" validate:"omitempty,min=7,max=30"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"required,max=4000"`
}

// Response DTOs

type AppointmentResponse struct {
	ID                uuid.UUID     `json:"id"`
	UserID            uuid.UUID     `json:"user_id"`
	SpecialistID      uuid.UUID     `json:"specialist_id"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	CommunicationType string        `json:"communication_type"`
	PhoneNumber       *string       `json:"phone_number,omitempty"`
	Status            string        `json:"status"`
	CallSessionID     *string       `json:"call_session_id,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	IsInstant         bool          `json:"is_instant"`
	User              *UserResponse `json:"user,omitempty"`
	Specialist        *UserResponse `json:"specialist,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

// CallInfoResponse carries the session reference for a participant. The join
// token is only minted while the call is in progress.
type CallInfoResponse struct {
	AppointmentID     uuid.UUID `json:"appointment_id"`
	CallSessionID     string    `json:"call_session_id"`
	Token             string    `json:"token,omitempty"`
	AppointmentStatus string    `json:"appointment_status"`
}

// PromotionResponse is returned when a specialist pulls the queue head.
// Appointment is nil when the queue was empty.
type PromotionResponse struct {
	Message     string               `json:"message"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}
