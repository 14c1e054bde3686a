package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
	AppointmentStatusNoShow     AppointmentStatus = "no_show"
)

// IsTerminal reports whether no further transitions are allowed from this status
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// CommunicationType represents how the consultation is held
type CommunicationType string

const (
	CommunicationTypeVideoCall CommunicationType = "video_call"
	CommunicationTypePhoneCall CommunicationType = "phone_call"
	CommunicationTypeLiveChat  CommunicationType = "live_chat"
)

// IsValid checks the communication type against the closed set
func (c CommunicationType) IsValid() bool {
	switch c {
	case CommunicationTypeVideoCall, CommunicationTypePhoneCall, CommunicationTypeLiveChat:
		return true
	}
	return false
}

// RequiresLiveSession reports whether this communication type is backed by a
// provisioned call session that participants join with tokens
func (c CommunicationType) RequiresLiveSession() bool {
	return c == CommunicationTypeVideoCall || c == CommunicationTypePhoneCall
}

// Appointment represents a consultation between a user and a specialist
type Appointment struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID            uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	SpecialistID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"specialist_id"`
	StartTime         time.Time         `gorm:"not null" json:"start_time"`
	EndTime           time.Time         `gorm:"not null" json:"end_time"`
	CommunicationType CommunicationType `gorm:"type:varchar(20);not null" json:"communication_type"`
	PhoneNumber       *string           `gorm:"type:varchar(30)" json:"phone_number,omitempty"`
	Status            AppointmentStatus `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	CallSessionID     *string           `gorm:"type:varchar(100);uniqueIndex" json:"call_session_id,omitempty"`
	Notes             string            `gorm:"type:text" json:"notes,omitempty"`
	IsInstant         bool              `gorm:"not null;default:false" json:"is_instant"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	User       User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Specialist User `gorm:"foreignKey:SpecialistID" json:"specialist,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// HasParticipant checks if the given identity is the user or the specialist of
// this appointment
func (a *Appointment) HasParticipant(id uuid.UUID) bool {
	return a.UserID == id || a.SpecialistID == id
}

// IsSpecialist checks if the given identity is the specialist participant
func (a *Appointment) IsSpecialist(id uuid.UUID) bool {
	return a.SpecialistID == id
}

// CanTransitionTo encodes the appointment state machine. Transitions not
// listed here are rejected as conflicts by the lifecycle manager.
func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	switch a.Status {
	case AppointmentStatusScheduled:
		switch next {
		case AppointmentStatusInProgress, AppointmentStatusCancelled, AppointmentStatusNoShow:
			return true
		}
		return false
	case AppointmentStatusInProgress:
		switch next {
		case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
			return true
		}
		return false
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return false
	}
	return false
}
