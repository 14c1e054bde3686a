package repository

import (
	"time"

	"go-consultation-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByUserID(db *gorm.DB, userID uuid.UUID) ([]entity.Appointment, error)
	FindBySpecialistID(db *gorm.DB, specialistID uuid.UUID) ([]entity.Appointment, error)
	FindBySpecialistBetween(db *gorm.DB, specialistID uuid.UUID, from, to time.Time) ([]entity.Appointment, error)
	FindUpcoming(db *gorm.DB, participantID uuid.UUID, after time.Time) ([]entity.Appointment, error)
	// TransitionStatus performs a conditional status update: the row is
	// touched only if its current status is one of the allowed states.
	// Returns affected rows: 1 = transitioned, 0 = stale expected state.
	TransitionStatus(db *gorm.DB, id uuid.UUID, allowed []entity.AppointmentStatus, next entity.AppointmentStatus) (int64, error)
	UpdateNotes(db *gorm.DB, id uuid.UUID, notes string) error
	Delete(db *gorm.DB, id uuid.UUID) error
}
