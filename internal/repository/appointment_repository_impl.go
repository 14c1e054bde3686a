package repository

import (
	"errors"
	"time"

	"go-consultation-service/internal/domain/entity"
	domainRepo "go-consultation-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Create(appointment).Error
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Preload("User").Preload("Specialist.SpecialistProfile").
		Where("id = ?", id).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByUserID(db *gorm.DB, userID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Preload("Specialist.SpecialistProfile").
		Where("user_id = ? AND status != ?", userID, entity.AppointmentStatusCancelled).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindBySpecialistID(db *gorm.DB, specialistID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Preload("User").
		Where("specialist_id = ? AND status != ?", specialistID, entity.AppointmentStatusCancelled).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindBySpecialistBetween(db *gorm.DB, specialistID uuid.UUID, from, to time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Preload("User").
		Where("specialist_id = ? AND start_time >= ? AND start_time <= ? AND status != ?",
			specialistID, from, to, entity.AppointmentStatusCancelled).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindUpcoming(db *gorm.DB, participantID uuid.UUID, after time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Preload("User").Preload("Specialist.SpecialistProfile").
		Where("(user_id = ? OR specialist_id = ?) AND start_time > ? AND status = ?",
			participantID, participantID, after, entity.AppointmentStatusScheduled).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// TransitionStatus atomically moves the appointment to the next status ONLY if
// the current status is one of the allowed states. Returns affected rows:
// 1 = transitioned, 0 = the row was in an unexpected state (lost the race).
func (r *appointmentRepository) TransitionStatus(db *gorm.DB, id uuid.UUID, allowed []entity.AppointmentStatus, next entity.AppointmentStatus) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status IN ?", id, allowed).
		Update("status", next)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) UpdateNotes(db *gorm.DB, id uuid.UUID, notes string) error {
	return db.Model(&entity.Appointment{}).
		Where("id = ?", id).
		Update("notes", notes).Error
}

func (r *appointmentRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	return db.Where("id = ?", id).Delete(&entity.Appointment{}).Error
}
