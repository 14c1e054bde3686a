package repository

import (
	"go-consultation-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QueueRepository interface {
	Create(db *gorm.DB, entry *entity.QueueEntry) error
	FindByUserAndSpecialist(db *gorm.DB, userID, specialistID uuid.UUID) (*entity.QueueEntry, error)
	// FindWaitingBySpecialist returns WAITING entries ordered by position,
	// ties broken by created_at.
	FindWaitingBySpecialist(db *gorm.DB, specialistID uuid.UUID) ([]entity.QueueEntry, error)
	CountWaiting(db *gorm.DB, specialistID uuid.UUID) (int64, error)
	FindNextWaiting(db *gorm.DB, specialistID uuid.UUID) (*entity.QueueEntry, error)
	// MarkProcessing flips a WAITING entry to PROCESSING.
	// Returns affected rows: 0 means the entry was no longer waiting.
	MarkProcessing(db *gorm.DB, id uuid.UUID) (int64, error)
	UpdatePosition(db *gorm.DB, id uuid.UUID, position int) error
	Delete(db *gorm.DB, userID, specialistID uuid.UUID) (int64, error)
}
