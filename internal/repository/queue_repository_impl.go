package repository

import (
	"errors"

	"go-consultation-service/internal/domain/entity"
	domainRepo "go-consultation-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type queueRepository struct{}

func NewQueueRepository() domainRepo.QueueRepository {
	return &queueRepository{}
}

func (r *queueRepository) Create(db *gorm.DB, entry *entity.QueueEntry) error {
	return db.Create(entry).Error
}

func (r *queueRepository) FindByUserAndSpecialist(db *gorm.DB, userID, specialistID uuid.UUID) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.Where("user_id = ? AND specialist_id = ?", userID, specialistID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *queueRepository) FindWaitingBySpecialist(db *gorm.DB, specialistID uuid.UUID) ([]entity.QueueEntry, error) {
	var entries []entity.QueueEntry
	err := db.Preload("User").
		Where("specialist_id = ? AND status = ?", specialistID, entity.QueueStatusWaiting).
		Order("position ASC, created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueRepository) CountWaiting(db *gorm.DB, specialistID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&entity.QueueEntry{}).
		Where("specialist_id = ? AND status = ?", specialistID, entity.QueueStatusWaiting).
		Count(&count).Error
	return count, err
}

func (r *queueRepository) FindNextWaiting(db *gorm.DB, specialistID uuid.UUID) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.Preload("User").
		Where("specialist_id = ? AND status = ?", specialistID, entity.QueueStatusWaiting).
		Order("position ASC, created_at ASC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// MarkProcessing flips the entry to PROCESSING only while it is still WAITING.
// Returns affected rows: 0 = the entry was pulled or removed concurrently.
func (r *queueRepository) MarkProcessing(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.QueueEntry{}).
		Where("id = ? AND status = ?", id, entity.QueueStatusWaiting).
		Update("status", entity.QueueStatusProcessing)
	return result.RowsAffected, result.Error
}

func (r *queueRepository) UpdatePosition(db *gorm.DB, id uuid.UUID, position int) error {
	return db.Model(&entity.QueueEntry{}).
		Where("id = ?", id).
		Update("position", position).Error
}

func (r *queueRepository) Delete(db *gorm.DB, userID, specialistID uuid.UUID) (int64, error) {
	result := db.Where("user_id = ? AND specialist_id = ?", userID, specialistID).
		Delete(&entity.QueueEntry{})
	return result.RowsAffected, result.Error
}
