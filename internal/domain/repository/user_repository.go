package repository

import (
	"go-consultation-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.User, error)
	// FindSpecialistByID resolves an active user that carries the specialist
	// role and a specialist profile. Returns nil when the id does not resolve
	// to a specialist.
	FindSpecialistByID(db *gorm.DB, id uuid.UUID) (*entity.User, error)
}
