package entity

import (
	"time"

	"github.com/google/uuid"
)

// SpecialistProfile holds directory data for users with the specialist role
type SpecialistProfile struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Speciality  string    `gorm:"type:varchar(255);not null" json:"speciality"`
	License     string    `gorm:"type:varchar(100);not null" json:"license"`
	IsAvailable *bool     `gorm:"not null;default:true;index" json:"is_available"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SpecialistProfile) TableName() string {
	return "specialist_profiles"
}
