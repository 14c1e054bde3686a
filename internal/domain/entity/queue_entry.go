package entity

import (
	"time"

	"github.com/google/uuid"
)

// QueueStatus represents the state of an instant-appointment queue entry
type QueueStatus string

const (
	QueueStatusWaiting    QueueStatus = "waiting"
	QueueStatusProcessing QueueStatus = "processing"
)

// QueueEntry represents a user waiting for an instant consultation with a
// specialist. A user holds at most one entry per specialist; WAITING positions
// for a specialist always form a contiguous 1..N sequence.
type QueueEntry struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID       uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_queue_user_specialist" json:"user_id"`
	SpecialistID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_queue_user_specialist;index" json:"specialist_id"`
	Position     int         `gorm:"not null" json:"position"`
	Status       QueueStatus `gorm:"type:varchar(20);not null;default:'waiting';index" json:"status"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}

// IsWaiting checks if the entry is still waiting to be pulled
func (q *QueueEntry) IsWaiting() bool {
	return q.Status == QueueStatusWaiting
}
