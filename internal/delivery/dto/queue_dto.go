package dto

import (
	"time"

	"github.com/google/uuid"
)

// Response DTOs

type QueuePositionResponse struct {
	Position             int    `json:"position"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
	QueueLength          int    `json:"queue_length"`
	Message              string `json:"message"`
}

type QueueEntryResponse struct {
	UserID    uuid.UUID     `json:"user_id"`
	User      *UserResponse `json:"user,omitempty"`
	Position  int           `json:"position"`
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

type QueueListResponse struct {
	Entries []QueueEntryResponse `json:"entries"`
	Total   int                  `json:"total"`
}
