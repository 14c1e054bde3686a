package converter

import (
	"go-consultation-service/internal/delivery/dto"
	"go-consultation-service/internal/domain/entity"

	"github.com/google/uuid"
)

// QueueEntryToResponse converts a QueueEntry entity to QueueEntryResponse DTO
func QueueEntryToResponse(entry *entity.QueueEntry) *dto.QueueEntryResponse {
	if entry == nil {
		return nil
	}

	response := &dto.QueueEntryResponse{
		UserID:    entry.UserID,
		Position:  entry.Position,
		Status:    string(entry.Status),
		CreatedAt: entry.CreatedAt,
	}

	if entry.User.ID != uuid.Nil {
		response.User = UserToResponse(&entry.User)
	}

	return response
}

// QueueEntriesToResponses converts a slice of QueueEntry entities to slice of QueueEntryResponse DTOs
func QueueEntriesToResponses(entries []entity.QueueEntry) []dto.QueueEntryResponse {
	responses := make([]dto.QueueEntryResponse, len(entries))
	for i, entry := range entries {
		resp := QueueEntryToResponse(&entry)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
