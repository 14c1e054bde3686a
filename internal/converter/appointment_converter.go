package converter

import (
	"go-consultation-service/internal/delivery/dto"
	"go-consultation-service/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:                appointment.ID,
		UserID:            appointment.UserID,
		SpecialistID:      appointment.SpecialistID,
		StartTime:         appointment.StartTime,
		EndTime:           appointment.EndTime,
		CommunicationType: string(appointment.CommunicationType),
		PhoneNumber:       appointment.PhoneNumber,
		Status:            string(appointment.Status),
		CallSessionID:     appointment.CallSessionID,
		Notes:             appointment.Notes,
		IsInstant:         appointment.IsInstant,
		CreatedAt:         appointment.CreatedAt,
		UpdatedAt:         appointment.UpdatedAt,
	}

	// Include participant info if preloaded
	if appointment.User.ID != uuid.Nil {
		response.User = UserToResponse(&appointment.User)
	}
	if appointment.Specialist.ID != uuid.Nil {
		response.Specialist = UserToResponse(&appointment.Specialist)
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i, appointment := range appointments {
		resp := AppointmentToResponse(&appointment)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
