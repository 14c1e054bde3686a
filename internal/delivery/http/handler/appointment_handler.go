package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-consultation-service/internal/delivery/dto"
	"go-consultation-service/internal/service"
	"go-consultation-service/internal/usecase"
	"go-consultation-service/pkg/response"
	"go-consultation-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCallSessionFailed) {
			response.BadGateway(w, "Failed to provision call session")
			return
		}
		switch err {
		case usecase.ErrSpecialistNotFound:
			response.NotFound(w, "Specialist not found")
		case usecase.ErrUserNotFound:
			response.NotFound(w, "User not found")
		case usecase.ErrInvalidTimeRange:
			response.Error(w, http.StatusBadRequest, "End time must be after start time", nil)
		case usecase.ErrInvalidCommunicationType:
			response.Error(w, http.StatusBadRequest, "Invalid communication type", nil)
		case usecase.ErrPhoneNumberRequired:
			response.Error(w, http.StatusBadRequest, "Phone number is required for phone call appointments", nil)
		default:
			response.InternalServerError(w, "Failed to create appointment")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.Get(r.Context(), id)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotParticipant:
			response.Forbidden(w, "You are not a participant in this appointment")
		default:
			response.InternalServerError(w, "Failed to get appointment")
		}
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) GetMyAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointmentUsecase.ListMine(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) GetUpcomingAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointmentUsecase.ListUpcoming(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get upcoming appointments")
		return
	}

	response.Success(w, http.StatusOK, "Upcoming appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) GetTodayAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointmentUsecase.ListSpecialistToday(r.Context())
	if err != nil {
		switch err {
		case usecase.ErrNotSpecialist:
			response.Forbidden(w, "Only specialists can access this resource")
		default:
			response.InternalServerError(w, "Failed to get today's appointments")
		}
		return
	}

	response.Success(w, http.StatusOK, "Today's appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) StartCall(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	info, err := h.appointmentUsecase.StartCall(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCallSessionFailed) {
			response.BadGateway(w, "Failed to mint call token")
			return
		}
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotParticipant:
			response.Forbidden(w, "You are not a participant in this appointment")
		case usecase.ErrNotLiveSession:
			response.Error(w, http.StatusBadRequest, "This appointment type does not have a live call session", nil)
		case usecase.ErrCallSessionMissing:
			response.Error(w, http.StatusConflict, "Appointment has no call session", nil)
		case usecase.ErrTooEarlyToStart:
			response.Error(w, http.StatusBadRequest, "Too early to start the call", nil)
		case usecase.ErrCallWindowClosed:
			response.Error(w, http.StatusBadRequest, "Appointment has already ended", nil)
		case usecase.ErrInvalidTransition:
			response.Conflict(w, "Appointment cannot be started from its current state")
		default:
			response.InternalServerError(w, "Failed to start call")
		}
		return
	}

	response.Success(w, http.StatusOK, "Call started successfully", info)
}

func (h *AppointmentHandler) EndCall(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.EndCall(r.Context(), id)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotSpecialist:
			response.Forbidden(w, "Only the specialist can end the call")
		case usecase.ErrInvalidTransition:
			response.Conflict(w, "Appointment is not in progress")
		default:
			response.InternalServerError(w, "Failed to end call")
		}
		return
	}

	response.Success(w, http.StatusOK, "Call ended successfully", appointment)
}

func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.Cancel(r.Context(), id)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotParticipant:
			response.Forbidden(w, "You are not a participant in this appointment")
		case usecase.ErrInvalidTransition:
			response.Conflict(w, "Appointment is already finished")
		default:
			response.InternalServerError(w, "Failed to cancel appointment")
		}
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", appointment)
}

func (h *AppointmentHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.MarkNoShow(r.Context(), id)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotSpecialist:
			response.Forbidden(w, "Only the specialist or an admin can mark a no-show")
		case usecase.ErrInvalidTransition:
			response.Conflict(w, "Appointment is already finished")
		default:
			response.InternalServerError(w, "Failed to mark no-show")
		}
		return
	}

	response.Success(w, http.StatusOK, "Appointment marked as no-show", appointment)
}

func (h *AppointmentHandler) GetCallInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	info, err := h.appointmentUsecase.CallInfo(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCallSessionFailed) {
			response.BadGateway(w, "Failed to mint call token")
			return
		}
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotParticipant:
			response.Forbidden(w, "You are not a participant in this appointment")
		case usecase.ErrCallSessionMissing:
			response.Error(w, http.StatusConflict, "Appointment has no call session", nil)
		default:
			response.InternalServerError(w, "Failed to get call info")
		}
		return
	}

	response.Success(w, http.StatusOK, "Call info retrieved successfully", info)
}

func (h *AppointmentHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.UpdateNotes(r.Context(), id, &req)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotSpecialist:
			response.Forbidden(w, "Only the specialist can update notes")
		default:
			response.InternalServerError(w, "Failed to update notes")
		}
		return
	}

	response.Success(w, http.StatusOK, "Notes updated successfully", appointment)
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
