package handler

import (
	"errors"
	"net/http"

	"go-consultation-service/internal/service"
	"go-consultation-service/internal/usecase"
	"go-consultation-service/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type QueueHandler struct {
	queueUsecase       usecase.QueueUsecase
	appointmentUsecase usecase.AppointmentUsecase
}

func NewQueueHandler(queueUsecase usecase.QueueUsecase, appointmentUsecase usecase.AppointmentUsecase) *QueueHandler {
	return &QueueHandler{
		queueUsecase:       queueUsecase,
		appointmentUsecase: appointmentUsecase,
	}
}

func (h *QueueHandler) JoinQueue(w http.ResponseWriter, r *http.Request) {
	specialistID, ok := specialistIDParam(w, r)
	if !ok {
		return
	}

	position, err := h.queueUsecase.Enqueue(r.Context(), specialistID)
	if err != nil {
		switch err {
		case usecase.ErrSpecialistNotFound:
			response.NotFound(w, "Specialist not found")
		case usecase.ErrQueueUnavailable:
			response.ServiceUnavailable(w, "Queue is temporarily unavailable")
		default:
			response.InternalServerError(w, "Failed to join queue")
		}
		return
	}

	response.Success(w, http.StatusOK, "Joined queue successfully", position)
}

func (h *QueueHandler) GetQueuePosition(w http.ResponseWriter, r *http.Request) {
	specialistID, ok := specialistIDParam(w, r)
	if !ok {
		return
	}

	position, err := h.queueUsecase.PositionOf(r.Context(), specialistID)
	if err != nil {
		switch err {
		case usecase.ErrNotInQueue:
			response.NotFound(w, "You are not in this queue")
		default:
			response.InternalServerError(w, "Failed to get queue position")
		}
		return
	}

	response.Success(w, http.StatusOK, "Queue position retrieved successfully", position)
}

func (h *QueueHandler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	specialistID, ok := specialistIDParam(w, r)
	if !ok {
		return
	}

	if err := h.queueUsecase.Leave(r.Context(), specialistID); err != nil {
		response.InternalServerError(w, "Failed to leave queue")
		return
	}

	response.Success(w, http.StatusOK, "Left queue successfully", nil)
}

func (h *QueueHandler) GetMyQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.queueUsecase.SpecialistQueue(r.Context())
	if err != nil {
		switch err {
		case usecase.ErrNotSpecialist:
			response.Forbidden(w, "Only specialists can access this resource")
		default:
			response.InternalServerError(w, "Failed to get queue")
		}
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", entries)
}

// ProcessNext pulls the head of the calling specialist's queue and promotes
// it to an instant video appointment
func (h *QueueHandler) ProcessNext(w http.ResponseWriter, r *http.Request) {
	result, err := h.appointmentUsecase.ProcessNextInQueue(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrCallSessionFailed) {
			response.BadGateway(w, "Failed to provision call session, queue entry preserved")
			return
		}
		switch err {
		case usecase.ErrNotSpecialist:
			response.Forbidden(w, "Only specialists can process the queue")
		case usecase.ErrQueueConflict:
			response.Conflict(w, "Queue changed concurrently, please retry")
		default:
			response.InternalServerError(w, "Failed to process queue")
		}
		return
	}

	response.Success(w, http.StatusOK, result.Message, result)
}

func specialistIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["specialistId"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid specialist ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
