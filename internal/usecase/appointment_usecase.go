package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-consultation-service/config"
	"go-consultation-service/internal/converter"
	"go-consultation-service/internal/delivery/dto"
	"go-consultation-service/internal/delivery/http/middleware"
	"go-consultation-service/internal/domain/entity"
	"go-consultation-service/internal/domain/repository"
	"go-consultation-service/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound      = errors.New("appointment not found")
	ErrUserNotFound             = errors.New("user not found")
	ErrSpecialistNotFound       = errors.New("specialist not found")
	ErrNotParticipant           = errors.New("caller is not a participant in this appointment")
	ErrNotSpecialist            = errors.New("only the specialist can perform this action")
	ErrInvalidTransition        = errors.New("appointment is not in the expected state")
	ErrInvalidTimeRange         = errors.New("end time must be after start time")
	ErrInvalidCommunicationType = errors.New("invalid communication type")
	ErrPhoneNumberRequired      = errors.New("phone number is required for phone call appointments")
	ErrNotLiveSession           = errors.New("this appointment type does not have a live call session")
	ErrTooEarlyToStart          = errors.New("too early to start the call")
	ErrCallWindowClosed         = errors.New("appointment has ended")
	ErrCallSessionMissing       = errors.New("appointment has no call session")
)

// AppointmentUsecase owns the appointment state machine and the two-phase
// provisioning protocol against the call session provider. All participant
// checks derive from the authenticated identity in the context, never from
// client-supplied ids.
type AppointmentUsecase interface {
	Create(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	ListMine(ctx context.Context) (*dto.AppointmentListResponse, error)
	ListUpcoming(ctx context.Context) (*dto.AppointmentListResponse, error)
	ListSpecialistToday(ctx context.Context) (*dto.AppointmentListResponse, error)
	StartCall(ctx context.Context, id uuid.UUID) (*dto.CallInfoResponse, error)
	EndCall(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Cancel(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	CallInfo(ctx context.Context, id uuid.UUID) (*dto.CallInfoResponse, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, req *dto.UpdateNotesRequest) (*dto.AppointmentResponse, error)
	ProcessNextInQueue(ctx context.Context) (*dto.PromotionResponse, error)
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	userRepo        repository.UserRepository
	provider        service.CallSessionProvider
	queueUsecase    QueueUsecase
	audit           service.AuditService
	cfg             config.QueueConfig
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	userRepo repository.UserRepository,
	provider service.CallSessionProvider,
	queueUsecase QueueUsecase,
	audit service.AuditService,
	cfg config.QueueConfig,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		userRepo:        userRepo,
		provider:        provider,
		queueUsecase:    queueUsecase,
		audit:           audit,
		cfg:             cfg,
	}
}

type createParams struct {
	userID            uuid.UUID
	specialistID      uuid.UUID
	startTime         time.Time
	endTime           time.Time
	communicationType entity.CommunicationType
	phoneNumber       *string
	isInstant         bool
}

// Create validates the request and provisions a scheduled appointment
func (u *appointmentUsecase) Create(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	specialistID, err := uuid.Parse(req.SpecialistID)
	if err != nil {
		return nil, ErrSpecialistNotFound
	}

	appointment, err := u.create(ctx, createParams{
		userID:            userID,
		specialistID:      specialistID,
		startTime:         req.StartTime,
		endTime:           req.EndTime,
		communicationType: entity.CommunicationType(req.CommunicationType),
		phoneNumber:       req.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}

	return u.reload(ctx, appointment)
}

// create runs the two-phase provisioning protocol:
//
// 1. Validate inputs and resolve both identities (nothing persisted on failure)
// 2. Persist the SCHEDULED row with a fresh call session id
// 3. Provision the remote call session
// 4. On provider failure, compensate by deleting the row from step 2
//
// The caller never observes a half-created appointment: either both the local
// record and the remote session exist, or neither does.
func (u *appointmentUsecase) create(ctx context.Context, params createParams) (*entity.Appointment, error) {
	// Step 1: validation
	if !params.endTime.After(params.startTime) {
		return nil, ErrInvalidTimeRange
	}
	if !params.communicationType.IsValid() {
		return nil, ErrInvalidCommunicationType
	}
	if params.communicationType == entity.CommunicationTypePhoneCall {
		if params.phoneNumber == nil || *params.phoneNumber == "" {
			return nil, ErrPhoneNumberRequired
		}
	} else {
		// phone number is only meaningful for phone calls
		params.phoneNumber = nil
	}

	user, err := u.userRepo.FindByID(u.db.WithContext(ctx), params.userID)
	if err != nil {
		u.log.Warnf("Failed to resolve user %s: %+v", params.userID, err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	specialist, err := u.userRepo.FindSpecialistByID(u.db.WithContext(ctx), params.specialistID)
	if err != nil {
		u.log.Warnf("Failed to resolve specialist %s: %+v", params.specialistID, err)
		return nil, err
	}
	if specialist == nil {
		return nil, ErrSpecialistNotFound
	}

	// Step 2: durable local write. The session id is a fresh opaque token,
	// distinct from the appointment id and never reused.
	sessionID := fmt.Sprintf("appointment-%s", uuid.New().String())
	appointment := &entity.Appointment{
		ID:                uuid.New(),
		UserID:            params.userID,
		SpecialistID:      params.specialistID,
		StartTime:         params.startTime,
		EndTime:           params.endTime,
		CommunicationType: params.communicationType,
		PhoneNumber:       params.phoneNumber,
		Status:            entity.AppointmentStatusScheduled,
		CallSessionID:     &sessionID,
		IsInstant:         params.isInstant,
	}

	if err := u.appointmentRepo.Create(u.db.WithContext(ctx), appointment); err != nil {
		u.log.Warnf("Failed to insert appointment: %+v", err)
		return nil, err
	}

	// Step 3: provision the remote session
	members := []service.CallMember{
		{UserID: params.userID.String(), Role: "user"},
		{UserID: params.specialistID.String(), Role: "admin"},
	}
	meta := service.CallMetadata{
		AppointmentID: appointment.ID.String(),
		StartTime:     appointment.StartTime,
		EndTime:       appointment.EndTime,
	}

	if err := u.provider.CreateSession(ctx, sessionID, members, meta); err != nil {
		u.log.Errorf("Call session provisioning failed for appointment %s, compensating: %+v", appointment.ID, err)

		// Step 4: COMPENSATE - the local row must not survive a failed
		// provisioning, or readers would see an appointment with a dead session
		compCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if delErr := u.appointmentRepo.Delete(u.db.WithContext(compCtx), appointment.ID); delErr != nil {
			u.log.Errorf("CRITICAL: Failed to delete appointment %s after provisioning failure: %+v", appointment.ID, delErr)
		}

		return nil, err
	}

	_ = u.audit.LogCreate(ctx, u.db.WithContext(ctx), &params.userID,
		entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), appointment)

	u.log.Infof("Appointment created: id=%s, specialist=%s, session=%s, instant=%t",
		appointment.ID, params.specialistID, sessionID, params.isInstant)
	return appointment, nil
}

// Get returns the appointment for one of its participants
func (u *appointmentUsecase) Get(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.findForParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(appointment), nil
}

// ListMine lists the caller's non-cancelled appointments ordered by start time
func (u *appointmentUsecase) ListMine(ctx context.Context) (*dto.AppointmentListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	roleID, _ := middleware.GetRoleIDFromContext(ctx)

	var appointments []entity.Appointment
	var err error
	if roleID == entity.RoleIDSpecialist {
		appointments, err = u.appointmentRepo.FindBySpecialistID(u.db.WithContext(ctx), userID)
	} else {
		appointments, err = u.appointmentRepo.FindByUserID(u.db.WithContext(ctx), userID)
	}
	if err != nil {
		u.log.Warnf("Failed to list appointments for %s: %+v", userID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// ListUpcoming lists the caller's scheduled appointments that start in the future
func (u *appointmentUsecase) ListUpcoming(ctx context.Context) (*dto.AppointmentListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appointments, err := u.appointmentRepo.FindUpcoming(u.db.WithContext(ctx), userID, time.Now())
	if err != nil {
		u.log.Warnf("Failed to list upcoming appointments for %s: %+v", userID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// ListSpecialistToday lists today's appointments for the calling specialist
func (u *appointmentUsecase) ListSpecialistToday(ctx context.Context) (*dto.AppointmentListResponse, error) {
	specialistID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	roleID, _ := middleware.GetRoleIDFromContext(ctx)
	if roleID != entity.RoleIDSpecialist {
		return nil, ErrNotSpecialist
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24*time.Hour - time.Nanosecond)

	appointments, err := u.appointmentRepo.FindBySpecialistBetween(u.db.WithContext(ctx), specialistID, startOfDay, endOfDay)
	if err != nil {
		u.log.Warnf("Failed to list today's appointments for specialist %s: %+v", specialistID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// StartCall transitions a scheduled appointment to IN_PROGRESS and mints a
// join token for the caller
func (u *appointmentUsecase) StartCall(ctx context.Context, id uuid.UUID) (*dto.CallInfoResponse, error) {
	userID, _ := middleware.GetUserIDFromContext(ctx)

	appointment, err := u.findForParticipant(ctx, id)
	if err != nil {
		return nil, err
	}

	if !appointment.CommunicationType.RequiresLiveSession() {
		return nil, ErrNotLiveSession
	}
	if appointment.CallSessionID == nil {
		return nil, ErrCallSessionMissing
	}

	if u.cfg.EnforceCallWindow {
		now := time.Now()
		if now.Before(appointment.StartTime.Add(-u.cfg.CallWindowLead)) {
			return nil, ErrTooEarlyToStart
		}
		if now.After(appointment.EndTime) {
			return nil, ErrCallWindowClosed
		}
	}

	rows, err := u.appointmentRepo.TransitionStatus(u.db.WithContext(ctx), id,
		[]entity.AppointmentStatus{entity.AppointmentStatusScheduled},
		entity.AppointmentStatusInProgress)
	if err != nil {
		u.log.Warnf("Failed to start call for appointment %s: %+v", id, err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrInvalidTransition
	}

	token, err := u.provider.MintToken(*appointment.CallSessionID, userID)
	if err != nil {
		u.log.Errorf("Failed to mint join token for appointment %s: %+v", id, err)
		return nil, service.ErrCallSessionFailed
	}

	_ = u.audit.LogUpdate(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionAppointmentStart,
		"appointment", id.String(), entity.AppointmentStatusScheduled, entity.AppointmentStatusInProgress)

	u.log.Infof("Call started: appointment=%s, caller=%s", id, userID)
	return &dto.CallInfoResponse{
		AppointmentID:     id,
		CallSessionID:     *appointment.CallSessionID,
		Token:             token,
		AppointmentStatus: string(entity.AppointmentStatusInProgress),
	}, nil
}

// EndCall transitions an in-progress appointment to COMPLETED. Ending the
// remote session is best-effort: local state is authoritative for history.
func (u *appointmentUsecase) EndCall(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	userID, _ := middleware.GetUserIDFromContext(ctx)

	appointment, err := u.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appointment.IsSpecialist(userID) {
		return nil, ErrNotSpecialist
	}

	rows, err := u.appointmentRepo.TransitionStatus(u.db.WithContext(ctx), id,
		[]entity.AppointmentStatus{entity.AppointmentStatusInProgress},
		entity.AppointmentStatusCompleted)
	if err != nil {
		u.log.Warnf("Failed to end call for appointment %s: %+v", id, err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrInvalidTransition
	}

	if appointment.CallSessionID != nil {
		endCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if endErr := u.provider.EndSession(endCtx, *appointment.CallSessionID); endErr != nil {
			u.log.Warnf("Failed to end call session %s (non-fatal): %+v", *appointment.CallSessionID, endErr)
		}
	}

	_ = u.audit.LogUpdate(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionAppointmentEnd,
		"appointment", id.String(), entity.AppointmentStatusInProgress, entity.AppointmentStatusCompleted)

	u.log.Infof("Call ended: appointment=%s, specialist=%s", id, userID)
	appointment.Status = entity.AppointmentStatusCompleted
	return u.reload(ctx, appointment)
}

// Cancel transitions a scheduled or in-progress appointment to CANCELLED
func (u *appointmentUsecase) Cancel(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	userID, _ := middleware.GetUserIDFromContext(ctx)

	appointment, err := u.findForParticipant(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := u.appointmentRepo.TransitionStatus(u.db.WithContext(ctx), id,
		[]entity.AppointmentStatus{entity.AppointmentStatusScheduled, entity.AppointmentStatusInProgress},
		entity.AppointmentStatusCancelled)
	if err != nil {
		u.log.Warnf("Failed to cancel appointment %s: %+v", id, err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrInvalidTransition
	}

	_ = u.audit.LogUpdate(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionAppointmentCancel,
		"appointment", id.String(), appointment.Status, entity.AppointmentStatusCancelled)

	u.log.Infof("Appointment cancelled: id=%s, by=%s", id, userID)
	appointment.Status = entity.AppointmentStatusCancelled
	return u.reload(ctx, appointment)
}

// MarkNoShow marks a non-terminal appointment as NO_SHOW.
// Restricted to the specialist participant or an admin.
func (u *appointmentUsecase) MarkNoShow(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	userID, _ := middleware.GetUserIDFromContext(ctx)
	roleID, _ := middleware.GetRoleIDFromContext(ctx)

	appointment, err := u.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if roleID != entity.RoleIDAdmin && !appointment.IsSpecialist(userID) {
		return nil, ErrNotSpecialist
	}

	rows, err := u.appointmentRepo.TransitionStatus(u.db.WithContext(ctx), id,
		[]entity.AppointmentStatus{entity.AppointmentStatusScheduled, entity.AppointmentStatusInProgress},
		entity.AppointmentStatusNoShow)
	if err != nil {
		u.log.Warnf("Failed to mark no-show for appointment %s: %+v", id, err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrInvalidTransition
	}

	_ = u.audit.LogUpdate(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionAppointmentNoShow,
		"appointment", id.String(), appointment.Status, entity.AppointmentStatusNoShow)

	appointment.Status = entity.AppointmentStatusNoShow
	return u.reload(ctx, appointment)
}

// CallInfo returns the session reference for a participant. A fresh join
// token is minted only while the call is in progress; tokens are never
// pre-issued for sessions that are not live.
func (u *appointmentUsecase) CallInfo(ctx context.Context, id uuid.UUID) (*dto.CallInfoResponse, error) {
	userID, _ := middleware.GetUserIDFromContext(ctx)

	appointment, err := u.findForParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.CallSessionID == nil {
		return nil, ErrCallSessionMissing
	}

	info := &dto.CallInfoResponse{
		AppointmentID:     id,
		CallSessionID:     *appointment.CallSessionID,
		AppointmentStatus: string(appointment.Status),
	}

	if appointment.Status != entity.AppointmentStatusInProgress {
		return info, nil
	}

	token, err := u.provider.MintToken(*appointment.CallSessionID, userID)
	if err != nil {
		u.log.Errorf("Failed to mint join token for appointment %s: %+v", id, err)
		return nil, service.ErrCallSessionFailed
	}
	info.Token = token

	return info, nil
}

// UpdateNotes updates the specialist-authored notes
func (u *appointmentUsecase) UpdateNotes(ctx context.Context, id uuid.UUID, req *dto.UpdateNotesRequest) (*dto.AppointmentResponse, error) {
	userID, _ := middleware.GetUserIDFromContext(ctx)

	appointment, err := u.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appointment.IsSpecialist(userID) {
		return nil, ErrNotSpecialist
	}

	if err := u.appointmentRepo.UpdateNotes(u.db.WithContext(ctx), id, req.Notes); err != nil {
		u.log.Warnf("Failed to update notes for appointment %s: %+v", id, err)
		return nil, err
	}

	_ = u.audit.LogUpdate(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionNotesUpdate,
		"appointment", id.String(), appointment.Notes, req.Notes)

	appointment.Notes = req.Notes
	return u.reload(ctx, appointment)
}

// ProcessNextInQueue promotes the head of the calling specialist's queue to
// an instant appointment. The queue entry is removed only after provisioning
// succeeds; a provider failure leaves it in place for a retry.
func (u *appointmentUsecase) ProcessNextInQueue(ctx context.Context) (*dto.PromotionResponse, error) {
	specialistID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	roleID, _ := middleware.GetRoleIDFromContext(ctx)
	if roleID != entity.RoleIDSpecialist {
		return nil, ErrNotSpecialist
	}

	entry, err := u.queueUsecase.DequeueNext(ctx, specialistID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &dto.PromotionResponse{Message: "No users in queue"}, nil
	}

	now := time.Now()
	appointment, err := u.create(ctx, createParams{
		userID:            entry.UserID,
		specialistID:      specialistID,
		startTime:         now,
		endTime:           now.Add(u.cfg.InstantDuration),
		communicationType: entity.CommunicationTypeVideoCall,
		isInstant:         true,
	})
	if err != nil {
		// Entry stays PROCESSING at the head of the queue; the specialist
		// can pull again once the provider recovers.
		return nil, err
	}

	if removeErr := u.queueUsecase.RemoveServed(ctx, entry.UserID, specialistID); removeErr != nil {
		// The appointment exists and the session is live; a leftover entry
		// is recoverable, so don't fail the promotion over it.
		u.log.Errorf("Failed to remove served queue entry for user %s: %+v", entry.UserID, removeErr)
	}

	resp, err := u.reload(ctx, appointment)
	if err != nil {
		return nil, err
	}

	return &dto.PromotionResponse{
		Message:     "Next user in queue is ready for appointment",
		Appointment: resp,
	}, nil
}

// findByID loads an appointment or returns ErrAppointmentNotFound
func (u *appointmentUsecase) findByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

// findForParticipant loads an appointment and verifies the caller is one of
// its participants
func (u *appointmentUsecase) findForParticipant(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appointment, err := u.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appointment.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return appointment, nil
}

// reload refetches the appointment with participant preloads for the response
func (u *appointmentUsecase) reload(ctx context.Context, appointment *entity.Appointment) (*dto.AppointmentResponse, error) {
	full, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointment.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return converter.AppointmentToResponse(appointment), nil
	}
	return converter.AppointmentToResponse(full), nil
}
