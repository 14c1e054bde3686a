package usecase

import (
	"context"
	"errors"
	"fmt"

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
	ErrQueueUnavailable = errors.New("queue is temporarily unavailable")
	ErrNotInQueue       = errors.New("not in queue for this specialist")
	ErrQueueConflict    = errors.New("queue entry was modified concurrently")
)

// QueueUsecase dispatches the per-specialist instant-appointment queue.
// WAITING positions for a specialist always form a contiguous 1..N sequence;
// every mutation holds the specialist lock and runs in a single transaction.
type QueueUsecase interface {
	Enqueue(ctx context.Context, specialistID uuid.UUID) (*dto.QueuePositionResponse, error)
	PositionOf(ctx context.Context, specialistID uuid.UUID) (*dto.QueuePositionResponse, error)
	Leave(ctx context.Context, specialistID uuid.UUID) error
	SpecialistQueue(ctx context.Context) (*dto.QueueListResponse, error)
	DequeueNext(ctx context.Context, specialistID uuid.UUID) (*entity.QueueEntry, error)
	RemoveServed(ctx context.Context, userID, specialistID uuid.UUID) error
	EstimatedWaitMinutes(position int) int
}

type queueUsecase struct {
	db        *gorm.DB
	log       *logrus.Logger
	queueRepo repository.QueueRepository
	userRepo  repository.UserRepository
	locker    *service.SpecialistLocker
	cache     service.QueueCache
	audit     service.AuditService
	cfg       config.QueueConfig
}

func NewQueueUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	queueRepo repository.QueueRepository,
	userRepo repository.UserRepository,
	locker *service.SpecialistLocker,
	cache service.QueueCache,
	audit service.AuditService,
	cfg config.QueueConfig,
) QueueUsecase {
	return &queueUsecase{
		db:        db,
		log:       log,
		queueRepo: queueRepo,
		userRepo:  userRepo,
		locker:    locker,
		cache:     cache,
		audit:     audit,
		cfg:       cfg,
	}
}

// Enqueue adds the caller to the specialist's waiting list. Idempotent: a
// second call for the same pair returns the existing position unchanged.
func (u *queueUsecase) Enqueue(ctx context.Context, specialistID uuid.UUID) (*dto.QueuePositionResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	specialist, err := u.userRepo.FindSpecialistByID(u.db.WithContext(ctx), specialistID)
	if err != nil {
		u.log.Warnf("Failed to resolve specialist %s: %+v", specialistID, err)
		return nil, ErrQueueUnavailable
	}
	if specialist == nil {
		return nil, ErrSpecialistNotFound
	}

	unlock := u.locker.Lock(specialistID)
	defer unlock()

	existing, err := u.queueRepo.FindByUserAndSpecialist(u.db.WithContext(ctx), userID, specialistID)
	if err != nil {
		u.log.Warnf("Failed to check existing queue entry for user %s: %+v", userID, err)
		return nil, ErrQueueUnavailable
	}
	if existing != nil {
		return u.positionResponse(ctx, specialistID, existing.Position), nil
	}

	// Position assignment and insert are atomic as a unit: the specialist
	// lock serializes assignment, the transaction makes it all-or-nothing.
	var position int
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := u.queueRepo.CountWaiting(tx, specialistID)
		if err != nil {
			return err
		}
		position = int(count) + 1

		entry := &entity.QueueEntry{
			UserID:       userID,
			SpecialistID: specialistID,
			Position:     position,
			Status:       entity.QueueStatusWaiting,
		}
		if err := u.queueRepo.Create(tx, entry); err != nil {
			return err
		}

		_ = u.audit.LogCreate(ctx, tx, &userID, entity.AuditActionQueueEnqueue,
			"queue_entry", entry.ID.String(), entry)
		return nil
	})
	if err != nil {
		u.log.Warnf("Failed to enqueue user %s for specialist %s: %+v", userID, specialistID, err)
		return nil, ErrQueueUnavailable
	}

	if cacheErr := u.cache.SetDepth(ctx, specialistID, position); cacheErr != nil {
		u.log.Warnf("Failed to cache queue depth for specialist %s (non-fatal): %+v", specialistID, cacheErr)
	}

	u.log.Infof("User %s enqueued for specialist %s at position %d", userID, specialistID, position)
	return u.positionResponse(ctx, specialistID, position), nil
}

// PositionOf returns the caller's current position for the specialist
func (u *queueUsecase) PositionOf(ctx context.Context, specialistID uuid.UUID) (*dto.QueuePositionResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	entry, err := u.queueRepo.FindByUserAndSpecialist(u.db.WithContext(ctx), userID, specialistID)
	if err != nil {
		u.log.Warnf("Failed to find queue entry for user %s: %+v", userID, err)
		return nil, ErrQueueUnavailable
	}
	if entry == nil {
		return nil, ErrNotInQueue
	}

	return u.positionResponse(ctx, specialistID, entry.Position), nil
}

// Leave removes the caller's entry and renumbers the rest.
// No-op if the caller is not queued.
func (u *queueUsecase) Leave(ctx context.Context, specialistID uuid.UUID) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return errors.New("user not found in context")
	}

	return u.removeAndRenumber(ctx, userID, specialistID, entity.AuditActionQueueRemove)
}

// RemoveServed deletes a promoted entry after its instant appointment was
// provisioned and renumbers the remaining waiters.
func (u *queueUsecase) RemoveServed(ctx context.Context, userID, specialistID uuid.UUID) error {
	return u.removeAndRenumber(ctx, userID, specialistID, entity.AuditActionQueuePromote)
}

// SpecialistQueue lists the caller's waiting users in order
func (u *queueUsecase) SpecialistQueue(ctx context.Context) (*dto.QueueListResponse, error) {
	specialistID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	roleID, _ := middleware.GetRoleIDFromContext(ctx)
	if roleID != entity.RoleIDSpecialist {
		return nil, ErrNotSpecialist
	}

	entries, err := u.queueRepo.FindWaitingBySpecialist(u.db.WithContext(ctx), specialistID)
	if err != nil {
		u.log.Warnf("Failed to list queue for specialist %s: %+v", specialistID, err)
		return nil, ErrQueueUnavailable
	}

	return &dto.QueueListResponse{
		Entries: converter.QueueEntriesToResponses(entries),
		Total:   len(entries),
	}, nil
}

// DequeueNext pulls the head of the specialist's queue and marks it
// PROCESSING. Returns nil without error when the queue is empty. The entry is
// NOT deleted here: it survives until the promotion succeeds, so a failed
// provisioning leaves the user first in line for a retry.
func (u *queueUsecase) DequeueNext(ctx context.Context, specialistID uuid.UUID) (*entity.QueueEntry, error) {
	unlock := u.locker.Lock(specialistID)
	defer unlock()

	var entry *entity.QueueEntry
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := u.queueRepo.FindNextWaiting(tx, specialistID)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		rows, err := u.queueRepo.MarkProcessing(tx, next.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrQueueConflict
		}

		next.Status = entity.QueueStatusProcessing
		entry = next

		// The pulled entry left the WAITING set; shift the rest down so
		// positions stay contiguous while the promotion is in flight.
		return u.renumberWaiting(tx, specialistID)
	})
	if err != nil {
		if errors.Is(err, ErrQueueConflict) {
			return nil, ErrQueueConflict
		}
		u.log.Warnf("Failed to dequeue next for specialist %s: %+v", specialistID, err)
		return nil, ErrQueueUnavailable
	}

	return entry, nil
}

// EstimatedWaitMinutes is a deterministic projection, not a guarantee
func (u *queueUsecase) EstimatedWaitMinutes(position int) int {
	return position * u.cfg.AverageSessionMinutes
}

func (u *queueUsecase) removeAndRenumber(ctx context.Context, userID, specialistID uuid.UUID, action string) error {
	unlock := u.locker.Lock(specialistID)
	defer unlock()

	var depth int
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := u.queueRepo.Delete(tx, userID, specialistID)
		if err != nil {
			return err
		}

		if err := u.renumberWaiting(tx, specialistID); err != nil {
			return err
		}

		count, err := u.queueRepo.CountWaiting(tx, specialistID)
		if err != nil {
			return err
		}
		depth = int(count)

		if rows > 0 {
			_ = u.audit.LogDelete(ctx, tx, &userID, action,
				"queue_entry", fmt.Sprintf("%s:%s", userID, specialistID), nil)
		}
		return nil
	})
	if err != nil {
		u.log.Warnf("Failed to remove user %s from queue of specialist %s: %+v", userID, specialistID, err)
		return ErrQueueUnavailable
	}

	if cacheErr := u.cache.SetDepth(ctx, specialistID, depth); cacheErr != nil {
		u.log.Warnf("Failed to cache queue depth for specialist %s (non-fatal): %+v", specialistID, cacheErr)
	}

	return nil
}

// renumberWaiting rewrites WAITING positions into a contiguous 1..N sequence
// ordered by prior position, then created_at. Must run inside a transaction
// while the specialist lock is held.
func (u *queueUsecase) renumberWaiting(tx *gorm.DB, specialistID uuid.UUID) error {
	entries, err := u.queueRepo.FindWaitingBySpecialist(tx, specialistID)
	if err != nil {
		return err
	}

	for i, e := range entries {
		if e.Position == i+1 {
			continue
		}
		if err := u.queueRepo.UpdatePosition(tx, e.ID, i+1); err != nil {
			return err
		}
	}
	return nil
}

func (u *queueUsecase) positionResponse(ctx context.Context, specialistID uuid.UUID, position int) *dto.QueuePositionResponse {
	queueLength, ok := u.cache.Depth(ctx, specialistID)
	if !ok {
		count, err := u.queueRepo.CountWaiting(u.db.WithContext(ctx), specialistID)
		if err != nil {
			u.log.Warnf("Failed to count queue for specialist %s: %+v", specialistID, err)
			count = int64(position)
		}
		queueLength = int(count)
	}

	wait := u.EstimatedWaitMinutes(position)
	return &dto.QueuePositionResponse{
		Position:             position,
		EstimatedWaitMinutes: wait,
		QueueLength:          queueLength,
		Message:              fmt.Sprintf("You are number %d in line. Estimated wait time: %d minutes", position, wait),
	}
}
