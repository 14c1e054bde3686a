package usecase

import (
	"testing"
	"time"

	"go-consultation-service/config"
	"go-consultation-service/internal/domain/entity"
	"go-consultation-service/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueueFixture(t *testing.T) (QueueUsecase, *mockQueueRepo, *mockUserRepo, *mockQueueCache, *mockAuditService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newTestDB(t)
	queueRepo := newMockQueueRepo()
	userRepo := newMockUserRepo()
	cache := newMockQueueCache()
	audit := &mockAuditService{}

	locker := service.NewSpecialistLocker(newTestLogger())
	t.Cleanup(locker.Stop)

	cfg := config.QueueConfig{
		AverageSessionMinutes: 15,
		InstantDuration:       30 * time.Minute,
	}

	uc := NewQueueUsecase(db, newTestLogger(), queueRepo, userRepo, locker, cache, audit, cfg)
	return uc, queueRepo, userRepo, cache, audit, mock
}

func TestEnqueueAssignsContiguousPositions(t *testing.T) {
	uc, _, userRepo, _, _, mock := newQueueFixture(t)

	specialistID := uuid.New()
	userRepo.addSpecialist(specialistID)
	expectTx(mock, 3)

	for i := 1; i <= 3; i++ {
		userID := uuid.New()
		userRepo.addUser(userID)

		resp, err := uc.Enqueue(identityCtx(userID, entity.RoleIDUser), specialistID)
		require.NoError(t, err)
		assert.Equal(t, i, resp.Position)
		assert.Equal(t, i, resp.QueueLength)
		assert.Equal(t, i*15, resp.EstimatedWaitMinutes)
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueIsIdempotent(t *testing.T) {
	uc, queueRepo, userRepo, _, _, mock := newQueueFixture(t)

	specialistID := uuid.New()
	userID := uuid.New()
	userRepo.addSpecialist(specialistID)
	userRepo.addUser(userID)

	// Only the first call opens a transaction
	expectTx(mock, 1)

	first, err := uc.Enqueue(identityCtx(userID, entity.RoleIDUser), specialistID)
	require.NoError(t, err)

	second, err := uc.Enqueue(identityCtx(userID, entity.RoleIDUser), specialistID)
	require.NoError(t, err)

	assert.Equal(t, first.Position, second.Position)

	count, err := queueRepo.CountWaiting(nil, specialistID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueUnknownSpecialist(t *testing.T) {
	uc, _, userRepo, _, _, _ := newQueueFixture(t)

	userID := uuid.New()
	userRepo.addUser(userID)

	_, err := uc.Enqueue(identityCtx(userID, entity.RoleIDUser), uuid.New())
	assert.ErrorIs(t, err, ErrSpecialistNotFound)
}

func TestLeaveRenumbersRemainingEntries(t *testing.T) {
	uc, queueRepo, userRepo, _, audit, mock := newQueueFixture(t)

	specialistID := uuid.New()
	userRepo.addSpecialist(specialistID)

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	expectTx(mock, 4) // three enqueues, one leave

	for _, id := range users {
		userRepo.addUser(id)
		_, err := uc.Enqueue(identityCtx(id, entity.RoleIDUser), specialistID)
		require.NoError(t, err)
	}

	// Head of the line leaves; everyone shifts up
	require.NoError(t, uc.Leave(identityCtx(users[0], entity.RoleIDUser), specialistID))

	waiting, err := queueRepo.FindWaitingBySpecialist(nil, specialistID)
	require.NoError(t, err)
	require.Len(t, waiting, 2)
	assert.Equal(t, users[1], waiting[0].UserID)
	assert.Equal(t, 1, waiting[0].Position)
	assert.Equal(t, users[2], waiting[1].UserID)
	assert.Equal(t, 2, waiting[1].Position)

	assert.Contains(t, audit.actions, entity.AuditActionQueueRemove)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveWhenNotQueuedIsNoop(t *testing.T) {
	uc, _, userRepo, _, audit, mock := newQueueFixture(t)

	specialistID := uuid.New()
	userID := uuid.New()
	userRepo.addSpecialist(specialistID)
	userRepo.addUser(userID)
	expectTx(mock, 1)

	require.NoError(t, uc.Leave(identityCtx(userID, entity.RoleIDUser), specialistID))
	assert.Empty(t, audit.actions)
}

func TestPositionOfNotInQueue(t *testing.T) {
	uc, _, userRepo, _, _, _ := newQueueFixture(t)

	userID := uuid.New()
	userRepo.addUser(userID)

	_, err := uc.PositionOf(identityCtx(userID, entity.RoleIDUser), uuid.New())
	assert.ErrorIs(t, err, ErrNotInQueue)
}

func TestPositionOfFallsBackToCountWhenCacheCold(t *testing.T) {
	uc, _, userRepo, cache, _, mock := newQueueFixture(t)

	specialistID := uuid.New()
	userID := uuid.New()
	userRepo.addSpecialist(specialistID)
	userRepo.addUser(userID)
	expectTx(mock, 1)

	_, err := uc.Enqueue(identityCtx(userID, entity.RoleIDUser), specialistID)
	require.NoError(t, err)

	cache.disabled = true
	resp, err := uc.PositionOf(identityCtx(userID, entity.RoleIDUser), specialistID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Position)
	assert.Equal(t, 1, resp.QueueLength)
}

func TestDequeueNextEmptyQueue(t *testing.T) {
	uc, _, userRepo, _, _, mock := newQueueFixture(t)

	specialistID := uuid.New()
	userRepo.addSpecialist(specialistID)
	expectTx(mock, 1)

	entry, err := uc.DequeueNext(identityCtx(specialistID, entity.RoleIDSpecialist), specialistID)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestDequeueNextMarksProcessingAndRenumbers(t *testing.T) {
	uc, queueRepo, userRepo, _, _, mock := newQueueFixture(t)

	specialistID := uuid.New()
	userRepo.addSpecialist(specialistID)

	first := uuid.New()
	second := uuid.New()
	expectTx(mock, 3) // two enqueues, one dequeue

	for _, id := range []uuid.UUID{first, second} {
		userRepo.addUser(id)
		_, err := uc.Enqueue(identityCtx(id, entity.RoleIDUser), specialistID)
		require.NoError(t, err)
	}

	entry, err := uc.DequeueNext(identityCtx(specialistID, entity.RoleIDSpecialist), specialistID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, first, entry.UserID)
	assert.Equal(t, entity.QueueStatusProcessing, entry.Status)

	// The pulled entry survives until the promotion completes
	pulled, err := queueRepo.FindByUserAndSpecialist(nil, first, specialistID)
	require.NoError(t, err)
	require.NotNil(t, pulled)
	assert.Equal(t, entity.QueueStatusProcessing, pulled.Status)

	// The remaining waiter moved up to position 1
	waiting, err := queueRepo.FindWaitingBySpecialist(nil, specialistID)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, second, waiting[0].UserID)
	assert.Equal(t, 1, waiting[0].Position)
}

func TestDequeueNextPreservesFIFOOrder(t *testing.T) {
	uc, _, userRepo, _, _, mock := newQueueFixture(t)

	specialistID := uuid.New()
	userRepo.addSpecialist(specialistID)

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	expectTx(mock, 9) // three enqueues, three dequeues, three removals

	for _, id := range users {
		userRepo.addUser(id)
		_, err := uc.Enqueue(identityCtx(id, entity.RoleIDUser), specialistID)
		require.NoError(t, err)
	}

	for _, want := range users {
		entry, err := uc.DequeueNext(identityCtx(specialistID, entity.RoleIDSpecialist), specialistID)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, want, entry.UserID)
		require.NoError(t, uc.RemoveServed(identityCtx(specialistID, entity.RoleIDSpecialist), entry.UserID, specialistID))
	}
}

func TestSpecialistQueueRequiresSpecialistRole(t *testing.T) {
	uc, _, _, _, _, _ := newQueueFixture(t)

	_, err := uc.SpecialistQueue(identityCtx(uuid.New(), entity.RoleIDUser))
	assert.ErrorIs(t, err, ErrNotSpecialist)
}

func TestEstimatedWaitScalesWithPosition(t *testing.T) {
	uc, _, _, _, _, _ := newQueueFixture(t)

	assert.Equal(t, 15, uc.EstimatedWaitMinutes(1))
	assert.Equal(t, 75, uc.EstimatedWaitMinutes(5))
}
