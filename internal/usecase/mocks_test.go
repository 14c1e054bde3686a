package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"go-consultation-service/internal/delivery/http/middleware"
	"go-consultation-service/internal/domain/entity"
	"go-consultation-service/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// expectTx queues expectations for n committed transactions
func expectTx(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func identityCtx(userID uuid.UUID, roleID int) context.Context {
	ctx := context.WithValue(context.Background(), middleware.UserIDKey, userID)
	return context.WithValue(ctx, middleware.RoleIDKey, roleID)
}

// mockUserRepo resolves identities from in-memory maps
type mockUserRepo struct {
	users       map[uuid.UUID]*entity.User
	specialists map[uuid.UUID]*entity.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:       make(map[uuid.UUID]*entity.User),
		specialists: make(map[uuid.UUID]*entity.User),
	}
}

func (m *mockUserRepo) addUser(id uuid.UUID) {
	m.users[id] = &entity.User{ID: id, RoleID: entity.RoleIDUser}
}

func (m *mockUserRepo) addSpecialist(id uuid.UUID) {
	u := &entity.User{ID: id, RoleID: entity.RoleIDSpecialist}
	m.users[id] = u
	m.specialists[id] = u
}

func (m *mockUserRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) FindSpecialistByID(db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	return m.specialists[id], nil
}

// mockQueueRepo is an in-memory queue store preserving insertion order
type mockQueueRepo struct {
	mu      sync.Mutex
	entries []*entity.QueueEntry
	clock   int64

	createErr error
}

func newMockQueueRepo() *mockQueueRepo {
	return &mockQueueRepo{}
}

func (m *mockQueueRepo) Create(db *gorm.DB, entry *entity.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.clock++
	entry.CreatedAt = time.Unix(m.clock, 0)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockQueueRepo) FindByUserAndSpecialist(db *gorm.DB, userID, specialistID uuid.UUID) (*entity.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.UserID == userID && e.SpecialistID == specialistID {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockQueueRepo) FindWaitingBySpecialist(db *gorm.DB, specialistID uuid.UUID) ([]entity.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var waiting []entity.QueueEntry
	for _, e := range m.entries {
		if e.SpecialistID == specialistID && e.Status == entity.QueueStatusWaiting {
			waiting = append(waiting, *e)
		}
	}
	sort.SliceStable(waiting, func(i, j int) bool {
		if waiting[i].Position != waiting[j].Position {
			return waiting[i].Position < waiting[j].Position
		}
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})
	return waiting, nil
}

func (m *mockQueueRepo) CountWaiting(db *gorm.DB, specialistID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, e := range m.entries {
		if e.SpecialistID == specialistID && e.Status == entity.QueueStatusWaiting {
			count++
		}
	}
	return count, nil
}

func (m *mockQueueRepo) FindNextWaiting(db *gorm.DB, specialistID uuid.UUID) (*entity.QueueEntry, error) {
	waiting, _ := m.FindWaitingBySpecialist(db, specialistID)
	if len(waiting) == 0 {
		return nil, nil
	}
	head := waiting[0]
	return &head, nil
}

func (m *mockQueueRepo) MarkProcessing(db *gorm.DB, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			if e.Status != entity.QueueStatusWaiting {
				return 0, nil
			}
			e.Status = entity.QueueStatusProcessing
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockQueueRepo) UpdatePosition(db *gorm.DB, id uuid.UUID, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.Position = position
			return nil
		}
	}
	return nil
}

func (m *mockQueueRepo) Delete(db *gorm.DB, userID, specialistID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*entity.QueueEntry
	var removed int64
	for _, e := range m.entries {
		if e.UserID == userID && e.SpecialistID == specialistID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

// mockQueueCache is an in-memory stand-in for the Redis depth cache
type mockQueueCache struct {
	mu       sync.Mutex
	depths   map[uuid.UUID]int
	disabled bool
}

func newMockQueueCache() *mockQueueCache {
	return &mockQueueCache{depths: make(map[uuid.UUID]int)}
}

func (m *mockQueueCache) SetDepth(ctx context.Context, specialistID uuid.UUID, depth int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depths[specialistID] = depth
	return nil
}

func (m *mockQueueCache) Depth(ctx context.Context, specialistID uuid.UUID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return 0, false
	}
	d, ok := m.depths[specialistID]
	return d, ok
}

// mockAuditService records actions instead of writing audit rows
type mockAuditService struct {
	mu      sync.Mutex
	actions []string
}

func (m *mockAuditService) record(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
}

func (m *mockAuditService) LogCreate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action, entityName, entityID string, newValue interface{}) error {
	m.record(action)
	return nil
}

func (m *mockAuditService) LogUpdate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action, entityName, entityID string, oldValue, newValue interface{}) error {
	m.record(action)
	return nil
}

func (m *mockAuditService) LogDelete(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action, entityName, entityID string, oldValue interface{}) error {
	m.record(action)
	return nil
}

// mockAppointmentRepo is an in-memory appointment store
type mockAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*entity.Appointment

	createErr error
	deleteErr error
	deleted   []uuid.UUID
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appointments: make(map[uuid.UUID]*entity.Appointment)}
}

func (m *mockAppointmentRepo) seed(a *entity.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[a.ID] = a
}

func (m *mockAppointmentRepo) Create(db *gorm.DB, appointment *entity.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	copied := *appointment
	m.appointments[appointment.ID] = &copied
	return nil
}

func (m *mockAppointmentRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (m *mockAppointmentRepo) FindByUserID(db *gorm.DB, userID uuid.UUID) ([]entity.Appointment, error) {
	return m.filter(func(a *entity.Appointment) bool {
		return a.UserID == userID && a.Status != entity.AppointmentStatusCancelled
	}), nil
}

func (m *mockAppointmentRepo) FindBySpecialistID(db *gorm.DB, specialistID uuid.UUID) ([]entity.Appointment, error) {
	return m.filter(func(a *entity.Appointment) bool {
		return a.SpecialistID == specialistID && a.Status != entity.AppointmentStatusCancelled
	}), nil
}

func (m *mockAppointmentRepo) FindBySpecialistBetween(db *gorm.DB, specialistID uuid.UUID, from, to time.Time) ([]entity.Appointment, error) {
	return m.filter(func(a *entity.Appointment) bool {
		return a.SpecialistID == specialistID &&
			a.Status != entity.AppointmentStatusCancelled &&
			!a.StartTime.Before(from) && !a.StartTime.After(to)
	}), nil
}

func (m *mockAppointmentRepo) FindUpcoming(db *gorm.DB, participantID uuid.UUID, after time.Time) ([]entity.Appointment, error) {
	return m.filter(func(a *entity.Appointment) bool {
		return a.HasParticipant(participantID) &&
			a.Status == entity.AppointmentStatusScheduled &&
			a.StartTime.After(after)
	}), nil
}

func (m *mockAppointmentRepo) TransitionStatus(db *gorm.DB, id uuid.UUID, allowed []entity.AppointmentStatus, next entity.AppointmentStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return 0, nil
	}
	for _, s := range allowed {
		if a.Status == s {
			a.Status = next
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockAppointmentRepo) UpdateNotes(db *gorm.DB, id uuid.UUID, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.appointments[id]; ok {
		a.Notes = notes
	}
	return nil
}

func (m *mockAppointmentRepo) Delete(db *gorm.DB, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.appointments, id)
	return nil
}

func (m *mockAppointmentRepo) filter(keep func(*entity.Appointment) bool) []entity.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Appointment
	for _, a := range m.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// mockCallProvider tracks provisioned and ended sessions
type mockCallProvider struct {
	mu      sync.Mutex
	created []string
	ended   []string
	minted  int

	createErr error
	endErr    error
	mintErr   error
}

func (m *mockCallProvider) CreateSession(ctx context.Context, sessionID string, members []service.CallMember, meta service.CallMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, sessionID)
	return nil
}

func (m *mockCallProvider) EndSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.endErr != nil {
		return m.endErr
	}
	m.ended = append(m.ended, sessionID)
	return nil
}

func (m *mockCallProvider) MintToken(sessionID string, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mintErr != nil {
		return "", m.mintErr
	}
	m.minted++
	return fmt.Sprintf("token-%s-%d", sessionID, m.minted), nil
}
