package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale locks
	lockCleanupInterval = 10 * time.Minute

	// How long a lock must be unused before cleanup
	lockStaleThreshold = 10 * time.Minute
)

// SpecialistLocker serializes queue mutations per specialist. Entries for
// different specialists never contend with each other.
//
// Lock Ordering (to prevent deadlocks):
// 1. Acquire the specialist lock FIRST
// 2. Then open the DB transaction
type SpecialistLocker struct {
	log *logrus.Logger

	// Per-specialist mutex
	locks sync.Map // map[uuid.UUID]*lockWithTimestamp

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// lockWithTimestamp tracks lock usage for cleanup
type lockWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewSpecialistLocker creates a new SpecialistLocker.
// Starts background goroutine for stale-lock cleanup.
// Call Stop() during graceful shutdown.
func NewSpecialistLocker(log *logrus.Logger) *SpecialistLocker {
	l := &SpecialistLocker{
		log:      log,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Lock acquires the mutex for a specialist and returns the unlock function
func (l *SpecialistLocker) Lock(specialistID uuid.UUID) func() {
	lt := l.getLock(specialistID)
	lt.mu.Lock()
	return lt.mu.Unlock
}

// Stop gracefully shuts down the locker.
// Safe to call multiple times.
func (l *SpecialistLocker) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
		l.log.Info("SpecialistLocker stopped")
	}
}

func (l *SpecialistLocker) getLock(specialistID uuid.UUID) *lockWithTimestamp {
	lt, _ := l.locks.LoadOrStore(specialistID, &lockWithTimestamp{})
	result := lt.(*lockWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (l *SpecialistLocker) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(lockCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			l.log.Debug("Lock cleanup goroutine stopping")
			return
		case <-ticker.C:
			l.cleanupStaleLocks()
		}
	}
}

// cleanupStaleLocks removes unused locks using TryLock for safety.
// The lastUsed check happens inside the lock so a concurrent Lock call
// cannot slip between the check and the delete.
func (l *SpecialistLocker) cleanupStaleLocks() {
	cutoffTime := time.Now().Add(-lockStaleThreshold).Unix()
	var cleaned int

	l.locks.Range(func(key, value any) bool {
		specialistID, ok := key.(uuid.UUID)
		if !ok {
			return true
		}

		lt, ok := value.(*lockWithTimestamp)
		if !ok {
			return true
		}

		if lt.mu.TryLock() {
			if lt.lastUsed.Load() < cutoffTime {
				l.locks.Delete(specialistID)
				cleaned++
			}
			lt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		l.log.Debugf("Cleaned up %d stale specialist locks", cleaned)
	}
}
