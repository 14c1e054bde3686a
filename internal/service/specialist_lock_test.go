package service

import (
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestLocker(t *testing.T) *SpecialistLocker {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	l := NewSpecialistLocker(log)
	t.Cleanup(l.Stop)
	return l
}

func TestLockSerializesSameSpecialist(t *testing.T) {
	l := newTestLocker(t)
	specialistID := uuid.New()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(specialistID)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestLockIndependentAcrossSpecialists(t *testing.T) {
	l := newTestLocker(t)

	unlockA := l.Lock(uuid.New())
	defer unlockA()

	// A different specialist's lock must not block while A is held
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock(uuid.New())
		unlockB()
		close(done)
	}()

	<-done
}

func TestStopIsIdempotent(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	l := NewSpecialistLocker(log)
	l.Stop()
	l.Stop()
}
