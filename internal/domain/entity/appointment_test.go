package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAppointmentStateMachine(t *testing.T) {
	all := []AppointmentStatus{
		AppointmentStatusScheduled,
		AppointmentStatusInProgress,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
		AppointmentStatusNoShow,
	}

	allowed := map[AppointmentStatus][]AppointmentStatus{
		AppointmentStatusScheduled: {
			AppointmentStatusInProgress,
			AppointmentStatusCancelled,
			AppointmentStatusNoShow,
		},
		AppointmentStatusInProgress: {
			AppointmentStatusCompleted,
			AppointmentStatusCancelled,
			AppointmentStatusNoShow,
		},
	}

	for _, from := range all {
		for _, to := range all {
			a := &Appointment{Status: from}
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, a.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestAppointmentStatusIsTerminal(t *testing.T) {
	assert.False(t, AppointmentStatusScheduled.IsTerminal())
	assert.False(t, AppointmentStatusInProgress.IsTerminal())
	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.True(t, AppointmentStatusCancelled.IsTerminal())
	assert.True(t, AppointmentStatusNoShow.IsTerminal())
}

func TestCommunicationType(t *testing.T) {
	assert.True(t, CommunicationTypeVideoCall.IsValid())
	assert.True(t, CommunicationTypePhoneCall.IsValid())
	assert.True(t, CommunicationTypeLiveChat.IsValid())
	assert.False(t, CommunicationType("smoke_signal").IsValid())

	assert.True(t, CommunicationTypeVideoCall.RequiresLiveSession())
	assert.True(t, CommunicationTypePhoneCall.RequiresLiveSession())
	assert.False(t, CommunicationTypeLiveChat.RequiresLiveSession())
}

func TestAppointmentParticipants(t *testing.T) {
	userID := uuid.New()
	specialistID := uuid.New()
	a := &Appointment{UserID: userID, SpecialistID: specialistID}

	assert.True(t, a.HasParticipant(userID))
	assert.True(t, a.HasParticipant(specialistID))
	assert.False(t, a.HasParticipant(uuid.New()))

	assert.True(t, a.IsSpecialist(specialistID))
	assert.False(t, a.IsSpecialist(userID))
}
