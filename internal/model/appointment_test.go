package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatusTerminal(t *testing.T) {
	assert.True(t, AppointmentStatusCompleted.Terminal())
	assert.True(t, AppointmentStatusRejected.Terminal())
	assert.True(t, AppointmentStatusCancelled.Terminal())

	assert.False(t, AppointmentStatusPending.Terminal())
	assert.False(t, AppointmentStatusAccepted.Terminal())
	assert.False(t, AppointmentStatusRescheduled.Terminal())
}

func TestAppointmentStatusBlocksSlot(t *testing.T) {
	assert.False(t, AppointmentStatusCancelled.BlocksSlot())
	assert.False(t, AppointmentStatusRejected.BlocksSlot())

	// Completed appointments keep their slot so history stays consistent.
	assert.True(t, AppointmentStatusCompleted.BlocksSlot())
	assert.True(t, AppointmentStatusPending.BlocksSlot())
	assert.True(t, AppointmentStatusAccepted.BlocksSlot())
	assert.True(t, AppointmentStatusRescheduled.BlocksSlot())
}

func TestAppointmentStatusValid(t *testing.T) {
	for _, s := range ValidAppointmentStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, AppointmentStatus("Scheduled").Valid())
	assert.False(t, AppointmentStatus("").Valid())
}

func TestTimeWindowOverlaps(t *testing.T) {
	base := TimeWindow{Start: "09:00", End: "10:00"}

	tests := []struct {
		name     string
		other    TimeWindow
		overlaps bool
	}{
		{"identical", TimeWindow{Start: "09:00", End: "10:00"}, true},
		{"contained", TimeWindow{Start: "09:15", End: "09:45"}, true},
		{"straddles start", TimeWindow{Start: "08:30", End: "09:30"}, true},
		{"straddles end", TimeWindow{Start: "09:30", End: "10:30"}, true},
		{"touching before", TimeWindow{Start: "08:00", End: "09:00"}, false},
		{"touching after", TimeWindow{Start: "10:00", End: "11:00"}, false},
		{"disjoint", TimeWindow{Start: "13:00", End: "14:00"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, base.Overlaps(tt.other))
			assert.Equal(t, tt.overlaps, tt.other.Overlaps(base))
		})
	}
}
