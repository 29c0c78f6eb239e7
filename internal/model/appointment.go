package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "Pending"
	AppointmentStatusAccepted    AppointmentStatus = "Accepted"
	AppointmentStatusRejected    AppointmentStatus = "Rejected"
	AppointmentStatusCompleted   AppointmentStatus = "Completed"
	AppointmentStatusCancelled   AppointmentStatus = "Cancelled"
	AppointmentStatusRescheduled AppointmentStatus = "Rescheduled"
)

// ValidAppointmentStatuses lists every status the API accepts.
var ValidAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusAccepted,
	AppointmentStatusRejected,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
	AppointmentStatusRescheduled,
}

func (s AppointmentStatus) Valid() bool {
	for _, v := range ValidAppointmentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further lifecycle transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted ||
		s == AppointmentStatusRejected ||
		s == AppointmentStatusCancelled
}

// BlocksSlot reports whether the appointment still occupies its time window
// for conflict-detection purposes.
func (s AppointmentStatus) BlocksSlot() bool {
	return s != AppointmentStatusCancelled && s != AppointmentStatusRejected
}

type Appointment struct {
	Base
	PatientID        uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID         uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Department       string            `db:"department" json:"department"`
	FirstName        string            `db:"first_name" json:"first_name"`
	LastName         string            `db:"last_name" json:"last_name"`
	Email            string            `db:"email" json:"email"`
	Phone            string            `db:"phone" json:"phone"`
	DOB              time.Time         `db:"dob" json:"dob"`
	Gender           string            `db:"gender" json:"gender"`
	Address          string            `db:"address" json:"address"`
	AppointmentDate  time.Time         `db:"appointment_date" json:"appointment_date"`
	StartTime        string            `db:"start_time" json:"start_time"`
	EndTime          string            `db:"end_time" json:"end_time"`
	Status           AppointmentStatus `db:"status" json:"status"`
	HasVisited       bool              `db:"has_visited" json:"has_visited"`
	DoctorNotes      string            `db:"doctor_notes" json:"doctor_notes,omitempty"`
	RescheduleReason string            `db:"reschedule_reason" json:"reschedule_reason,omitempty"`

	// Two-step time capture: check-in by the patient, start/end by the
	// doctor; derived fields are computed on write, never recomputed.
	CheckInAt            *time.Time `db:"check_in_at" json:"check_in_at,omitempty"`
	StartedAt            *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt              *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	WaitingTime          *int       `db:"waiting_time" json:"waiting_time,omitempty"`
	ConsultationDuration *int       `db:"consultation_duration" json:"consultation_duration,omitempty"`
}

// TimeWindow is a half-open [Start,End) window in "HH:MM" 24-hour format.
type TimeWindow struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// Overlaps implements the scheduling conflict rule: two windows conflict
// iff s1 < e2 && e1 > s2. Touching boundaries do not conflict.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start < other.End && w.End > other.Start
}

type CreateAppointmentRequest struct {
	FirstName       string     `json:"first_name" binding:"required,min=3"`
	LastName        string     `json:"last_name" binding:"required,min=3"`
	Email           string     `json:"email" binding:"required,email"`
	Phone           string     `json:"phone" binding:"required,len=10"`
	DOB             time.Time  `json:"dob" binding:"required"`
	Gender          string     `json:"gender" binding:"required"`
	Address         string     `json:"address" binding:"required"`
	Department      string     `json:"department" binding:"required"`
	AppointmentDate time.Time  `json:"appointment_date" binding:"required"`
	TimeWindow      TimeWindow `json:"time_window" binding:"required"`

	// Preferred: book by doctor id. The name pair remains supported for
	// the public booking form and is resolved against the directory.
	DoctorID        *uuid.UUID `json:"doctor_id"`
	DoctorFirstName string     `json:"doctor_first_name"`
	DoctorLastName  string     `json:"doctor_last_name"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required"`
	Notes  string            `json:"notes"`
}

type RescheduleAppointmentRequest struct {
	NewDate   time.Time  `json:"new_date" binding:"required"`
	NewWindow TimeWindow `json:"new_window" binding:"required"`
	Reason    string     `json:"reason"`
}

// AdminUpdateAppointmentRequest lets an admin override arbitrary fields.
type AdminUpdateAppointmentRequest struct {
	Status          *AppointmentStatus `json:"status"`
	AppointmentDate *time.Time         `json:"appointment_date"`
	TimeWindow      *TimeWindow        `json:"time_window"`
	DoctorNotes     *string            `json:"doctor_notes"`
	HasVisited      *bool              `json:"has_visited"`
}

type AppointmentFilters struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	FromDate  time.Time
	ToDate    time.Time
}
