package model

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

type PrescriptionStatus string

const (
	PrescriptionStatusActive    PrescriptionStatus = "Active"
	PrescriptionStatusCompleted PrescriptionStatus = "Completed"
	PrescriptionStatusCancelled PrescriptionStatus = "Cancelled"
)

// ValidFrequencies is the fixed dosing-frequency enumeration.
var ValidFrequencies = []string{
	"Once daily",
	"Twice daily",
	"Thrice daily",
	"Every 4 hours",
	"Every 6 hours",
	"Every 8 hours",
	"As needed",
	"Other",
}

func ValidFrequency(f string) bool {
	for _, v := range ValidFrequencies {
		if f == v {
			return true
		}
	}
	return false
}

// durationPattern accepts "7 days", "2 weeks", "1 months", "Until finished"
// or "Until <free text>".
var durationPattern = regexp.MustCompile(`^(\d+ (days|weeks|months)|Until finished|Until [a-zA-Z ]+)$`)

func ValidDuration(d string) bool {
	return durationPattern.MatchString(d)
}

// MedicationLine is a single ordered item on a prescription. Lines without
// an inventory reference are clinical-only and create no dispense
// obligation.
type MedicationLine struct {
	MedicationID *uuid.UUID `db:"medication_id" json:"medication_id,omitempty"`
	Name         string     `db:"name" json:"name"`
	Dosage       string     `db:"dosage" json:"dosage"`
	Frequency    string     `db:"frequency" json:"frequency"`
	Duration     string     `db:"duration" json:"duration"`
	Instructions string     `db:"instructions" json:"instructions,omitempty"`
}

type Prescription struct {
	Base
	PatientID     uuid.UUID          `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID          `db:"doctor_id" json:"doctor_id"`
	AppointmentID uuid.UUID          `db:"appointment_id" json:"appointment_id"`
	Diagnosis     string             `db:"diagnosis" json:"diagnosis"`
	Medications   []MedicationLine   `db:"-" json:"medications"`
	Instructions  string             `db:"instructions" json:"instructions"`
	FollowUpDate  *time.Time         `db:"follow_up_date" json:"follow_up_date,omitempty"`
	Status        PrescriptionStatus `db:"status" json:"status"`
	TemplateID    *uuid.UUID         `db:"template_id" json:"template_id,omitempty"`
}

type CreatePrescriptionRequest struct {
	PatientID     uuid.UUID        `json:"patient_id" binding:"required"`
	AppointmentID uuid.UUID        `json:"appointment_id" binding:"required"`
	Diagnosis     string           `json:"diagnosis" binding:"required,max=500"`
	Medications   []MedicationLine `json:"medications" binding:"required"`
	Instructions  string           `json:"instructions" binding:"required,max=1000"`
	FollowUpDate  *time.Time       `json:"follow_up_date"`
	TemplateID    *uuid.UUID       `json:"template_id"`
}

// PrescriptionTemplate is a doctor-owned reusable skeleton for faster
// prescription authoring.
type PrescriptionTemplate struct {
	Base
	DoctorID     uuid.UUID        `db:"doctor_id" json:"doctor_id"`
	Name         string           `db:"name" json:"name"`
	Diagnosis    string           `db:"diagnosis" json:"diagnosis"`
	Medications  []MedicationLine `db:"-" json:"medications"`
	Instructions string           `db:"instructions" json:"instructions"`
	IsFavorite   bool             `db:"is_favorite" json:"is_favorite"`
}

type CreateTemplateRequest struct {
	Name         string           `json:"name" binding:"required,max=100"`
	Diagnosis    string           `json:"diagnosis" binding:"required,max=500"`
	Medications  []MedicationLine `json:"medications" binding:"required,min=1"`
	Instructions string           `json:"instructions" binding:"max=1000"`
	IsFavorite   bool             `json:"is_favorite"`
}
