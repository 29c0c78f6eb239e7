package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medicure/hms-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository reads the identity directory. Writes happen in the
	// account system, outside this service.
	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		FindDoctors(ctx context.Context, firstName, lastName, department string) ([]*model.User, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// FindConflict returns the first appointment of the doctor on the
		// given date whose [start,end) window overlaps the supplied one,
		// skipping cancelled/rejected appointments and excludeID.
		FindConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, window model.TimeWindow, excludeID *uuid.UUID) (*model.Appointment, error)
	}

	PrescriptionRepository interface {
		// CreateWithDispense persists the prescription, its companion
		// dispense record and the appointment completion in one
		// transaction.
		CreateWithDispense(ctx context.Context, p *model.Prescription, d *model.MedicationDispense, apt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Prescription, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error)
	}

	TemplateRepository interface {
		Create(ctx context.Context, tpl *model.PrescriptionTemplate) error
		Get(ctx context.Context, id uuid.UUID) (*model.PrescriptionTemplate, error)
		Update(ctx context.Context, tpl *model.PrescriptionTemplate) error
		Delete(ctx context.Context, id, doctorID uuid.UUID) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID, favoriteOnly bool) ([]*model.PrescriptionTemplate, error)
	}

	InvoiceRepository interface {
		// Create assigns the invoice number from an atomically
		// incremented per-(year,month) sequence and inserts the invoice
		// in the same transaction.
		Create(ctx context.Context, invoice *model.Invoice) error
		Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
		Update(ctx context.Context, invoice *model.Invoice) error
		ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)
		List(ctx context.Context) ([]*model.Invoice, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Invoice, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Invoice, error)
	}

	MedicationRepository interface {
		Create(ctx context.Context, med *model.Medication) error
		Get(ctx context.Context, id uuid.UUID) (*model.Medication, error)
		Update(ctx context.Context, med *model.Medication) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Medication, error)
		ListLowStock(ctx context.Context, threshold int) ([]*model.Medication, error)
		ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*model.Medication, error)
	}

	DispenseRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.MedicationDispense, error)
		// Fulfill decrements stock for every line and marks the record
		// dispensed in one transaction; any insufficient line rolls the
		// whole operation back.
		Fulfill(ctx context.Context, rec *model.MedicationDispense) error
		List(ctx context.Context) ([]*model.MedicationDispense, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicationDispense, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
