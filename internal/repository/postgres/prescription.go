package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/medicure/hms-api/pkg/errors"

	"github.com/medicure/hms-api/internal/model"
)

const prescriptionColumns = `
	id, patient_id, doctor_id, appointment_id, diagnosis, medications,
	instructions, follow_up_date, status, template_id, created_at, updated_at
`

type prescriptionRow struct {
	model.Prescription
	MedicationsJSON []byte `db:"medications"`
}

func (row *prescriptionRow) toModel() (*model.Prescription, error) {
	p := row.Prescription
	if err := json.Unmarshal(row.MedicationsJSON, &p.Medications); err != nil {
		return nil, fmt.Errorf("failed to decode medication lines: %w", err)
	}
	return &p, nil
}

// CreateWithDispense commits the prescription, the companion dispense record
// and the appointment completion as a single transaction so a partial write
// can never leave a completed appointment without its clinical record.
func (r *prescriptionRepository) CreateWithDispense(ctx context.Context, p *model.Prescription, d *model.MedicationDispense, apt *model.Appointment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	p.ID = uuid.New()
	p.CreatedAt = now
	p.UpdatedAt = now

	medsJSON, err := json.Marshal(p.Medications)
	if err != nil {
		return fmt.Errorf("failed to encode medication lines: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO prescriptions (`+prescriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		p.ID, p.PatientID, p.DoctorID, p.AppointmentID, p.Diagnosis,
		medsJSON, p.Instructions, p.FollowUpDate, p.Status, p.TemplateID,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("prescription already exists for this appointment")
		}
		return fmt.Errorf("failed to create prescription: %w", err)
	}

	d.ID = uuid.New()
	d.PrescriptionID = p.ID
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO medication_dispenses (
			id, prescription_id, patient_id, status, notes, total_cost,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		d.ID, d.PrescriptionID, d.PatientID, d.Status, d.Notes, d.TotalCost,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dispense record: %w", err)
	}

	for i := range d.Lines {
		line := &d.Lines[i]
		line.ID = uuid.New()
		line.DispenseID = d.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO dispense_lines (
				id, dispense_id, medication_id, quantity,
				dispensed_quantity, instructions, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			line.ID, line.DispenseID, line.MedicationID, line.Quantity,
			line.DispensedQuantity, line.Instructions, line.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to create dispense line: %w", err)
		}
	}

	apt.UpdatedAt = now
	_, err = tx.ExecContext(ctx, `
		UPDATE appointments
		SET status = $1, has_visited = $2, ended_at = $3,
		    consultation_duration = $4, updated_at = $5
		WHERE id = $6
	`,
		apt.Status, apt.HasVisited, apt.EndedAt,
		apt.ConsultationDuration, apt.UpdatedAt, apt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete appointment: %w", err)
	}

	return tx.Commit()
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var row prescriptionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("prescription")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	return row.toModel()
}

func (r *prescriptionRepository) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM prescriptions WHERE appointment_id = $1)`, appointmentID)
	if err != nil {
		return false, fmt.Errorf("failed to check prescription existence: %w", err)
	}
	return exists, nil
}

func (r *prescriptionRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Prescription, error) {
	return r.list(ctx, `doctor_id`, doctorID)
}

func (r *prescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error) {
	return r.list(ctx, `patient_id`, patientID)
}

func (r *prescriptionRepository) list(ctx context.Context, column string, id uuid.UUID) ([]*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE ` + column + ` = $1 ORDER BY created_at DESC`

	var rows []prescriptionRow
	if err := r.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}

	prescriptions := make([]*model.Prescription, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		prescriptions = append(prescriptions, p)
	}
	return prescriptions, nil
}
