package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/medicure/hms-api/pkg/errors"

	"github.com/medicure/hms-api/internal/model"
)

const appointmentColumns = `
	id, patient_id, doctor_id, department, first_name, last_name, email,
	phone, dob, gender, address, appointment_date, start_time, end_time,
	status, has_visited, doctor_notes, reschedule_reason, check_in_at,
	started_at, ended_at, waiting_time, consultation_duration,
	created_at, updated_at
`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.Department,
		appointment.FirstName,
		appointment.LastName,
		appointment.Email,
		appointment.Phone,
		appointment.DOB,
		appointment.Gender,
		appointment.Address,
		appointment.AppointmentDate,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Status,
		appointment.HasVisited,
		appointment.DoctorNotes,
		appointment.RescheduleReason,
		appointment.CheckInAt,
		appointment.StartedAt,
		appointment.EndedAt,
		appointment.WaitingTime,
		appointment.ConsultationDuration,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET appointment_date = $1, start_time = $2, end_time = $3,
		    status = $4, has_visited = $5, doctor_notes = $6,
		    reschedule_reason = $7, check_in_at = $8, started_at = $9,
		    ended_at = $10, waiting_time = $11, consultation_duration = $12,
		    updated_at = $13
		WHERE id = $14
	`
	appointment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		appointment.AppointmentDate,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Status,
		appointment.HasVisited,
		appointment.DoctorNotes,
		appointment.RescheduleReason,
		appointment.CheckInAt,
		appointment.StartedAt,
		appointment.EndedAt,
		appointment.WaitingTime,
		appointment.ConsultationDuration,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.DoctorID != uuid.Nil {
			query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
			args = append(args, filters.DoctorID)
			argCount++
		}
		if filters.PatientID != uuid.Nil {
			query += fmt.Sprintf(" AND patient_id = $%d", argCount)
			args = append(args, filters.PatientID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if !filters.FromDate.IsZero() && !filters.ToDate.IsZero() {
			query += fmt.Sprintf(" AND appointment_date BETWEEN $%d::date AND $%d::date", argCount, argCount+1)
			args = append(args, filters.FromDate, filters.ToDate)
			argCount += 2
		}
	}

	query += " ORDER BY appointment_date ASC, start_time ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) FindConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, window model.TimeWindow, excludeID *uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		AND appointment_date = $2::date
		AND status NOT IN ($3, $4)
		AND start_time < $5
		AND end_time > $6
	`
	args := []interface{}{
		doctorID, date,
		model.AppointmentStatusCancelled, model.AppointmentStatusRejected,
		window.End, window.Start,
	}

	if excludeID != nil {
		query += " AND id != $7"
		args = append(args, *excludeID)
	}

	query += " ORDER BY start_time ASC LIMIT 1"

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return &appointment, nil
}
