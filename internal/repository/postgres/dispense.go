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

const dispenseColumns = `
	id, prescription_id, patient_id, status, dispensed_by, dispensed_at,
	notes, total_cost, created_at, updated_at
`

func (r *dispenseRepository) Get(ctx context.Context, id uuid.UUID) (*model.MedicationDispense, error) {
	var rec model.MedicationDispense
	err := r.db.GetContext(ctx, &rec, `SELECT `+dispenseColumns+` FROM medication_dispenses WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("dispense record")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispense record: %w", err)
	}
	if err := r.loadLines(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Fulfill decrements stock for every line with a guarded update, so a line
// whose stock ran out since the record was created fails the condition and
// rolls back the whole transaction with no stock mutated.
func (r *dispenseRepository) Fulfill(ctx context.Context, rec *model.MedicationDispense) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range rec.Lines {
		line := &rec.Lines[i]

		result, err := tx.ExecContext(ctx, `
			UPDATE medications
			SET stock_quantity = stock_quantity - $1,
			    is_available = (stock_quantity - $1) > 0,
			    updated_at = $2
			WHERE id = $3 AND stock_quantity >= $1
		`, line.Quantity, time.Now(), line.MedicationID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			var name string
			if err := tx.GetContext(ctx, &name, `SELECT name FROM medications WHERE id = $1`, line.MedicationID); err != nil {
				return apperrors.NewInvalidState("insufficient stock for requested medication")
			}
			return apperrors.NewInvalidState(fmt.Sprintf("insufficient stock for %s", name))
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE dispense_lines
			SET dispensed_quantity = $1, status = $2
			WHERE id = $3
		`, line.DispensedQuantity, line.Status, line.ID)
		if err != nil {
			return fmt.Errorf("failed to update dispense line: %w", err)
		}
	}

	rec.UpdatedAt = time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE medication_dispenses
		SET status = $1, dispensed_by = $2, dispensed_at = $3, notes = $4,
		    total_cost = $5, updated_at = $6
		WHERE id = $7
	`,
		rec.Status, rec.DispensedBy, rec.DispensedAt, rec.Notes,
		rec.TotalCost, rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispense record: %w", err)
	}

	return tx.Commit()
}

func (r *dispenseRepository) List(ctx context.Context) ([]*model.MedicationDispense, error) {
	return r.list(ctx, `SELECT `+dispenseColumns+` FROM medication_dispenses ORDER BY created_at DESC`)
}

func (r *dispenseRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicationDispense, error) {
	return r.list(ctx, `SELECT `+dispenseColumns+` FROM medication_dispenses WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
}

func (r *dispenseRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.MedicationDispense, error) {
	var records []*model.MedicationDispense
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list dispense records: %w", err)
	}
	for _, rec := range records {
		if err := r.loadLines(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *dispenseRepository) loadLines(ctx context.Context, rec *model.MedicationDispense) error {
	err := r.db.SelectContext(ctx, &rec.Lines, `
		SELECT id, dispense_id, medication_id, quantity, dispensed_quantity,
		       instructions, status
		FROM dispense_lines
		WHERE dispense_id = $1
	`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to load dispense lines: %w", err)
	}
	return nil
}
