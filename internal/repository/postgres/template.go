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

const templateColumns = `
	id, doctor_id, name, diagnosis, medications, instructions, is_favorite,
	created_at, updated_at
`

type templateRow struct {
	model.PrescriptionTemplate
	MedicationsJSON []byte `db:"medications"`
}

func (row *templateRow) toModel() (*model.PrescriptionTemplate, error) {
	tpl := row.PrescriptionTemplate
	if err := json.Unmarshal(row.MedicationsJSON, &tpl.Medications); err != nil {
		return nil, fmt.Errorf("failed to decode template medications: %w", err)
	}
	return &tpl, nil
}

func (r *templateRepository) Create(ctx context.Context, tpl *model.PrescriptionTemplate) error {
	tpl.ID = uuid.New()
	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = time.Now()

	medsJSON, err := json.Marshal(tpl.Medications)
	if err != nil {
		return fmt.Errorf("failed to encode template medications: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO prescription_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		tpl.ID, tpl.DoctorID, tpl.Name, tpl.Diagnosis, medsJSON,
		tpl.Instructions, tpl.IsFavorite, tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *templateRepository) Get(ctx context.Context, id uuid.UUID) (*model.PrescriptionTemplate, error) {
	var row templateRow
	err := r.db.GetContext(ctx, &row, `SELECT `+templateColumns+` FROM prescription_templates WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("prescription template")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return row.toModel()
}

func (r *templateRepository) Update(ctx context.Context, tpl *model.PrescriptionTemplate) error {
	tpl.UpdatedAt = time.Now()

	medsJSON, err := json.Marshal(tpl.Medications)
	if err != nil {
		return fmt.Errorf("failed to encode template medications: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE prescription_templates
		SET name = $1, diagnosis = $2, medications = $3, instructions = $4,
		    is_favorite = $5, updated_at = $6
		WHERE id = $7 AND doctor_id = $8
	`,
		tpl.Name, tpl.Diagnosis, medsJSON, tpl.Instructions,
		tpl.IsFavorite, tpl.UpdatedAt, tpl.ID, tpl.DoctorID,
	)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("prescription template")
	}
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, id, doctorID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM prescription_templates WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("prescription template")
	}
	return nil
}

func (r *templateRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, favoriteOnly bool) ([]*model.PrescriptionTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM prescription_templates WHERE doctor_id = $1`
	if favoriteOnly {
		query += ` AND is_favorite`
	}
	query += ` ORDER BY is_favorite DESC, name ASC`

	var rows []templateRow
	if err := r.db.SelectContext(ctx, &rows, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make([]*model.PrescriptionTemplate, 0, len(rows))
	for i := range rows {
		tpl, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}
