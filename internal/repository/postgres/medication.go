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

const medicationColumns = `
	id, name, generic_name, description, category, form, strength_value,
	strength_unit, manufacturer, stock_quantity, stock_unit, batch_number,
	expiry_date, reorder_level, price, is_available, created_at, updated_at
`

func (r *medicationRepository) Create(ctx context.Context, med *model.Medication) error {
	med.ID = uuid.New()
	med.CreatedAt = time.Now()
	med.UpdatedAt = time.Now()
	med.IsAvailable = med.StockQuantity > 0

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (`+medicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		med.ID, med.Name, med.GenericName, med.Description, med.Category,
		med.Form, med.StrengthValue, med.StrengthUnit, med.Manufacturer,
		med.StockQuantity, med.StockUnit, med.BatchNumber, med.ExpiryDate,
		med.ReorderLevel, med.Price, med.IsAvailable, med.CreatedAt, med.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("medication with this name and strength already exists")
		}
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

func (r *medicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	var med model.Medication
	err := r.db.GetContext(ctx, &med, `SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("medication")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}
	return &med, nil
}

func (r *medicationRepository) Update(ctx context.Context, med *model.Medication) error {
	med.UpdatedAt = time.Now()
	med.IsAvailable = med.StockQuantity > 0

	result, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET description = $1, category = $2, stock_quantity = $3,
		    batch_number = $4, expiry_date = $5, reorder_level = $6,
		    price = $7, is_available = $8, updated_at = $9
		WHERE id = $10
	`,
		med.Description, med.Category, med.StockQuantity, med.BatchNumber,
		med.ExpiryDate, med.ReorderLevel, med.Price, med.IsAvailable,
		med.UpdatedAt, med.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medication: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("medication")
	}
	return nil
}

func (r *medicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("medication")
	}
	return nil
}

func (r *medicationRepository) List(ctx context.Context) ([]*model.Medication, error) {
	var meds []*model.Medication
	err := r.db.SelectContext(ctx, &meds,
		`SELECT `+medicationColumns+` FROM medications ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return meds, nil
}

func (r *medicationRepository) ListLowStock(ctx context.Context, threshold int) ([]*model.Medication, error) {
	var meds []*model.Medication
	err := r.db.SelectContext(ctx, &meds, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE stock_quantity <= GREATEST(reorder_level, $1)
		ORDER BY stock_quantity ASC
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock medications: %w", err)
	}
	return meds, nil
}

func (r *medicationRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*model.Medication, error) {
	var meds []*model.Medication
	err := r.db.SelectContext(ctx, &meds, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE expiry_date <= $1 AND stock_quantity > 0
		ORDER BY expiry_date ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring medications: %w", err)
	}
	return meds, nil
}
