package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/medicure/hms-api/pkg/errors"

	"github.com/medicure/hms-api/internal/model"
)

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, role, department,
		       created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) FindDoctors(ctx context.Context, firstName, lastName, department string) ([]*model.User, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, role, department,
		       created_at, updated_at
		FROM users
		WHERE first_name = $1
		AND last_name = $2
		AND department = $3
		AND role = $4
	`
	var doctors []*model.User
	err := r.db.SelectContext(ctx, &doctors, query, firstName, lastName, department, model.RoleDoctor)
	if err != nil {
		return nil, fmt.Errorf("failed to find doctors: %w", err)
	}
	return doctors, nil
}
