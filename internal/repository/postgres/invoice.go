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

const invoiceColumns = `
	id, patient_id, doctor_id, appointment_id, invoice_number, date_issued,
	due_date, items, sub_total, tax_rate, tax_amount, discount_amount,
	total_amount, payment_status, payment_method, paid_amount, notes,
	created_at, updated_at
`

type invoiceRow struct {
	model.Invoice
	ItemsJSON []byte `db:"items"`
}

func (row *invoiceRow) toModel() (*model.Invoice, error) {
	inv := row.Invoice
	if err := json.Unmarshal(row.ItemsJSON, &inv.Items); err != nil {
		return nil, fmt.Errorf("failed to decode invoice items: %w", err)
	}
	return &inv, nil
}

// invoiceNumber renders INV-YY-MM-#### from the monthly sequence counter.
func invoiceNumber(issued time.Time, counter int) string {
	return fmt.Sprintf("INV-%02d-%02d-%04d", issued.Year()%100, int(issued.Month()), counter)
}

// Create claims the next number from the per-month sequence and inserts the
// invoice inside one transaction, so concurrent issuance can neither skip nor
// duplicate a number.
func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	invoice.ID = uuid.New()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	invoice.DateIssued = now

	var counter int
	err = tx.GetContext(ctx, &counter, `
		INSERT INTO invoice_sequences (year, month, counter)
		VALUES ($1, $2, 1)
		ON CONFLICT (year, month)
		DO UPDATE SET counter = invoice_sequences.counter + 1
		RETURNING counter
	`, now.Year(), int(now.Month()))
	if err != nil {
		return fmt.Errorf("failed to advance invoice sequence: %w", err)
	}
	invoice.InvoiceNumber = invoiceNumber(now, counter)

	itemsJSON, err := json.Marshal(invoice.Items)
	if err != nil {
		return fmt.Errorf("failed to encode invoice items: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		invoice.ID, invoice.PatientID, invoice.DoctorID, invoice.AppointmentID,
		invoice.InvoiceNumber, invoice.DateIssued, invoice.DueDate, itemsJSON,
		invoice.SubTotal, invoice.TaxRate, invoice.TaxAmount, invoice.DiscountAmount,
		invoice.TotalAmount, invoice.PaymentStatus, invoice.PaymentMethod,
		invoice.PaidAmount, invoice.Notes, invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("invoice already exists for this appointment")
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return tx.Commit()
}

func (r *invoiceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var row invoiceRow
	err := r.db.GetContext(ctx, &row, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("invoice")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return row.toModel()
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	invoice.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE invoices
		SET payment_status = $1, payment_method = $2, paid_amount = $3,
		    notes = $4, updated_at = $5
		WHERE id = $6
	`,
		invoice.PaymentStatus, invoice.PaymentMethod, invoice.PaidAmount,
		invoice.Notes, invoice.UpdatedAt, invoice.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("invoice")
	}
	return nil
}

func (r *invoiceRepository) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE appointment_id = $1)`, appointmentID)
	if err != nil {
		return false, fmt.Errorf("failed to check invoice existence: %w", err)
	}
	return exists, nil
}

func (r *invoiceRepository) List(ctx context.Context) ([]*model.Invoice, error) {
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY date_issued DESC`)
}

func (r *invoiceRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Invoice, error) {
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE patient_id = $1 ORDER BY date_issued DESC`, patientID)
}

func (r *invoiceRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Invoice, error) {
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE doctor_id = $1 ORDER BY date_issued DESC`, doctorID)
}

func (r *invoiceRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Invoice, error) {
	var rows []invoiceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	invoices := make([]*model.Invoice, 0, len(rows))
	for i := range rows {
		inv, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}
