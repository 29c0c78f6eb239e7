package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/medicure/hms-api/pkg/errors"
	"github.com/medicure/hms-api/pkg/metrics"

	"github.com/medicure/hms-api/internal/model"
	"github.com/medicure/hms-api/internal/repository"
	"github.com/medicure/hms-api/internal/service/event"
	"github.com/medicure/hms-api/internal/service/notification"
)

const defaultDueDays = 30

type Service struct {
	invoiceRepo repository.InvoiceRepository
	apptRepo    repository.AppointmentRepository
	events      *event.Service
	notifier    notification.Service
	metrics     *metrics.Metrics
}

func NewService(invoiceRepo repository.InvoiceRepository, apptRepo repository.AppointmentRepository, events *event.Service, notifier notification.Service, m *metrics.Metrics) *Service {
	return &Service{
		invoiceRepo: invoiceRepo,
		apptRepo:    apptRepo,
		events:      events,
		notifier:    notifier,
		metrics:     m,
	}
}

func (s *Service) CreateInvoice(ctx context.Context, actorID uuid.UUID, actorRole model.Role, req *model.CreateInvoiceRequest) (*model.Invoice, error) {
	apt, err := s.apptRepo.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if actorRole != model.RoleAdmin && apt.DoctorID != actorID {
		return nil, apperrors.NewForbidden("appointment belongs to another doctor")
	}
	if apt.PatientID != req.PatientID {
		return nil, apperrors.NewValidation("appointment does not belong to this patient")
	}
	if !apt.HasVisited {
		return nil, apperrors.NewInvalidState("cannot invoice an appointment before the visit")
	}

	exists, err := s.invoiceRepo.ExistsForAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing invoice: %w", err)
	}
	if exists {
		return nil, apperrors.NewConflict("invoice already exists for this appointment")
	}

	invoice := &model.Invoice{
		PatientID:      apt.PatientID,
		DoctorID:       apt.DoctorID,
		AppointmentID:  apt.ID,
		Items:          req.Items,
		TaxRate:        req.TaxRate,
		DiscountAmount: req.DiscountAmount,
		PaymentStatus:  model.PaymentStatusUnpaid,
		Notes:          req.Notes,
	}

	// Amounts are recomputed from the line items; client totals are
	// advisory.
	for i := range invoice.Items {
		item := &invoice.Items[i]
		item.Amount = float64(item.Quantity) * item.UnitPrice
		invoice.SubTotal += item.Amount
	}
	invoice.TaxAmount = invoice.SubTotal * invoice.TaxRate / 100
	invoice.TotalAmount = invoice.SubTotal + invoice.TaxAmount - invoice.DiscountAmount
	if invoice.TotalAmount < 0 {
		return nil, apperrors.NewValidation("discount exceeds invoice total")
	}

	if req.DueDate != nil {
		invoice.DueDate = *req.DueDate
	} else {
		invoice.DueDate = time.Now().AddDate(0, 0, defaultDueDays)
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	s.metrics.InvoicesIssued.Inc()
	if err := s.events.Emit(ctx, model.EventInvoiceCreated, invoice); err != nil {
		return nil, err
	}
	s.notifier.InvoiceIssued(ctx, invoice, apt.FirstName+" "+apt.LastName, apt.Email)

	return invoice, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, req *model.UpdatePaymentStatusRequest) (*model.Invoice, error) {
	if !req.PaymentStatus.Valid() {
		return nil, apperrors.NewValidation("invalid payment status")
	}
	if req.PaymentStatus != model.PaymentStatusUnpaid {
		if req.PaymentMethod == "" {
			return nil, apperrors.NewValidation("payment method is required")
		}
		if !model.ValidPaymentMethod(req.PaymentMethod) {
			return nil, apperrors.NewValidation("invalid payment method")
		}
	}

	invoice, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !invoice.PaymentStatus.CanTransitionTo(req.PaymentStatus) {
		return nil, apperrors.NewInvalidState(fmt.Sprintf(
			"cannot move payment from %s back to %s", invoice.PaymentStatus, req.PaymentStatus))
	}

	invoice.PaymentStatus = req.PaymentStatus
	invoice.PaymentMethod = req.PaymentMethod
	switch {
	case req.PaidAmount != nil:
		invoice.PaidAmount = *req.PaidAmount
	case req.PaymentStatus == model.PaymentStatusPaid:
		invoice.PaidAmount = invoice.TotalAmount
	}

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return s.invoiceRepo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*model.Invoice, error) {
	return s.invoiceRepo.List(ctx)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Invoice, error) {
	return s.invoiceRepo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Invoice, error) {
	return s.invoiceRepo.ListByDoctor(ctx, doctorID)
}

func (s *Service) RevenueStats(ctx context.Context) (*model.RevenueStats, error) {
	invoices, err := s.invoiceRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.RevenueStats{InvoiceCount: len(invoices)}
	for _, inv := range invoices {
		stats.TotalRevenue += inv.TotalAmount
		stats.PaidRevenue += inv.PaidAmount
	}
	stats.PendingRevenue = stats.TotalRevenue - stats.PaidRevenue
	return stats, nil
}
