package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/medicure/hms-api/pkg/errors"
	"github.com/medicure/hms-api/pkg/metrics"

	"github.com/medicure/hms-api/internal/model"
	"github.com/medicure/hms-api/internal/service/event"
)

var testMetrics = metrics.NewMetrics("hms_test", "billing")

type fakeApptRepo struct {
	appts map[uuid.UUID]*model.Appointment
}

func (f *fakeApptRepo) Create(_ context.Context, apt *model.Appointment) error {
	apt.ID = uuid.New()
	f.appts[apt.ID] = apt
	return nil
}

func (f *fakeApptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := f.appts[id]
	if !ok {
		return nil, apperrors.NewNotFound("appointment")
	}
	return apt, nil
}

func (f *fakeApptRepo) Update(_ context.Context, apt *model.Appointment) error {
	f.appts[apt.ID] = apt
	return nil
}

func (f *fakeApptRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.appts, id)
	return nil
}

func (f *fakeApptRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeApptRepo) FindConflict(_ context.Context, _ uuid.UUID, _ time.Time, _ model.TimeWindow, _ *uuid.UUID) (*model.Appointment, error) {
	return nil, nil
}

// fakeInvoiceRepo numbers invoices from a monotonic counter the way the
// store's monthly sequence does.
type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]*model.Invoice
	counter  int
}

func (f *fakeInvoiceRepo) Create(_ context.Context, invoice *model.Invoice) error {
	for _, existing := range f.invoices {
		if existing.AppointmentID == invoice.AppointmentID {
			return apperrors.NewConflict("invoice already exists for this appointment")
		}
	}
	f.counter++
	now := time.Now()
	invoice.ID = uuid.New()
	invoice.DateIssued = now
	invoice.InvoiceNumber = fmt.Sprintf("INV-%02d-%02d-%04d", now.Year()%100, int(now.Month()), f.counter)
	f.invoices[invoice.ID] = invoice
	return nil
}

func (f *fakeInvoiceRepo) Get(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, ok := f.invoices[id]
	if !ok {
		return nil, apperrors.NewNotFound("invoice")
	}
	return invoice, nil
}

func (f *fakeInvoiceRepo) Update(_ context.Context, invoice *model.Invoice) error {
	f.invoices[invoice.ID] = invoice
	return nil
}

func (f *fakeInvoiceRepo) ExistsForAppointment(_ context.Context, appointmentID uuid.UUID) (bool, error) {
	for _, invoice := range f.invoices {
		if invoice.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInvoiceRepo) List(_ context.Context) ([]*model.Invoice, error) {
	var out []*model.Invoice
	for _, invoice := range f.invoices {
		out = append(out, invoice)
	}
	return out, nil
}

func (f *fakeInvoiceRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Invoice, error) {
	var out []*model.Invoice
	for _, invoice := range f.invoices {
		if invoice.PatientID == patientID {
			out = append(out, invoice)
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.Invoice, error) {
	var out []*model.Invoice
	for _, invoice := range f.invoices {
		if invoice.DoctorID == doctorID {
			out = append(out, invoice)
		}
	}
	return out, nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(_ context.Context, e *model.OutboxEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeOutboxRepo) GetPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.OutboxStatus, _ *string) error {
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type noopNotifier struct{}

func (noopNotifier) AppointmentBooked(context.Context, *model.Appointment, string) {}
func (noopNotifier) AppointmentStatusChanged(context.Context, *model.Appointment)  {}
func (noopNotifier) AppointmentRescheduled(context.Context, *model.Appointment)    {}
func (noopNotifier) InvoiceIssued(context.Context, *model.Invoice, string, string) {}

type testEnv struct {
	svc      *Service
	invoices *fakeInvoiceRepo
	appts    *fakeApptRepo
	doctorID uuid.UUID
	apt      *model.Appointment
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	appts := &fakeApptRepo{appts: make(map[uuid.UUID]*model.Appointment)}
	invoices := &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}

	env := &testEnv{
		svc:      NewService(invoices, appts, event.NewService(&fakeOutboxRepo{}), noopNotifier{}, testMetrics),
		invoices: invoices,
		appts:    appts,
		doctorID: uuid.New(),
	}

	env.apt = &model.Appointment{
		PatientID:  uuid.New(),
		DoctorID:   env.doctorID,
		FirstName:  "John",
		LastName:   "Smith",
		Email:      "john.smith@example.com",
		Status:     model.AppointmentStatusCompleted,
		HasVisited: true,
	}
	env.apt.ID = uuid.New()
	appts.appts[env.apt.ID] = env.apt

	return env
}

func (e *testEnv) createRequest() *model.CreateInvoiceRequest {
	return &model.CreateInvoiceRequest{
		PatientID:     e.apt.PatientID,
		AppointmentID: e.apt.ID,
		Items: []model.InvoiceItem{
			{Description: "Consultation", Quantity: 1, UnitPrice: 100},
			{Description: "ECG", Quantity: 2, UnitPrice: 25},
		},
		TaxRate: 10,
	}
}

func TestCreateInvoice(t *testing.T) {
	env := newTestEnv(t)

	invoice, err := env.svc.CreateInvoice(context.Background(), env.doctorID, model.RoleDoctor, env.createRequest())
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusUnpaid, invoice.PaymentStatus)
	assert.Regexp(t, `^INV-\d{2}-\d{2}-\d{4}$`, invoice.InvoiceNumber)
	assert.InDelta(t, 150.0, invoice.SubTotal, 0.001)
	assert.InDelta(t, 15.0, invoice.TaxAmount, 0.001)
	assert.InDelta(t, 165.0, invoice.TotalAmount, 0.001)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), invoice.DueDate, time.Minute)
}

func TestCreateInvoiceRecomputesItemAmounts(t *testing.T) {
	env := newTestEnv(t)

	req := env.createRequest()
	req.Items[0].Amount = 9999
	req.Items[1].Amount = 0.01

	invoice, err := env.svc.CreateInvoice(context.Background(), env.doctorID, model.RoleDoctor, req)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, invoice.Items[0].Amount, 0.001)
	assert.InDelta(t, 50.0, invoice.Items[1].Amount, 0.001)
	assert.InDelta(t, 150.0, invoice.SubTotal, 0.001)
	assert.InDelta(t, 165.0, invoice.TotalAmount, 0.001)
}

func TestCreateInvoiceRequiresVisit(t *testing.T) {
	env := newTestEnv(t)
	env.apt.HasVisited = false

	_, err := env.svc.CreateInvoice(context.Background(), env.doctorID, model.RoleDoctor, env.createRequest())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestCreateInvoiceDuplicate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateInvoice(context.Background(), env.doctorID, model.RoleDoctor, env.createRequest())
	require.NoError(t, err)

	_, err = env.svc.CreateInvoice(context.Background(), env.doctorID, model.RoleDoctor, env.createRequest())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestCreateInvoiceAuthorization(t *testing.T) {
	env := newTestEnv(t)

	// A doctor who does not own the appointment is rejected.
	_, err := env.svc.CreateInvoice(context.Background(), uuid.New(), model.RoleDoctor, env.createRequest())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	// Admins can invoice any appointment.
	_, err = env.svc.CreateInvoice(context.Background(), uuid.New(), model.RoleAdmin, env.createRequest())
	assert.NoError(t, err)
}

func TestCreateInvoiceExcessiveDiscount(t *testing.T) {
	env := newTestEnv(t)

	req := env.createRequest()
	req.DiscountAmount = 500

	_, err := env.svc.CreateInvoice(context.Background(), env.doctorID, model.RoleDoctor, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestUpdatePaymentStatus(t *testing.T) {
	env := newTestEnv(t)

	invoice, err := env.svc.CreateInvoice(context.Background(), env.doctorID, model.RoleDoctor, env.createRequest())
	require.NoError(t, err)

	// Non-Unpaid statuses need a payment method.
	_, err = env.svc.UpdatePaymentStatus(context.Background(), invoice.ID,
		&model.UpdatePaymentStatusRequest{PaymentStatus: model.PaymentStatusPartiallyPaid})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	_, err = env.svc.UpdatePaymentStatus(context.Background(), invoice.ID,
		&model.UpdatePaymentStatusRequest{PaymentStatus: model.PaymentStatusPaid, PaymentMethod: "IOU"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	half := 80.0
	partial, err := env.svc.UpdatePaymentStatus(context.Background(), invoice.ID,
		&model.UpdatePaymentStatusRequest{
			PaymentStatus: model.PaymentStatusPartiallyPaid,
			PaymentMethod: "Cash",
			PaidAmount:    &half,
		})
	require.NoError(t, err)
	assert.InDelta(t, 80.0, partial.PaidAmount, 0.001)

	paid, err := env.svc.UpdatePaymentStatus(context.Background(), invoice.ID,
		&model.UpdatePaymentStatusRequest{PaymentStatus: model.PaymentStatusPaid, PaymentMethod: "Cash"})
	require.NoError(t, err)
	assert.InDelta(t, paid.TotalAmount, paid.PaidAmount, 0.001)

	// Payment never moves backwards.
	_, err = env.svc.UpdatePaymentStatus(context.Background(), invoice.ID,
		&model.UpdatePaymentStatusRequest{PaymentStatus: model.PaymentStatusUnpaid})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestRevenueStats(t *testing.T) {
	env := newTestEnv(t)

	invoice, err := env.svc.CreateInvoice(context.Background(), env.doctorID, model.RoleDoctor, env.createRequest())
	require.NoError(t, err)

	second := &model.Appointment{
		PatientID:  uuid.New(),
		DoctorID:   env.doctorID,
		Status:     model.AppointmentStatusCompleted,
		HasVisited: true,
	}
	second.ID = uuid.New()
	env.appts.appts[second.ID] = second

	req := env.createRequest()
	req.PatientID = second.PatientID
	req.AppointmentID = second.ID
	_, err = env.svc.CreateInvoice(context.Background(), env.doctorID, model.RoleDoctor, req)
	require.NoError(t, err)

	_, err = env.svc.UpdatePaymentStatus(context.Background(), invoice.ID,
		&model.UpdatePaymentStatusRequest{PaymentStatus: model.PaymentStatusPaid, PaymentMethod: "Cash"})
	require.NoError(t, err)

	stats, err := env.svc.RevenueStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.InvoiceCount)
	assert.InDelta(t, 330.0, stats.TotalRevenue, 0.001)
	assert.InDelta(t, 165.0, stats.PaidRevenue, 0.001)
	assert.InDelta(t, 165.0, stats.PendingRevenue, 0.001)
}
