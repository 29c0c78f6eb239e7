package notification

import (
	"context"

	"github.com/medicure/hms-api/pkg/logger"

	"github.com/medicure/hms-api/internal/email"
	"github.com/medicure/hms-api/internal/model"
)

// Service sends patient-facing notifications. Delivery is best-effort and
// never fails the originating operation.
type Service interface {
	AppointmentBooked(ctx context.Context, apt *model.Appointment, doctorName string)
	AppointmentStatusChanged(ctx context.Context, apt *model.Appointment)
	AppointmentRescheduled(ctx context.Context, apt *model.Appointment)
	InvoiceIssued(ctx context.Context, invoice *model.Invoice, patientName, patientEmail string)
}

type service struct {
	emailSvc email.Service
	logger   *logger.Logger
}

func NewService(emailSvc email.Service, logger *logger.Logger) Service {
	return &service{emailSvc: emailSvc, logger: logger}
}

func (s *service) AppointmentBooked(ctx context.Context, apt *model.Appointment, doctorName string) {
	go func() {
		err := s.emailSvc.SendAppointmentConfirmation(
			context.WithoutCancel(ctx), apt.Email,
			apt.FirstName+" "+apt.LastName, doctorName,
			apt.AppointmentDate.Format("2006-01-02"),
			apt.StartTime+" - "+apt.EndTime,
		)
		if err != nil {
			s.logger.Error(err, "failed to send booking confirmation")
		}
	}()
}

func (s *service) AppointmentStatusChanged(ctx context.Context, apt *model.Appointment) {
	go func() {
		err := s.emailSvc.SendStatusUpdate(
			context.WithoutCancel(ctx), apt.Email,
			apt.FirstName+" "+apt.LastName, string(apt.Status),
		)
		if err != nil {
			s.logger.Error(err, "failed to send status update")
		}
	}()
}

func (s *service) AppointmentRescheduled(ctx context.Context, apt *model.Appointment) {
	go func() {
		err := s.emailSvc.SendRescheduleNotice(
			context.WithoutCancel(ctx), apt.Email,
			apt.FirstName+" "+apt.LastName,
			apt.AppointmentDate.Format("2006-01-02"),
			apt.StartTime+" - "+apt.EndTime,
			apt.RescheduleReason,
		)
		if err != nil {
			s.logger.Error(err, "failed to send reschedule notice")
		}
	}()
}

func (s *service) InvoiceIssued(ctx context.Context, invoice *model.Invoice, patientName, patientEmail string) {
	go func() {
		err := s.emailSvc.SendInvoiceIssued(
			context.WithoutCancel(ctx), patientEmail,
			patientName, invoice.InvoiceNumber, invoice.TotalAmount,
		)
		if err != nil {
			s.logger.Error(err, "failed to send invoice notice")
		}
	}()
}
