package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/medicure/hms-api/config"
)

type Service interface {
	SendAppointmentConfirmation(ctx context.Context, to, patientName, doctorName, date, window string) error
	SendStatusUpdate(ctx context.Context, to, patientName, status string) error
	SendRescheduleNotice(ctx context.Context, to, patientName, newDate, newWindow, reason string) error
	SendInvoiceIssued(ctx context.Context, to, patientName, invoiceNumber string, total float64) error
	SendCustom(ctx context.Context, to, subject, content string) error
}

type service struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg config.EmailConfig) Service {
	return &service{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.From,
	}
}

func (s *service) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *service) SendAppointmentConfirmation(_ context.Context, to, patientName, doctorName, date, window string) error {
	body := fmt.Sprintf(`
		<h2>Appointment Confirmed</h2>
		<p>Dear %s,</p>
		<p>Your appointment with Dr. %s has been booked for %s at %s.</p>
		<p>Please arrive 15 minutes early and bring a valid ID.</p>
	`, patientName, doctorName, date, window)
	return s.send(to, "Your appointment is booked", body)
}

func (s *service) SendStatusUpdate(_ context.Context, to, patientName, status string) error {
	body := fmt.Sprintf(`
		<h2>Appointment Update</h2>
		<p>Dear %s,</p>
		<p>Your appointment status has changed to <strong>%s</strong>.</p>
	`, patientName, status)
	return s.send(to, "Appointment status updated", body)
}

func (s *service) SendRescheduleNotice(_ context.Context, to, patientName, newDate, newWindow, reason string) error {
	body := fmt.Sprintf(`
		<h2>Appointment Rescheduled</h2>
		<p>Dear %s,</p>
		<p>Your appointment has been moved to %s at %s.</p>
	`, patientName, newDate, newWindow)
	if reason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	return s.send(to, "Appointment rescheduled", body)
}

func (s *service) SendInvoiceIssued(_ context.Context, to, patientName, invoiceNumber string, total float64) error {
	body := fmt.Sprintf(`
		<h2>Invoice %s</h2>
		<p>Dear %s,</p>
		<p>An invoice of %.2f has been issued for your recent visit.</p>
	`, invoiceNumber, patientName, total)
	return s.send(to, fmt.Sprintf("Invoice %s issued", invoiceNumber), body)
}

func (s *service) SendCustom(_ context.Context, to, subject, content string) error {
	return s.send(to, subject, content)
}
