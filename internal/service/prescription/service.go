package prescription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/medicure/hms-api/pkg/errors"
	"github.com/medicure/hms-api/pkg/metrics"

	"github.com/medicure/hms-api/internal/model"
	"github.com/medicure/hms-api/internal/repository"
	"github.com/medicure/hms-api/internal/service/event"
)

// Each inventory-backed line creates a dispense obligation for one unit;
// pharmacists adjust quantities at the counter.
const defaultLineQuantity = 1

type Service struct {
	prescriptionRepo repository.PrescriptionRepository
	templateRepo     repository.TemplateRepository
	apptRepo         repository.AppointmentRepository
	medicationRepo   repository.MedicationRepository
	events           *event.Service
	metrics          *metrics.Metrics
}

func NewService(prescriptionRepo repository.PrescriptionRepository, templateRepo repository.TemplateRepository, apptRepo repository.AppointmentRepository, medicationRepo repository.MedicationRepository, events *event.Service, m *metrics.Metrics) *Service {
	return &Service{
		prescriptionRepo: prescriptionRepo,
		templateRepo:     templateRepo,
		apptRepo:         apptRepo,
		medicationRepo:   medicationRepo,
		events:           events,
		metrics:          m,
	}
}

func validateLines(lines []model.MedicationLine) error {
	if len(lines) == 0 {
		return apperrors.NewValidation("at least one medication line is required")
	}

	var invalid []string
	for i, line := range lines {
		switch {
		case strings.TrimSpace(line.Name) == "",
			strings.TrimSpace(line.Dosage) == "",
			!model.ValidFrequency(line.Frequency),
			!model.ValidDuration(line.Duration):
			invalid = append(invalid, fmt.Sprintf("%d", i))
		}
	}
	if len(invalid) > 0 {
		return apperrors.NewValidation(fmt.Sprintf(
			"medications must include name, dosage, frequency and duration; invalid lines at positions: %s",
			strings.Join(invalid, ", ")))
	}
	return nil
}

func (s *Service) CreatePrescription(ctx context.Context, doctorID uuid.UUID, req *model.CreatePrescriptionRequest) (*model.Prescription, error) {
	if err := validateLines(req.Medications); err != nil {
		return nil, err
	}

	apt, err := s.apptRepo.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if apt.DoctorID != doctorID {
		return nil, apperrors.NewForbidden("appointment belongs to another doctor")
	}
	if apt.PatientID != req.PatientID {
		return nil, apperrors.NewValidation("appointment does not belong to this patient")
	}
	if apt.Status == model.AppointmentStatusCancelled || apt.Status == model.AppointmentStatusRejected {
		return nil, apperrors.NewInvalidState(fmt.Sprintf(
			"cannot prescribe against a %s appointment", apt.Status))
	}

	exists, err := s.prescriptionRepo.ExistsForAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing prescription: %w", err)
	}
	if exists {
		return nil, apperrors.NewConflict("prescription already exists for this appointment")
	}

	if req.TemplateID != nil {
		tpl, err := s.templateRepo.Get(ctx, *req.TemplateID)
		if err != nil {
			return nil, err
		}
		if tpl.DoctorID != doctorID {
			return nil, apperrors.NewForbidden("template belongs to another doctor")
		}
	}

	dispense, err := s.buildDispense(ctx, apt.PatientID, req.Medications)
	if err != nil {
		return nil, err
	}

	p := &model.Prescription{
		PatientID:     apt.PatientID,
		DoctorID:      doctorID,
		AppointmentID: apt.ID,
		Diagnosis:     req.Diagnosis,
		Medications:   req.Medications,
		Instructions:  req.Instructions,
		FollowUpDate:  req.FollowUpDate,
		Status:        model.PrescriptionStatusActive,
		TemplateID:    req.TemplateID,
	}

	// Writing the prescription completes the visit. Prescribing implies
	// the doctor accepted the appointment, so Pending and Rescheduled
	// complete here without passing through Accepted.
	apt.Status = model.AppointmentStatusCompleted
	apt.HasVisited = true
	if apt.StartedAt != nil && apt.EndedAt == nil {
		now := time.Now()
		apt.EndedAt = &now
		duration := int(now.Sub(*apt.StartedAt).Minutes())
		apt.ConsultationDuration = &duration
	}

	if err := s.prescriptionRepo.CreateWithDispense(ctx, p, dispense, apt); err != nil {
		return nil, err
	}

	s.metrics.PrescriptionsCreated.Inc()
	if err := s.events.Emit(ctx, model.EventPrescriptionCreated, p); err != nil {
		return nil, err
	}

	return p, nil
}

// buildDispense assembles the companion fulfillment record from the
// inventory-backed lines. A prescription of clinical-only lines still gets a
// record so the pharmacy sees the visit, flagged No-Inventory.
func (s *Service) buildDispense(ctx context.Context, patientID uuid.UUID, lines []model.MedicationLine) (*model.MedicationDispense, error) {
	dispense := &model.MedicationDispense{
		PatientID: patientID,
		Status:    model.DispenseStatusNoInventory,
	}

	for i, line := range lines {
		if line.MedicationID == nil {
			continue
		}

		med, err := s.medicationRepo.Get(ctx, *line.MedicationID)
		if err != nil {
			if apperrors.IsCode(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewValidation(fmt.Sprintf(
					"unknown medication reference at position %d", i))
			}
			return nil, err
		}

		instructions := line.Instructions
		if instructions == "" {
			instructions = fmt.Sprintf("Take as prescribed: %s %s for %s",
				line.Dosage, line.Frequency, line.Duration)
		}

		dispense.Lines = append(dispense.Lines, model.DispenseLine{
			MedicationID: med.ID,
			Quantity:     defaultLineQuantity,
			Instructions: instructions,
			Status:       model.DispenseLineStatusPending,
		})
		dispense.TotalCost += med.Price * defaultLineQuantity
	}

	if len(dispense.Lines) > 0 {
		dispense.Status = model.DispenseStatusPending
	}
	return dispense, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	return s.prescriptionRepo.Get(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Prescription, error) {
	return s.prescriptionRepo.ListByDoctor(ctx, doctorID)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error) {
	return s.prescriptionRepo.ListByPatient(ctx, patientID)
}

func (s *Service) CreateTemplate(ctx context.Context, doctorID uuid.UUID, req *model.CreateTemplateRequest) (*model.PrescriptionTemplate, error) {
	if err := validateLines(req.Medications); err != nil {
		return nil, err
	}

	tpl := &model.PrescriptionTemplate{
		DoctorID:     doctorID,
		Name:         req.Name,
		Diagnosis:    req.Diagnosis,
		Medications:  req.Medications,
		Instructions: req.Instructions,
		IsFavorite:   req.IsFavorite,
	}
	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *Service) GetTemplate(ctx context.Context, id, doctorID uuid.UUID) (*model.PrescriptionTemplate, error) {
	tpl, err := s.templateRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl.DoctorID != doctorID {
		return nil, apperrors.NewForbidden("template belongs to another doctor")
	}
	return tpl, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, id, doctorID uuid.UUID, req *model.CreateTemplateRequest) (*model.PrescriptionTemplate, error) {
	if err := validateLines(req.Medications); err != nil {
		return nil, err
	}

	tpl := &model.PrescriptionTemplate{
		DoctorID:     doctorID,
		Name:         req.Name,
		Diagnosis:    req.Diagnosis,
		Medications:  req.Medications,
		Instructions: req.Instructions,
		IsFavorite:   req.IsFavorite,
	}
	tpl.ID = id
	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id, doctorID uuid.UUID) error {
	return s.templateRepo.Delete(ctx, id, doctorID)
}

func (s *Service) ListTemplates(ctx context.Context, doctorID uuid.UUID, favoriteOnly bool) ([]*model.PrescriptionTemplate, error) {
	return s.templateRepo.ListByDoctor(ctx, doctorID, favoriteOnly)
}
