package scheduling

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	apperrors "github.com/medicure/hms-api/pkg/errors"
	"github.com/medicure/hms-api/pkg/metrics"

	"github.com/medicure/hms-api/internal/model"
	"github.com/medicure/hms-api/internal/repository"
	"github.com/medicure/hms-api/internal/service/event"
	"github.com/medicure/hms-api/internal/service/notification"
)

const (
	doctorCacheTTL     = 5 * time.Minute
	doctorCacheCleanup = 10 * time.Minute

	defaultRescheduleReason = "Doctor requested reschedule"
)

// timePattern matches a zero-padded 24-hour "HH:MM" value. Lexicographic
// comparison of matching values is chronological.
var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// dateOnly collapses a client timestamp to its calendar date at UTC
// midnight. Requests may carry a time-of-day or a zone offset; the schedule
// stores a DATE column, so every comparison has to happen on the same
// normalized value.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Service struct {
	apptRepo repository.AppointmentRepository
	userRepo repository.UserRepository
	events   *event.Service
	notifier notification.Service
	metrics  *metrics.Metrics

	// Doctor directory lookups are hot on the booking path and the
	// directory changes rarely.
	doctorCache *cache.Cache
}

func NewService(apptRepo repository.AppointmentRepository, userRepo repository.UserRepository, events *event.Service, notifier notification.Service, m *metrics.Metrics) *Service {
	return &Service{
		apptRepo:    apptRepo,
		userRepo:    userRepo,
		events:      events,
		notifier:    notifier,
		metrics:     m,
		doctorCache: cache.New(doctorCacheTTL, doctorCacheCleanup),
	}
}

func validateWindow(w model.TimeWindow) error {
	if !timePattern.MatchString(w.Start) || !timePattern.MatchString(w.End) {
		return apperrors.NewValidation("time window must use 24-hour HH:MM format")
	}
	if w.Start >= w.End {
		return apperrors.NewValidation("time window start must be before end")
	}
	return nil
}

// canTransition encodes the status machine: Pending and Rescheduled accept a
// doctor decision, only Accepted completes, and Cancelled or Rescheduled can
// follow any non-terminal state. Writing a prescription is the one exception:
// it counts as the doctor's acceptance, so the prescription service completes
// a Pending or Rescheduled appointment without the intermediate Accepted step.
func canTransition(from, to model.AppointmentStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case model.AppointmentStatusAccepted, model.AppointmentStatusRejected:
		return from == model.AppointmentStatusPending || from == model.AppointmentStatusRescheduled
	case model.AppointmentStatusCompleted:
		return from == model.AppointmentStatusAccepted
	case model.AppointmentStatusCancelled, model.AppointmentStatusRescheduled:
		return true
	default:
		return false
	}
}

func (s *Service) resolveDoctor(ctx context.Context, req *model.CreateAppointmentRequest) (*model.User, error) {
	if req.DoctorID != nil {
		key := "doctor:id:" + req.DoctorID.String()
		if cached, ok := s.doctorCache.Get(key); ok {
			return cached.(*model.User), nil
		}

		doctor, err := s.userRepo.Get(ctx, *req.DoctorID)
		if err != nil {
			return nil, err
		}
		if doctor.Role != model.RoleDoctor {
			return nil, apperrors.NewValidation("referenced user is not a doctor")
		}
		if req.Department != "" && doctor.Department != req.Department {
			return nil, apperrors.NewValidation("doctor does not belong to the requested department")
		}

		s.doctorCache.Set(key, doctor, cache.DefaultExpiration)
		return doctor, nil
	}

	if req.DoctorFirstName == "" || req.DoctorLastName == "" {
		return nil, apperrors.NewValidation("doctor_id or doctor name is required")
	}

	key := fmt.Sprintf("doctor:name:%s|%s|%s", req.DoctorFirstName, req.DoctorLastName, req.Department)
	if cached, ok := s.doctorCache.Get(key); ok {
		return cached.(*model.User), nil
	}

	doctors, err := s.userRepo.FindDoctors(ctx, req.DoctorFirstName, req.DoctorLastName, req.Department)
	if err != nil {
		return nil, err
	}
	switch len(doctors) {
	case 0:
		return nil, apperrors.NewNotFound("doctor")
	case 1:
		s.doctorCache.Set(key, doctors[0], cache.DefaultExpiration)
		return doctors[0], nil
	default:
		return nil, apperrors.NewConflict("multiple doctors match the given name, use doctor_id")
	}
}

func (s *Service) CreateAppointment(ctx context.Context, patientID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := validateWindow(req.TimeWindow); err != nil {
		return nil, err
	}
	date := dateOnly(req.AppointmentDate)
	if date.Before(dateOnly(time.Now())) {
		return nil, apperrors.NewValidation("appointment date cannot be in the past")
	}

	doctor, err := s.resolveDoctor(ctx, req)
	if err != nil {
		return nil, err
	}

	conflict, err := s.apptRepo.FindConflict(ctx, doctor.ID, date, req.TimeWindow, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check schedule: %w", err)
	}
	if conflict != nil {
		s.metrics.SchedulingConflicts.Inc()
		return nil, apperrors.NewConflict(fmt.Sprintf(
			"doctor already booked from %s to %s", conflict.StartTime, conflict.EndTime))
	}

	apt := &model.Appointment{
		PatientID:       patientID,
		DoctorID:        doctor.ID,
		Department:      req.Department,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		DOB:             req.DOB,
		Gender:          req.Gender,
		Address:         req.Address,
		AppointmentDate: date,
		StartTime:       req.TimeWindow.Start,
		EndTime:         req.TimeWindow.End,
		Status:          model.AppointmentStatusPending,
	}
	if err := s.apptRepo.Create(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.metrics.AppointmentsCreated.Inc()
	if err := s.events.Emit(ctx, model.EventAppointmentCreated, apt); err != nil {
		return nil, err
	}
	s.notifier.AppointmentBooked(ctx, apt, doctor.FullName())

	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.apptRepo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.apptRepo.List(ctx, filters)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, actorID uuid.UUID, actorRole model.Role, req *model.UpdateAppointmentStatusRequest) (*model.Appointment, error) {
	if !req.Status.Valid() {
		return nil, apperrors.NewValidation("invalid appointment status")
	}
	if req.Status == model.AppointmentStatusRescheduled {
		return nil, apperrors.NewValidation("use the reschedule operation to move an appointment")
	}

	apt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeStatusChange(apt, actorID, actorRole, req.Status); err != nil {
		return nil, err
	}

	if !canTransition(apt.Status, req.Status) {
		return nil, apperrors.NewInvalidState(fmt.Sprintf(
			"cannot move appointment from %s to %s", apt.Status, req.Status))
	}

	apt.Status = req.Status
	if req.Notes != "" {
		apt.DoctorNotes = req.Notes
	}
	if req.Status == model.AppointmentStatusCompleted {
		apt.HasVisited = true
		if apt.StartedAt != nil && apt.EndedAt == nil {
			now := time.Now()
			apt.EndedAt = &now
			duration := int(now.Sub(*apt.StartedAt).Minutes())
			apt.ConsultationDuration = &duration
		}
	}

	if err := s.apptRepo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	s.metrics.StatusTransitions.WithLabelValues(string(req.Status)).Inc()
	if err := s.events.Emit(ctx, model.EventAppointmentUpdated, apt); err != nil {
		return nil, err
	}
	s.notifier.AppointmentStatusChanged(ctx, apt)

	return apt, nil
}

// authorizeStatusChange allows admins everything, the owning doctor any
// decision on their own schedule, and the owning patient a cancellation.
func (s *Service) authorizeStatusChange(apt *model.Appointment, actorID uuid.UUID, actorRole model.Role, target model.AppointmentStatus) error {
	switch actorRole {
	case model.RoleAdmin:
		return nil
	case model.RoleDoctor:
		if apt.DoctorID != actorID {
			return apperrors.NewForbidden("appointment belongs to another doctor")
		}
		return nil
	case model.RolePatient:
		if apt.PatientID != actorID {
			return apperrors.NewForbidden("appointment belongs to another patient")
		}
		if target != model.AppointmentStatusCancelled {
			return apperrors.NewForbidden("patients may only cancel their appointments")
		}
		return nil
	default:
		return apperrors.NewForbidden("unknown role")
	}
}

func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, actorID uuid.UUID, actorRole model.Role, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	if err := validateWindow(req.NewWindow); err != nil {
		return nil, err
	}

	apt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole != model.RoleAdmin && apt.DoctorID != actorID {
		return nil, apperrors.NewForbidden("appointment belongs to another doctor")
	}
	if apt.Status.Terminal() {
		return nil, apperrors.NewInvalidState(fmt.Sprintf(
			"cannot reschedule a %s appointment", apt.Status))
	}

	newDate := dateOnly(req.NewDate)
	conflict, err := s.apptRepo.FindConflict(ctx, apt.DoctorID, newDate, req.NewWindow, &apt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check schedule: %w", err)
	}
	if conflict != nil {
		s.metrics.SchedulingConflicts.Inc()
		return nil, apperrors.NewConflict(fmt.Sprintf(
			"doctor already booked from %s to %s", conflict.StartTime, conflict.EndTime))
	}

	apt.AppointmentDate = newDate
	apt.StartTime = req.NewWindow.Start
	apt.EndTime = req.NewWindow.End
	apt.Status = model.AppointmentStatusRescheduled
	apt.RescheduleReason = req.Reason
	if apt.RescheduleReason == "" {
		apt.RescheduleReason = defaultRescheduleReason
	}

	// The visit restarts on the new date, so captured timings no longer
	// apply.
	apt.CheckInAt = nil
	apt.StartedAt = nil
	apt.EndedAt = nil
	apt.WaitingTime = nil
	apt.ConsultationDuration = nil

	if err := s.apptRepo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	s.metrics.AppointmentsRescheduled.Inc()
	if err := s.events.Emit(ctx, model.EventAppointmentReschedule, apt); err != nil {
		return nil, err
	}
	s.notifier.AppointmentRescheduled(ctx, apt)

	return apt, nil
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID, actorID uuid.UUID, actorRole model.Role) (*model.Appointment, error) {
	apt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole != model.RoleAdmin && apt.PatientID != actorID {
		return nil, apperrors.NewForbidden("appointment belongs to another patient")
	}
	if apt.Status.Terminal() {
		return nil, apperrors.NewInvalidState(fmt.Sprintf(
			"cannot check in to a %s appointment", apt.Status))
	}
	if apt.CheckInAt != nil {
		return nil, apperrors.NewInvalidState("patient already checked in")
	}

	now := time.Now()
	apt.CheckInAt = &now
	if err := s.apptRepo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}
	return apt, nil
}

func (s *Service) RecordStart(ctx context.Context, id uuid.UUID, actorID uuid.UUID, actorRole model.Role) (*model.Appointment, error) {
	apt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole != model.RoleAdmin && apt.DoctorID != actorID {
		return nil, apperrors.NewForbidden("appointment belongs to another doctor")
	}
	if apt.CheckInAt == nil {
		return nil, apperrors.NewInvalidState("patient has not checked in")
	}
	if apt.StartedAt != nil {
		return nil, apperrors.NewInvalidState("consultation already started")
	}

	now := time.Now()
	apt.StartedAt = &now
	waiting := int(now.Sub(*apt.CheckInAt).Minutes())
	apt.WaitingTime = &waiting

	if err := s.apptRepo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to record consultation start: %w", err)
	}
	return apt, nil
}

func (s *Service) RecordEnd(ctx context.Context, id uuid.UUID, actorID uuid.UUID, actorRole model.Role) (*model.Appointment, error) {
	apt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole != model.RoleAdmin && apt.DoctorID != actorID {
		return nil, apperrors.NewForbidden("appointment belongs to another doctor")
	}
	if apt.StartedAt == nil {
		return nil, apperrors.NewInvalidState("consultation has not started")
	}
	if apt.EndedAt != nil {
		return nil, apperrors.NewInvalidState("consultation already ended")
	}

	now := time.Now()
	apt.EndedAt = &now
	duration := int(now.Sub(*apt.StartedAt).Minutes())
	apt.ConsultationDuration = &duration

	if err := s.apptRepo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to record consultation end: %w", err)
	}
	return apt, nil
}

func (s *Service) AdminUpdate(ctx context.Context, id uuid.UUID, req *model.AdminUpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, apperrors.NewValidation("invalid appointment status")
		}
		apt.Status = *req.Status
		if apt.Status == model.AppointmentStatusCompleted {
			apt.HasVisited = true
		}
	}
	if req.TimeWindow != nil {
		if err := validateWindow(*req.TimeWindow); err != nil {
			return nil, err
		}
		apt.StartTime = req.TimeWindow.Start
		apt.EndTime = req.TimeWindow.End
	}
	if req.AppointmentDate != nil {
		apt.AppointmentDate = dateOnly(*req.AppointmentDate)
	}
	if req.DoctorNotes != nil {
		apt.DoctorNotes = *req.DoctorNotes
	}
	if req.HasVisited != nil {
		apt.HasVisited = *req.HasVisited
	}

	if err := s.apptRepo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.apptRepo.Delete(ctx, id)
}
