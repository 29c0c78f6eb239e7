package scheduling

import (
	"context"
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

var testMetrics = metrics.NewMetrics("hms_test", "scheduling")

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user")
	}
	return u, nil
}

func (f *fakeUserRepo) FindDoctors(_ context.Context, firstName, lastName, department string) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		if u.Role == model.RoleDoctor && u.FirstName == firstName && u.LastName == lastName && u.Department == department {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeApptRepo struct {
	appts map[uuid.UUID]*model.Appointment
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{appts: make(map[uuid.UUID]*model.Appointment)}
}

func (f *fakeApptRepo) Create(_ context.Context, apt *model.Appointment) error {
	apt.ID = uuid.New()
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = time.Now()
	copied := *apt
	f.appts[apt.ID] = &copied
	return nil
}

func (f *fakeApptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := f.appts[id]
	if !ok {
		return nil, apperrors.NewNotFound("appointment")
	}
	copied := *apt
	return &copied, nil
}

func (f *fakeApptRepo) Update(_ context.Context, apt *model.Appointment) error {
	if _, ok := f.appts[apt.ID]; !ok {
		return apperrors.NewNotFound("appointment")
	}
	copied := *apt
	f.appts[apt.ID] = &copied
	return nil
}

func (f *fakeApptRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.appts[id]; !ok {
		return apperrors.NewNotFound("appointment")
	}
	delete(f.appts, id)
	return nil
}

func (f *fakeApptRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range f.appts {
		copied := *apt
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeApptRepo) FindConflict(_ context.Context, doctorID uuid.UUID, date time.Time, window model.TimeWindow, excludeID *uuid.UUID) (*model.Appointment, error) {
	for _, apt := range f.appts {
		if apt.DoctorID != doctorID || !apt.AppointmentDate.Equal(date) || !apt.Status.BlocksSlot() {
			continue
		}
		if excludeID != nil && apt.ID == *excludeID {
			continue
		}
		existing := model.TimeWindow{Start: apt.StartTime, End: apt.EndTime}
		if existing.Overlaps(window) {
			copied := *apt
			return &copied, nil
		}
	}
	return nil, nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(_ context.Context, e *model.OutboxEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeOutboxRepo) GetPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return f.events, nil
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
	appts    *fakeApptRepo
	users    *fakeUserRepo
	outbox   *fakeOutboxRepo
	doctor   *model.User
	patient  uuid.UUID
	date     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	doctor := &model.User{
		FirstName:  "Sarah",
		LastName:   "Connor",
		Role:       model.RoleDoctor,
		Department: "Cardiology",
	}
	doctor.ID = uuid.New()

	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{doctor.ID: doctor}}
	appts := newFakeApptRepo()
	outbox := &fakeOutboxRepo{}

	return &testEnv{
		svc:     NewService(appts, users, event.NewService(outbox), noopNotifier{}, testMetrics),
		appts:   appts,
		users:   users,
		outbox:  outbox,
		doctor:  doctor,
		patient: uuid.New(),
		date:    time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour),
	}
}

func (e *testEnv) createRequest(start, end string) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		FirstName:       "John",
		LastName:        "Smith",
		Email:           "john.smith@example.com",
		Phone:           "5550001111",
		DOB:             time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
		Gender:          "Male",
		Address:         "12 Elm Street",
		Department:      "Cardiology",
		AppointmentDate: e.date,
		TimeWindow:      model.TimeWindow{Start: start, End: end},
		DoctorID:        &e.doctor.ID,
	}
}

func TestCreateAppointment(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.False(t, apt.HasVisited)
	assert.Equal(t, env.doctor.ID, apt.DoctorID)
	assert.Equal(t, "09:00", apt.StartTime)
	require.Len(t, env.outbox.events, 1)
	assert.Equal(t, model.EventAppointmentCreated, env.outbox.events[0].EventType)
}

func TestCreateAppointmentConflicts(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)

	// Overlapping window is rejected.
	_, err = env.svc.CreateAppointment(context.Background(), uuid.New(), env.createRequest("09:15", "09:45"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	// Touching boundaries do not conflict.
	_, err = env.svc.CreateAppointment(context.Background(), uuid.New(), env.createRequest("09:30", "10:00"))
	assert.NoError(t, err)
}

func TestCreateAppointmentCancelledSlotIsFree(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(context.Background(), apt.ID, env.patient, model.RolePatient,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCancelled})
	require.NoError(t, err)

	_, err = env.svc.CreateAppointment(context.Background(), uuid.New(), env.createRequest("09:00", "09:30"))
	assert.NoError(t, err)
}

func TestCreateAppointmentNormalizesDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)

	// Same calendar day sent with a time-of-day and a non-UTC offset must
	// still collide with the existing booking.
	ist := time.FixedZone("IST", 5*3600+30*60)
	y, m, d := env.date.UTC().Date()
	req := env.createRequest("09:15", "09:45")
	req.AppointmentDate = time.Date(y, m, d, 9, 15, 0, 0, ist)

	_, err = env.svc.CreateAppointment(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	// Non-overlapping window on the offset date stores a plain UTC date.
	req = env.createRequest("11:00", "11:30")
	req.AppointmentDate = time.Date(y, m, d, 11, 0, 0, 0, ist)
	apt, err := env.svc.CreateAppointment(context.Background(), uuid.New(), req)
	require.NoError(t, err)
	assert.Equal(t, time.Date(y, m, d, 0, 0, 0, 0, time.UTC), apt.AppointmentDate)
}

func TestCreateAppointmentWindowValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ start, end string }{
		{"9:00", "09:30"},
		{"09:00", "25:00"},
		{"10:00", "09:30"},
		{"10:00", "10:00"},
	} {
		_, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest(tc.start, tc.end))
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation), "window %s-%s", tc.start, tc.end)
	}
}

func TestCreateAppointmentResolvesDoctorByName(t *testing.T) {
	env := newTestEnv(t)

	req := env.createRequest("09:00", "09:30")
	req.DoctorID = nil
	req.DoctorFirstName = "Sarah"
	req.DoctorLastName = "Connor"

	apt, err := env.svc.CreateAppointment(context.Background(), env.patient, req)
	require.NoError(t, err)
	assert.Equal(t, env.doctor.ID, apt.DoctorID)
}

func TestCreateAppointmentDoctorNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := env.createRequest("09:00", "09:30")
	req.DoctorID = nil
	req.DoctorFirstName = "Nobody"
	req.DoctorLastName = "Here"

	_, err := env.svc.CreateAppointment(context.Background(), env.patient, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestCreateAppointmentAmbiguousDoctor(t *testing.T) {
	env := newTestEnv(t)

	twin := &model.User{
		FirstName:  "Sarah",
		LastName:   "Connor",
		Role:       model.RoleDoctor,
		Department: "Cardiology",
	}
	twin.ID = uuid.New()
	env.users.users[twin.ID] = twin

	req := env.createRequest("09:00", "09:30")
	req.DoctorID = nil
	req.DoctorFirstName = "Sarah"
	req.DoctorLastName = "Connor"

	_, err := env.svc.CreateAppointment(context.Background(), env.patient, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestCreateAppointmentRejectsNonDoctor(t *testing.T) {
	env := newTestEnv(t)

	nurse := &model.User{FirstName: "Kim", LastName: "Lee", Role: model.RolePatient}
	nurse.ID = uuid.New()
	env.users.users[nurse.ID] = nurse

	req := env.createRequest("09:00", "09:30")
	req.DoctorID = &nurse.ID

	_, err := env.svc.CreateAppointment(context.Background(), env.patient, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestUpdateStatusTransitions(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)

	// Pending cannot complete directly.
	_, err = env.svc.UpdateStatus(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCompleted})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	accepted, err := env.svc.UpdateStatus(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusAccepted})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusAccepted, accepted.Status)

	completed, err := env.svc.UpdateStatus(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCompleted})
	require.NoError(t, err)
	assert.True(t, completed.HasVisited)

	// Completed is terminal.
	_, err = env.svc.UpdateStatus(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCancelled})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestUpdateStatusAuthorization(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)

	// Another doctor cannot decide.
	_, err = env.svc.UpdateStatus(context.Background(), apt.ID, uuid.New(), model.RoleDoctor,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusAccepted})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	// The patient may only cancel.
	_, err = env.svc.UpdateStatus(context.Background(), apt.ID, env.patient, model.RolePatient,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusAccepted})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	cancelled, err := env.svc.UpdateStatus(context.Background(), apt.ID, env.patient, model.RolePatient,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
}

func TestReschedule(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)

	// Moving within the appointment's own window is not a conflict.
	moved, err := env.svc.Reschedule(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor,
		&model.RescheduleAppointmentRequest{
			NewDate:   env.date,
			NewWindow: model.TimeWindow{Start: "09:15", End: "09:45"},
		})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRescheduled, moved.Status)
	assert.Equal(t, "09:15", moved.StartTime)
	assert.Equal(t, defaultRescheduleReason, moved.RescheduleReason)

	// Moving onto another booked slot is.
	other, err := env.svc.CreateAppointment(context.Background(), uuid.New(), env.createRequest("11:00", "11:30"))
	require.NoError(t, err)

	_, err = env.svc.Reschedule(context.Background(), other.ID, env.doctor.ID, model.RoleDoctor,
		&model.RescheduleAppointmentRequest{
			NewDate:   env.date,
			NewWindow: model.TimeWindow{Start: "09:20", End: "09:50"},
		})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestRescheduleResetsTimings(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusAccepted})
	require.NoError(t, err)
	_, err = env.svc.CheckIn(context.Background(), apt.ID, env.patient, model.RolePatient)
	require.NoError(t, err)

	moved, err := env.svc.Reschedule(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor,
		&model.RescheduleAppointmentRequest{
			NewDate:   env.date.AddDate(0, 0, 1),
			NewWindow: model.TimeWindow{Start: "10:00", End: "10:30"},
			Reason:    "clinic closure",
		})
	require.NoError(t, err)
	assert.Nil(t, moved.CheckInAt)
	assert.Equal(t, "clinic closure", moved.RescheduleReason)
}

func TestRescheduleTerminalFails(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor,
		&model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusRejected})
	require.NoError(t, err)

	_, err = env.svc.Reschedule(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor,
		&model.RescheduleAppointmentRequest{
			NewDate:   env.date,
			NewWindow: model.TimeWindow{Start: "10:00", End: "10:30"},
		})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestTimingCapture(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.CreateAppointment(context.Background(), env.patient, env.createRequest("09:00", "09:30"))
	require.NoError(t, err)

	// Consultation cannot start before check-in.
	_, err = env.svc.RecordStart(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	checked, err := env.svc.CheckIn(context.Background(), apt.ID, env.patient, model.RolePatient)
	require.NoError(t, err)
	require.NotNil(t, checked.CheckInAt)

	// Double check-in is rejected.
	_, err = env.svc.CheckIn(context.Background(), apt.ID, env.patient, model.RolePatient)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	started, err := env.svc.RecordStart(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor)
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)
	require.NotNil(t, started.WaitingTime)
	assert.GreaterOrEqual(t, *started.WaitingTime, 0)

	ended, err := env.svc.RecordEnd(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	require.NotNil(t, ended.ConsultationDuration)

	// Ending twice is rejected.
	_, err = env.svc.RecordEnd(context.Background(), apt.ID, env.doctor.ID, model.RoleDoctor)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}
