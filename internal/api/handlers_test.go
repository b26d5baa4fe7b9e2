package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localcare/care-booking/internal/booking"
	"github.com/localcare/care-booking/internal/caregiver"
	"github.com/localcare/care-booking/internal/payments"
	"github.com/localcare/care-booking/pkg/logging"
)

type passthroughLocker struct {
	mu sync.Mutex
}

func (l *passthroughLocker) WithCaregiverLock(ctx context.Context, _ uuid.UUID, fn func(context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

type noopDispatcher struct{}

func (noopDispatcher) Schedule(context.Context, booking.Reminder) error { return nil }
func (noopDispatcher) Supersede(context.Context, uuid.UUID) error      { return nil }

type apiFixture struct {
	handler     http.Handler
	caregiverID uuid.UUID
	patientID   uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	rate := 25.0
	cg := caregiver.Caregiver{
		ID:         uuid.New(),
		Name:       "Test Caregiver",
		HourlyRate: &rate,
		Status:     caregiver.StatusVerified,
	}

	svc := booking.NewService(
		booking.NewMemoryRepository(),
		&passthroughLocker{},
		caregiver.NewStaticDirectory(cg),
		payments.NewFakeProcessor(),
		noopDispatcher{},
		booking.ServiceConfig{},
		logging.Default(),
	)

	handler := NewRouter(RouterConfig{
		Service: svc,
		Logger:  logging.Default(),
		Env:     "test",
		Version: "test",
	})

	return &apiFixture{
		handler:     handler,
		caregiverID: cg.ID,
		patientID:   uuid.New(),
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createAppointment(t *testing.T, start, end time.Time) AppointmentResponse {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		PatientID:   f.patientID.String(),
		CaregiverID: f.caregiverID.String(),
		StartTime:   start,
		EndTime:     end,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateAppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Appointment
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	appt := f.createAppointment(t, start, start.Add(time.Hour))
	assert.Equal(t, f.patientID, appt.PatientID)
	assert.Equal(t, f.caregiverID, appt.CaregiverID)
	assert.Equal(t, "pending", appt.Status)
	assert.Equal(t, int64(2500), appt.Payment.Amount)
	assert.NotEmpty(t, appt.Payment.IntentRef)
}

func TestCreateAppointmentEndpointErrors(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Now().Add(48 * time.Hour).UTC()

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad patient id", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
			PatientID:   "not-a-uuid",
			CaregiverID: f.caregiverID.String(),
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("inverted interval", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
			PatientID:   f.patientID.String(),
			CaregiverID: f.caregiverID.String(),
			StartTime:   start,
			EndTime:     start.Add(-time.Hour),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "validation_error", errResp.Error)
	})

	t.Run("unknown caregiver", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
			PatientID:   f.patientID.String(),
			CaregiverID: uuid.NewString(),
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("conflicting slot", func(t *testing.T) {
		f.createAppointment(t, start.Add(6*time.Hour), start.Add(7*time.Hour))

		rec := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
			PatientID:   f.patientID.String(),
			CaregiverID: f.caregiverID.String(),
			StartTime:   start.Add(6*time.Hour + 30*time.Minute),
			EndTime:     start.Add(7*time.Hour + 30*time.Minute),
		})
		assert.Equal(t, http.StatusConflict, rec.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "slot_unavailable", errResp.Error)
	})

	t.Run("bad recurrence end date", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
			PatientID:   f.patientID.String(),
			CaregiverID: f.caregiverID.String(),
			StartTime:   start.Add(100 * time.Hour),
			EndTime:     start.Add(101 * time.Hour),
			Kind:        "recurring",
			Recurrence:  &RecurrencePayload{Frequency: "weekly", Interval: 1, EndDate: "next tuesday"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateRecurringEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	start := time.Date(2027, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		PatientID:   f.patientID.String(),
		CaregiverID: f.caregiverID.String(),
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Kind:        "recurring",
		Recurrence:  &RecurrencePayload{Frequency: "weekly", Interval: 1, EndDate: "2027-03-15"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateAppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "recurring", resp.Appointment.Kind)
	assert.Len(t, resp.Instances, 2) // Mar 8 and Mar 15
	assert.Empty(t, resp.Skipped)
}

func TestGetAppointmentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	appt := f.createAppointment(t, start, start.Add(time.Hour))

	rec := f.do(t, http.MethodGet, "/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, appt.ID, got.ID)

	t.Run("unknown id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/appointments/garbage", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListAppointmentsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	f.createAppointment(t, start, start.Add(time.Hour))
	f.createAppointment(t, start.Add(2*time.Hour), start.Add(3*time.Hour))

	rec := f.do(t, http.MethodGet, "/appointments?patient_id="+f.patientID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListAppointmentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Appointments, 2)

	rec = f.do(t, http.MethodGet, "/appointments?caregiver_id="+f.caregiverID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("filter required", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/appointments", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRescheduleAppointmentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	appt := f.createAppointment(t, start, start.Add(time.Hour))

	newStart := start.Add(2 * time.Hour)
	newEnd := start.Add(3 * time.Hour)
	rec := f.do(t, http.MethodPatch, "/appointments/"+appt.ID.String(), RescheduleAppointmentRequest{
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, newStart.Equal(got.StartTime))

	t.Run("empty update", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/appointments/"+appt.ID.String(), RescheduleAppointmentRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCancelAppointmentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	appt := f.createAppointment(t, start, start.Add(time.Hour))

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", appt.ID), CancelAppointmentRequest{
		Reason:      "no longer needed",
		CancelledBy: f.patientID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "cancelled", got.Status)
	require.NotNil(t, got.Cancellation)
	assert.Equal(t, "no longer needed", got.Cancellation.Reason)

	t.Run("repeat cancel is ok", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", appt.ID), CancelAppointmentRequest{
			Reason:      "again",
			CancelledBy: f.patientID.String(),
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestStatusTransitionEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	appt := f.createAppointment(t, start, start.Add(time.Hour))
	base := "/appointments/" + appt.ID.String()

	// Out of order: cannot start a pending appointment.
	rec := f.do(t, http.MethodPost, base+"/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	for _, step := range []struct {
		path string
		want string
	}{
		{"/confirm", "confirmed"},
		{"/start", "in_progress"},
		{"/complete", "completed"},
	} {
		rec := f.do(t, http.MethodPost, base+step.path, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got AppointmentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, step.want, got.Status)
	}
}
