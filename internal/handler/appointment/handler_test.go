package appointment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/middleware"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/service/booking"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/auth"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/httputil"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/validator"
)

type fakeBooker struct {
	appt             *model.Appointment
	alreadyCancelled bool
	err              error

	gotCreate     *booking.CreateParams
	gotCancelID   uuid.UUID
	gotReschedule time.Time
}

func (f *fakeBooker) Create(_ context.Context, p booking.CreateParams) (*model.Appointment, error) {
	f.gotCreate = &p
	return f.appt, f.err
}

func (f *fakeBooker) Cancel(_ context.Context, id uuid.UUID, _ uuid.UUID, _ string) (*model.Appointment, bool, error) {
	f.gotCancelID = id
	return f.appt, f.alreadyCancelled, f.err
}

func (f *fakeBooker) Reschedule(_ context.Context, _ uuid.UUID, newStart time.Time, _ int, _ uuid.UUID) (*model.Appointment, error) {
	f.gotReschedule = newStart
	return f.appt, f.err
}

func (f *fakeBooker) Get(context.Context, uuid.UUID) (*model.Appointment, error) {
	if f.appt == nil {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return f.appt, f.err
}

func (f *fakeBooker) List(context.Context, *model.AppointmentFilters) ([]*model.Appointment, error) {
	return []*model.Appointment{f.appt}, f.err
}

var testActor = auth.Actor{ID: uuid.New(), Role: "client"}

func newTestRouter(booker *fakeBooker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	r := gin.New()
	r.Use(func(c *gin.Context) { middleware.SetActor(c, testActor) })
	NewHandler(booker, validator.New(), log).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func scheduledAppointment() *model.Appointment {
	appt := &model.Appointment{
		ProviderID:      uuid.New(),
		ClientID:        testActor.ID,
		StartTime:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		DurationMinutes: 30,
		Status:          model.AppointmentStatusScheduled,
	}
	appt.ID = uuid.New()
	return appt
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAppointment(t *testing.T) {
	booker := &fakeBooker{appt: scheduledAppointment()}
	r := newTestRouter(booker)

	w := postJSON(t, r, "/api/v1/appointments", model.CreateAppointmentRequest{
		ProviderID:      booker.appt.ProviderID.String(),
		StartTime:       booker.appt.StartTime,
		DurationMinutes: 30,
		IdempotencyKey:  "key-1",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, booker.gotCreate)
	assert.Equal(t, booker.appt.ProviderID, booker.gotCreate.ProviderID)
	// The client books for themselves unless another client id is given.
	assert.Equal(t, testActor.ID, booker.gotCreate.ClientID)
	assert.Equal(t, "key-1", booker.gotCreate.IdempotencyKey)
}

func TestCreateAppointmentValidation(t *testing.T) {
	r := newTestRouter(&fakeBooker{appt: scheduledAppointment()})

	tests := []struct {
		name string
		body model.CreateAppointmentRequest
	}{
		{"missing provider", model.CreateAppointmentRequest{
			StartTime: time.Now(), DurationMinutes: 30, IdempotencyKey: "k"}},
		{"bad provider id", model.CreateAppointmentRequest{
			ProviderID: "nope", StartTime: time.Now(), DurationMinutes: 30, IdempotencyKey: "k"}},
		{"zero duration", model.CreateAppointmentRequest{
			ProviderID: uuid.NewString(), StartTime: time.Now(), IdempotencyKey: "k"}},
		{"missing idempotency key", model.CreateAppointmentRequest{
			ProviderID: uuid.NewString(), StartTime: time.Now(), DurationMinutes: 30}},
		{"bad contact email", model.CreateAppointmentRequest{
			ProviderID: uuid.NewString(), StartTime: time.Now(), DurationMinutes: 30,
			IdempotencyKey: "k", ContactEmail: "not-an-email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/api/v1/appointments", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateAppointmentConflict(t *testing.T) {
	booker := &fakeBooker{err: apperrors.Conflict("slot unavailable", nil)}
	r := newTestRouter(booker)

	w := postJSON(t, r, "/api/v1/appointments", model.CreateAppointmentRequest{
		ProviderID:      uuid.NewString(),
		StartTime:       time.Now().Add(time.Hour),
		DurationMinutes: 30,
		IdempotencyKey:  "key-1",
	})

	require.Equal(t, http.StatusConflict, w.Code)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "slot_unavailable", resp.Error.Kind)
}

func TestCancelAppointment(t *testing.T) {
	appt := scheduledAppointment()
	appt.Status = model.AppointmentStatusCancelled
	booker := &fakeBooker{appt: appt}
	r := newTestRouter(booker)

	w := postJSON(t, r, "/api/v1/appointments/"+appt.ID.String()+"/cancel",
		model.CancelAppointmentRequest{Reason: "patient request"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, appt.ID, booker.gotCancelID)

	var resp struct {
		Data cancelResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.AlreadyCancelled)
}

func TestCancelAppointmentAlreadyCancelled(t *testing.T) {
	appt := scheduledAppointment()
	appt.Status = model.AppointmentStatusCancelled
	booker := &fakeBooker{appt: appt, alreadyCancelled: true}
	r := newTestRouter(booker)

	w := postJSON(t, r, "/api/v1/appointments/"+appt.ID.String()+"/cancel",
		model.CancelAppointmentRequest{})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data cancelResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.AlreadyCancelled)
}

func TestRescheduleAppointment(t *testing.T) {
	appt := scheduledAppointment()
	booker := &fakeBooker{appt: appt}
	r := newTestRouter(booker)

	newStart := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	w := postJSON(t, r, "/api/v1/appointments/"+appt.ID.String()+"/reschedule",
		model.RescheduleAppointmentRequest{StartTime: newStart, DurationMinutes: 30})

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, booker.gotReschedule.Equal(newStart))
}

func TestGetAppointmentNotFound(t *testing.T) {
	r := newTestRouter(&fakeBooker{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
