package availability

import (
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

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/httputil"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
)

type fakeSlotLister struct {
	slots []model.Slot
	err   error
}

func (f *fakeSlotLister) GetSlots(context.Context, uuid.UUID, time.Time, int) ([]model.Slot, error) {
	return f.slots, f.err
}

func newTestRouter(lister *fakeSlotLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	r := gin.New()
	NewHandler(lister, log).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestListSlots(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lister := &fakeSlotLister{slots: []model.Slot{
		{Start: start, End: start.Add(30 * time.Minute), Available: true},
		{Start: start.Add(30 * time.Minute), End: start.Add(time.Hour), Available: false},
	}}
	r := newTestRouter(lister)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/providers/"+uuid.NewString()+"/slots?date=2026-03-02&duration=30", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    slotsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "2026-03-02", resp.Data.Date)
	require.Len(t, resp.Data.Slots, 2)
	assert.True(t, resp.Data.Slots[0].Available)
	assert.False(t, resp.Data.Slots[1].Available)
}

func TestListSlotsValidation(t *testing.T) {
	r := newTestRouter(&fakeSlotLister{})

	tests := []struct {
		name string
		path string
	}{
		{"bad provider id", "/api/v1/providers/nope/slots?date=2026-03-02"},
		{"missing date", "/api/v1/providers/" + uuid.NewString() + "/slots"},
		{"bad date", "/api/v1/providers/" + uuid.NewString() + "/slots?date=03-02-2026"},
		{"bad duration", "/api/v1/providers/" + uuid.NewString() + "/slots?date=2026-03-02&duration=-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListSlotsStorageUnavailable(t *testing.T) {
	lister := &fakeSlotLister{err: apperrors.Unavailable("slots unknown, retry", nil)}
	r := newTestRouter(lister)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/providers/"+uuid.NewString()+"/slots?date=2026-03-02", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "storage_unavailable", resp.Error.Kind)
}
