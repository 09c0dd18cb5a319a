package availability

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/httputil"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
)

// SlotLister computes the bookable slots for a provider on one day.
type SlotLister interface {
	GetSlots(ctx context.Context, providerID uuid.UUID, day time.Time, durationMinutes int) ([]model.Slot, error)
}

type Handler struct {
	slots  SlotLister
	logger *logger.Logger
}

func NewHandler(slots SlotLister, log *logger.Logger) *Handler {
	return &Handler{slots: slots, logger: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/providers/:id/slots", h.ListSlots)
}

type slotsResponse struct {
	ProviderID string       `json:"provider_id"`
	Date       string       `json:"date"`
	Slots      []model.Slot `json:"slots"`
}

// ListSlots returns the day's slot grid. Booked slots appear with
// available=false so callers can render a full calendar.
func (h *Handler) ListSlots(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid provider id", err))
		return
	}

	dateParam := c.Query("date")
	day, err := time.ParseInLocation(model.AffectedDateFormat, dateParam, time.Local)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("date must be formatted YYYY-MM-DD", err))
		return
	}

	duration := 0
	if raw := c.Query("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration <= 0 {
			httputil.RespondWithError(c, apperrors.BadRequest("duration must be a positive number of minutes", err))
			return
		}
	}

	slots, err := h.slots.GetSlots(c.Request.Context(), providerID, day, duration)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, slotsResponse{
		ProviderID: providerID.String(),
		Date:       day.Format(model.AffectedDateFormat),
		Slots:      slots,
	})
}
