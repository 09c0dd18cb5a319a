package appointment

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/middleware"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/service/booking"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/httputil"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/validator"
)

// Booker is the write side of the appointment book.
type Booker interface {
	Create(ctx context.Context, p booking.CreateParams) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, actor uuid.UUID, reason string) (*model.Appointment, bool, error)
	Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, durationMinutes int, actor uuid.UUID) (*model.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
}

type Handler struct {
	booker    Booker
	validator *validator.Validator
	logger    *logger.Logger
}

func NewHandler(booker Booker, v *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{booker: booker, validator: v, logger: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.Create)
		appointments.GET("", h.List)
		appointments.GET("/:id", h.Get)
		appointments.POST("/:id/cancel", h.Cancel)
		appointments.POST("/:id/reschedule", h.Reschedule)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing actor", nil))
		return
	}

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid provider id", err))
		return
	}

	params := booking.CreateParams{
		ProviderID:      providerID,
		ClientID:        actor.ID,
		Start:           req.StartTime,
		DurationMinutes: req.DurationMinutes,
		CreatedBy:       actor.ID,
		IdempotencyKey:  req.IdempotencyKey,
		ContactEmail:    req.ContactEmail,
	}
	if req.ClientID != "" {
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid client id", err))
			return
		}
		params.ClientID = clientID
	}
	if req.AppointmentTypeID != "" {
		typeID, err := uuid.Parse(req.AppointmentTypeID)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment type id", err))
			return
		}
		params.AppointmentTypeID = &typeID
	}
	if req.ModeID != "" {
		modeID, err := uuid.Parse(req.ModeID)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid mode id", err))
			return
		}
		params.ModeID = &modeID
	}

	appt, err := h.booker.Create(c.Request.Context(), params)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, appt)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	appt, err := h.booker.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	providerID, err := uuid.Parse(c.Query("provider_id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("provider_id is required and must be a valid UUID", err))
		return
	}
	filters.ProviderID = providerID
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid client id", err))
			return
		}
		filters.ClientID = id
	}
	if raw := c.Query("status"); raw != "" {
		filters.Status = model.AppointmentStatus(raw)
	}
	if raw := c.Query("date"); raw != "" {
		day, err := time.ParseInLocation(model.AffectedDateFormat, raw, time.Local)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("date must be formatted YYYY-MM-DD", err))
			return
		}
		filters.From = day
		filters.To = day.Add(24 * time.Hour)
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("from must be RFC3339", err))
			return
		}
		filters.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("to must be RFC3339", err))
			return
		}
		filters.To = to
	}

	appointments, err := h.booker.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointments)
}

type cancelResponse struct {
	Appointment      *model.Appointment `json:"appointment"`
	AlreadyCancelled bool               `json:"already_cancelled"`
}

// Cancel is idempotent: repeating a cancel returns the already-cancelled
// appointment with a flag instead of an error.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	var req model.CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
			return
		}
		if err := h.validator.Struct(&req); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
			return
		}
	}

	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing actor", nil))
		return
	}

	appt, alreadyCancelled, err := h.booker.Cancel(c.Request.Context(), id, actor.ID, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, cancelResponse{
		Appointment:      appt,
		AlreadyCancelled: alreadyCancelled,
	})
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing actor", nil))
		return
	}

	appt, err := h.booker.Reschedule(c.Request.Context(), id, req.StartTime, req.DurationMinutes, actor.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appt)
}
