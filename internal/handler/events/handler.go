package events

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/httputil"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
)

const heartbeatInterval = 30 * time.Second

// Subscriber hands out a live feed of one provider's booking events.
type Subscriber interface {
	Subscribe(providerID uuid.UUID) (<-chan model.BookingEvent, func())
}

type Handler struct {
	subscriber Subscriber
	logger     *logger.Logger
}

func NewHandler(subscriber Subscriber, log *logger.Logger) *Handler {
	return &Handler{subscriber: subscriber, logger: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/providers/:id/events", h.Stream)
}

// Stream pushes booking events for one provider as server-sent events.
// Events carry only the type, provider and affected date; clients
// re-fetch slots rather than patching local state. No replay: events
// before the subscription or dropped on a slow connection are gone.
func (h *Handler) Stream(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid provider id", err))
		return
	}

	events, cancel := h.subscriber.Subscribe(providerID)
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("booking", event)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
