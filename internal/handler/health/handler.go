package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Pinger covers dependencies that can report liveness, such as the
// broker connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db     *sqlx.DB
	broker Pinger
}

func NewHandler(db *sqlx.DB, broker Pinger) *Handler {
	return &Handler{db: db, broker: broker}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}

// Health reports process liveness only.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready checks the database and broker with a short deadline. A failing
// dependency yields 503 so load balancers stop routing here.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "broker": "ok"}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if err := h.broker.Ping(ctx); err != nil {
		checks["broker"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": checks})
}
