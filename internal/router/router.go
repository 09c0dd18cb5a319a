package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/handler/appointment"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/handler/availability"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/handler/events"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/handler/health"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/middleware"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/auth"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
)

const eventStreamRoute = "/api/v1/providers/:id/events"

type Handlers struct {
	Availability *availability.Handler
	Appointment  *appointment.Handler
	Events       *events.Handler
	Health       *health.Handler
}

type Options struct {
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// New assembles the HTTP surface. Everything under /api/v1 requires a
// bearer token; health, readiness and metrics are open.
func New(h Handlers, verifier *auth.TokenVerifier, log *logger.Logger, m *metrics.Metrics, opts Options) *gin.Engine {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 50
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 100
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	r.Use(middleware.Timeout(opts.RequestTimeout, eventStreamRoute))

	h.Health.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(verifier))
	{
		h.Availability.RegisterRoutes(v1)
		h.Appointment.RegisterRoutes(v1)
		h.Events.RegisterRoutes(v1)
	}

	return r
}
