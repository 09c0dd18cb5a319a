package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/httputil"
)

type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func (cl *clientLimiter) get(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	lim, ok := cl.limiters[key]
	if !ok {
		lim = rate.NewLimiter(cl.rps, cl.burst)
		cl.limiters[key] = lim
	}
	return lim
}

// RateLimit applies a per-client token bucket keyed by IP.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	cl := &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}

	return func(c *gin.Context) {
		if !cl.get(c.ClientIP()).Allow() {
			httputil.RespondWithError(c, apperrors.Unavailable("rate limit exceeded", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
