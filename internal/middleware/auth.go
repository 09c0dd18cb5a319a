package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avirajsharma-ops/DTPS-sub004/pkg/auth"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/httputil"
)

const actorKey = "actor"

// Auth verifies the bearer token and stores the acting identity on the
// request context. Identity itself lives in an external service; only
// the token signature is checked here.
func Auth(verifier *auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized("missing authorization header", nil))
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			httputil.RespondWithError(c, apperrors.Unauthorized("authorization header must be a bearer token", nil))
			c.Abort()
			return
		}

		actor, err := verifier.Verify(token)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized("invalid token", err))
			c.Abort()
			return
		}

		SetActor(c, *actor)
		c.Next()
	}
}

// SetActor stores the acting identity on the request context.
func SetActor(c *gin.Context, actor auth.Actor) {
	c.Set(actorKey, actor)
}

// ActorFrom returns the authenticated actor stored by Auth.
func ActorFrom(c *gin.Context) (auth.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return auth.Actor{}, false
	}
	actor, ok := v.(auth.Actor)
	return actor, ok
}
