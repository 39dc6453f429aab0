package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/problem"
)

const actorKey = "actor"

// ActorContext extracts the already-authenticated actor from request
// headers. Authentication itself happens upstream; the venue only
// consumes the result.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Actor-ID")
		role := c.GetHeader("X-Actor-Role")
		if id == "" || role == "" {
			problem.Write(c, http.StatusUnauthorized, "Unauthorized", "X-Actor-ID and X-Actor-Role headers required")
			return
		}
		c.Set(actorKey, domain.Actor{ID: id, Role: role})
		c.Next()
	}
}

// Actor returns the actor stored by ActorContext.
func Actor(c *gin.Context) domain.Actor {
	a, _ := c.Value(actorKey).(domain.Actor)
	return a
}

// RequireRole gates a route to the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[Actor(c).Role]; !ok {
			problem.Write(c, http.StatusForbidden, "Forbidden", "role not allowed for this operation")
			return
		}
		c.Next()
	}
}
