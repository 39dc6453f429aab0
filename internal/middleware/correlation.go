package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/olyamironova/trading-venue/internal/problem"
)

// Correlation propagates X-Correlation-ID, generating one when the
// caller did not supply it. The id ends up in problem responses and the
// response header.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Correlation-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(problem.ContextKey, id)
		c.Header("X-Correlation-ID", id)
		c.Next()
	}
}
