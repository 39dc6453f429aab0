package problem

import (
	"github.com/gin-gonic/gin"
)

// ContextKey is the gin context key under which the correlation id is
// stored by the correlation middleware.
const ContextKey = "correlationID"

// Details is an RFC 7807 problem document. Every error response from the
// venue uses this shape.
type Details struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Detail        string `json:"detail,omitempty"`
	Instance      string `json:"instance,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Write aborts the request with an application/problem+json body.
func Write(c *gin.Context, status int, title, detail string) {
	correlationID, _ := c.Value(ContextKey).(string)
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, Details{
		Type:          "about:blank",
		Title:         title,
		Status:        status,
		Detail:        detail,
		Instance:      c.Request.URL.Path,
		CorrelationID: correlationID,
	})
}
