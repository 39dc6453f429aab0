package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/trading-venue/internal/problem"
)

// RateLimiter enforces a minimum interval between requests per actor.
type RateLimiter struct {
	actors map[string]time.Time
	mu     sync.Mutex
	limit  time.Duration
}

func NewRateLimiter(limit time.Duration) *RateLimiter {
	return &RateLimiter{
		actors: make(map[string]time.Time),
		limit:  limit,
	}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := Actor(c).ID
		if actorID == "" {
			c.Next()
			return
		}
		r.mu.Lock()
		last, exists := r.actors[actorID]
		if exists && time.Since(last) < r.limit {
			r.mu.Unlock()
			problem.Write(c, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded")
			return
		}
		r.actors[actorID] = time.Now()
		r.mu.Unlock()
		c.Next()
	}
}
