package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rnp/models"
	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of registry queries in flight. Each query holds a
// browser for its whole duration, so requests beyond the limit are turned
// away instead of queued.
type Gate struct {
	sem    *semaphore.Weighted
	max    int
	active atomic.Int64
}

// NewGate returns a Gate admitting max concurrent requests (at least 1).
func NewGate(max int) *Gate {
	if max < 1 {
		max = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(max)), max: max}
}

// Handler returns the middleware. Saturation answers 503 OVERLOADED.
func (g *Gate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.sem.TryAcquire(1) {
			c.Header("Retry-After", "5")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.NewErrorResponse(
				models.ErrCodeOverloaded, "too many queries in progress, retry shortly"))
			return
		}
		g.active.Add(1)
		defer func() {
			g.active.Add(-1)
			g.sem.Release(1)
		}()

		c.Next()
	}
}

// Stats reports capacity and current use.
func (g *Gate) Stats() models.SessionStats {
	return models.SessionStats{
		MaxConcurrent: g.max,
		Active:        int(g.active.Load()),
	}
}
