package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rnp/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Prober checks reachability of the registry site. *probe.Prober implements it.
type Prober interface {
	Check(ctx context.Context, target string) models.ProbeResult
}

// StatsFunc reports in-flight query capacity.
type StatsFunc func() models.SessionStats

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when every query slot is taken, or when ?probe=1 is given
// and the registry site does not answer. pr may be nil, which disables
// probing.
func Health(stats StatsFunc, pr Prober, target string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := stats()

		status := "healthy"
		if s.MaxConcurrent > 0 && s.Active >= s.MaxConcurrent {
			status = "degraded"
		}

		resp := models.HealthResponse{
			Status:   status,
			Uptime:   time.Since(startTime).Round(time.Second).String(),
			Sessions: s,
			Version:  Version,
		}

		if pr != nil && c.Query("probe") == "1" {
			r := pr.Check(c.Request.Context(), target)
			if !r.Reachable {
				resp.Status = "degraded"
			}
			resp.Target = &r
		}

		c.JSON(http.StatusOK, resp)
	}
}
