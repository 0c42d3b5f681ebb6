package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rnp/api/handler"
	"github.com/use-agent/rnp/api/middleware"
	"github.com/use-agent/rnp/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
// ctx bounds background work started by middleware.
//
// Middleware chain:
//
//	Global:   Recovery → Logger
//	Queries:  Auth (if enabled) → RateLimit → Concurrency gate
//
// The welcome and health endpoints sit outside auth so monitoring probes
// always work.
func NewRouter(ctx context.Context, q handler.Querier, pr handler.Prober, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	gate := middleware.NewGate(cfg.Concurrency.MaxConcurrent)

	r.GET("/", handler.Root())
	r.GET("/api/v1/health", handler.Health(gate.Stats, pr, cfg.Registry.BaseURL, startTime))

	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))
	protected.Use(gate.Handler())

	protected.GET("/consultar/:ruc", handler.Consultar(q, cfg.Registry.QueryTimeout))

	return r
}
