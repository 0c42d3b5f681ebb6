package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rnp/models"
)

// Querier runs one registry query. *registry.Client implements it.
type Querier interface {
	Query(ctx context.Context, ruc string) models.QueryResult
}

// Root returns a handler for GET /.
func Root() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API de consulta RNP - Bienvenido"})
	}
}

// Consultar returns a handler for GET /consultar/:ruc.
//
// Flow:
//  1. Reject anything that is not exactly 11 ASCII digits (400).
//  2. Run the query under timeout (the whole query, browser launch included).
//  3. Respond with the result variant; errors map through mapErrorToStatus.
func Consultar(q Querier, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ConsultarRequest
		if err := c.ShouldBindUri(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(
				models.ErrCodeInvalidInput, models.InvalidRUCMessage))
			return
		}
		ruc := req.RUC

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		res := q.Query(ctx, ruc)
		if res.OK() {
			c.JSON(http.StatusOK, res)
			return
		}
		c.JSON(mapErrorToStatus(res.Code), res)
	}
}

// mapErrorToStatus translates result error codes to HTTP status codes.
// Every failure of the lookup itself is reported as 404; only failures of
// the service are 5xx.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeInternal:
		return http.StatusInternalServerError // 500
	case models.ErrCodeBrowserLaunch:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusNotFound // 404
	}
}
