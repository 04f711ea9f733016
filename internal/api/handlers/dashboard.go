package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rddigitech/dashboard-api/internal/api/middleware"
	"github.com/rddigitech/dashboard-api/internal/report"
)

// GetResults returns the analytics summary for the tenant authorized by the
// tenant middleware. The optional days query parameter defaults to 30 and is
// clamped to [1, 365].
func (h *Handler) GetResults(c *gin.Context) {
	tenant := c.GetString(middleware.TenantKey)
	if tenant == "" {
		// Route registered without the tenant gate.
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	days := report.DefaultWindowDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		// Atoi saturates out-of-range values, which the aggregator clamps.
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'days' parameter"})
			return
		}
		days = n
	}

	payload, err := h.reporter.GetResults(c.Request.Context(), tenant, days)
	if err != nil {
		var qerr *report.QueryError
		if errors.As(err, &qerr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    "analytics_unavailable",
				"category": qerr.Category,
			})
			return
		}

		h.logger.Error("Failed to build dashboard report",
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.String("tenant", tenant),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}

	c.JSON(http.StatusOK, payload)
}
