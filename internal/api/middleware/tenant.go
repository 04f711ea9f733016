package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/rddigitech/dashboard-api/internal/authz"
	"github.com/rddigitech/dashboard-api/internal/metrics"
)

const TenantKey = "tenant_id"

// Tenant authorizes the caller for the tenant named by the :tenant path
// parameter. Unknown tenants and non-allowlisted callers get the same 403.
func Tenant(gate *authz.Gate, emailClaims []string, collector *metrics.Collector, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var claims jwt.MapClaims
		if v, ok := c.Get(ClaimsKey); ok {
			claims, _ = v.(jwt.MapClaims)
		}

		id := authz.IdentityFromClaims(claims, emailClaims...)
		decision := gate.Authorize(id, c.Param("tenant"))
		collector.RecordDecision(decision.Allowed, string(decision.Reason))

		if !decision.Allowed {
			logger.Info("Dashboard access denied",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.String("subject", id.Subject),
				zap.String("requested_tenant", c.Param("tenant")),
				zap.String("reason", string(decision.Reason)),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Set(TenantKey, decision.Tenant)
		c.Next()
	}
}
