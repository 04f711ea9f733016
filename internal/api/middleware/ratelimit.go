package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TenantLimiter hands out one token bucket per canonical tenant key. Every
// dashboard request fans out into several backend queries against the
// tenant's property quota.
type TenantLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewTenantLimiter returns nil when perMinute is not positive, which
// disables limiting.
func NewTenantLimiter(perMinute, burst int) *TenantLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &TenantLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
}

func (l *TenantLimiter) get(tenant string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[tenant]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[tenant] = lim
	}
	return lim
}

// Allow reports whether a request for tenant may proceed now. A nil
// limiter allows everything.
func (l *TenantLimiter) Allow(tenant string) bool {
	if l == nil {
		return true
	}
	return l.get(tenant).Allow()
}

// RateLimit must run after Tenant so that aliases share a bucket.
func RateLimit(limiter *TenantLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.GetString(TenantKey)
		if limiter.Allow(tenant) {
			c.Next()
			return
		}

		logger.Warn("Dashboard rate limit exceeded",
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("tenant", tenant),
		)
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(limiter)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
	}
}

func retryAfterSeconds(l *TenantLimiter) int {
	secs := int(time.Duration(float64(time.Second) / float64(l.limit)).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}
