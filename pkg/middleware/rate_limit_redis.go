package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
)

// TenantCounter counts requests in the current window for a tenant.
type TenantCounter interface {
	Check(ctx context.Context, tenantID string) (int64, error)
}

// TenantRateLimit enforces each tenant's own per-minute allowance against a
// shared counter. Must run after TenantAuth. When the counter store cannot
// be reached the request is rejected rather than let an outage disable
// limiting entirely.
func TenantRateLimit(counter TenantCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := TenantFrom(c)
		if t == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}
		count, err := counter.Check(c.Request.Context(), t.ID)
		if err != nil {
			logger.Warnf("rate limit check failed for tenant %s: %v", t.ID, err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter unavailable"})
			return
		}
		if count > t.RateLimitPerMinute {
			c.Header("Retry-After", "60")
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
