package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/docgate/docgate/pkg/metrics"
)

// per-key limiter store (in-memory token buckets)
var limiterStore sync.Map // map[string]*rate.Limiter

func getLimiter(key string, rps float64, burst int) *rate.Limiter {
	v, ok := limiterStore.Load(key)
	if ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	limiterStore.Store(key, lim)
	return lim
}

// MemoryRateLimit enforces a per-tenant token bucket without any shared
// state. Used when no Redis limiter is configured; counts are per process.
func MemoryRateLimit(rps float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ContextTenantID)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !getLimiter(key, rps, burst).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
