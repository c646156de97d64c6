package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck is one named dependency probe.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RegisterHealthRoutes wires liveness and readiness. Liveness always
// succeeds while the process serves; readiness runs each dependency probe
// with a short deadline.
func RegisterHealthRoutes(r *gin.Engine, checks ...ReadinessCheck) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for _, chk := range checks {
			if err := chk.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[chk.Name] = err.Error()
				continue
			}
			results[chk.Name] = "ok"
		}
		c.JSON(status, gin.H{"checks": results})
	})
}
