package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docgate/docgate/internal/tenant"
	"github.com/docgate/docgate/internal/tokens"
)

const (
	// ContextTenant holds the authenticated *tenant.Tenant.
	ContextTenant = "tenant"
	// ContextTenantID holds the authenticated tenant id.
	ContextTenantID = "tenant_id"
)

// TenantDirectory is the minimal tenant lookup surface the middleware depends on
type TenantDirectory interface {
	Authenticate(ctx context.Context, apiKey string) (*tenant.Tenant, error)
	Get(ctx context.Context, id string) (*tenant.Tenant, error)
}

// TenantAuth returns a Gin middleware that authenticates the request as a
// tenant. Two credentials are accepted: an X-API-Key header carrying the raw
// api key, or an Authorization Bearer token minted by the token endpoint.
func TenantAuth(dir TenantDirectory, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
			t, err := dir.Authenticate(c.Request.Context(), apiKey)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
				return
			}
			setTenant(c, t)
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}
		id, err := tokens.ParseTenantID(jwtSecret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		t, err := dir.Get(c.Request.Context(), id)
		if err != nil {
			// token outlived the tenant
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown tenant"})
			return
		}
		setTenant(c, t)
		c.Next()
	}
}

func setTenant(c *gin.Context, t *tenant.Tenant) {
	c.Set(ContextTenant, t)
	c.Set(ContextTenantID, t.ID)
}

// TenantFrom returns the authenticated tenant, or nil outside TenantAuth.
func TenantFrom(c *gin.Context) *tenant.Tenant {
	v, ok := c.Get(ContextTenant)
	if !ok {
		return nil
	}
	t, _ := v.(*tenant.Tenant)
	return t
}

// AdminAuth guards the tenant management endpoints with a static token.
func AdminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" || c.GetHeader("X-Admin-Token") != adminToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		c.Next()
	}
}
