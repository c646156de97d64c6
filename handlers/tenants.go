package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docgate/docgate/internal/tenant"
	"github.com/docgate/docgate/pkg/middleware"
)

// TenantHandler exposes the admin-only tenant lifecycle endpoints.
type TenantHandler struct {
	svc *tenant.Service
}

func RegisterTenantRoutes(r *gin.Engine, svc *tenant.Service, adminToken string) {
	h := &TenantHandler{svc: svc}
	grp := r.Group("/api/v1/tenants", middleware.AdminAuth(adminToken))
	grp.POST("", h.Create)
	grp.DELETE("/:id", h.Delete)
}

// Create provisions a tenant. The response carries the plaintext api key;
// it is not recoverable afterwards.
func (h *TenantHandler) Create(c *gin.Context) {
	var req struct {
		Name               string `json:"name"`
		DocumentQuota      int64  `json:"document_quota"`
		RateLimitPerMinute int64  `json:"rate_limit_per_minute"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, apiKey, err := h.svc.Create(c.Request.Context(), req.Name, req.DocumentQuota, req.RateLimitPerMinute)
	if err != nil {
		if errors.Is(err, tenant.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create tenant"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"tenant":  t,
		"api_key": apiKey,
	})
}

// Delete removes the tenant and everything it owns.
func (h *TenantHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, tenant.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete tenant"})
		return
	}
	c.Status(http.StatusNoContent)
}
