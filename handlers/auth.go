package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docgate/docgate/internal/tenant"
	"github.com/docgate/docgate/internal/tokens"
	"github.com/docgate/docgate/pkg/logger"
)

// AuthHandler trades an api key for a short-lived access token.
type AuthHandler struct {
	svc    *tenant.Service
	secret string
	ttl    time.Duration
}

func RegisterAuthRoutes(r *gin.Engine, svc *tenant.Service, jwtSecret string, ttl time.Duration) {
	h := &AuthHandler{svc: svc, secret: jwtSecret, ttl: ttl}
	r.POST("/auth/token", h.Token)
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.APIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required"})
		return
	}
	t, err := h.svc.Authenticate(c.Request.Context(), req.APIKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}
	tok, err := tokens.GenerateAccessToken(h.secret, t.ID, t.Name, h.ttl)
	if err != nil {
		logger.Errorf("failed to sign access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": tok,
		"token_type":   "Bearer",
		"expires_in":   int(h.ttl.Seconds()),
	})
}
