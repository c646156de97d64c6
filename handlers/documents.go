package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docgate/docgate/internal/document/service"
	"github.com/docgate/docgate/pkg/middleware"
)

// DocumentHandler exposes tenant-scoped document CRUD. Every route assumes
// TenantAuth already ran.
type DocumentHandler struct {
	svc *service.Service
}

func RegisterDocumentRoutes(grp *gin.RouterGroup, svc *service.Service) {
	h := &DocumentHandler{svc: svc}
	grp.POST("/documents", h.Create)
	grp.GET("/documents", h.List)
	grp.GET("/documents/:id", h.Get)
	grp.PUT("/documents/:id", h.Update)
	grp.DELETE("/documents/:id", h.Delete)
}

type documentRequest struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

func (h *DocumentHandler) Create(c *gin.Context) {
	t := middleware.TenantFrom(c)
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.Create(c.Request.Context(), t.ID, t.DocumentQuota, req.Title, req.Content, req.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrQuotaExceeded):
			c.JSON(http.StatusForbidden, gin.H{"error": "document quota exceeded"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create document"})
		}
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *DocumentHandler) List(c *gin.Context) {
	t := middleware.TenantFrom(c)
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	docs, err := h.svc.List(c.Request.Context(), t.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	t := middleware.TenantFrom(c)
	d, err := h.svc.Get(c.Request.Context(), t.ID, c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	t := middleware.TenantFrom(c)
	var req struct {
		Title    *string           `json:"title,omitempty"`
		Content  string            `json:"content"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.Update(c.Request.Context(), t.ID, c.Param("id"), req.Title, req.Content, req.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update document"})
		}
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	t := middleware.TenantFrom(c)
	err := h.svc.Delete(c.Request.Context(), t.ID, c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		return
	}
	c.Status(http.StatusNoContent)
}

// intQuery parses a numeric query parameter, falling back to def on absent
// or malformed values.
func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
