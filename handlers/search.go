package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docgate/docgate/internal/search"
	"github.com/docgate/docgate/pkg/middleware"
)

type SearchHandler struct {
	gw *search.Gateway
}

func RegisterSearchRoutes(grp *gin.RouterGroup, gw *search.Gateway) {
	h := &SearchHandler{gw: gw}
	grp.GET("/search", h.Search)
}

func (h *SearchHandler) Search(c *gin.Context) {
	t := middleware.TenantFrom(c)
	query := c.Query("q")
	page := intQuery(c, "page", 1)
	perPage := intQuery(c, "per_page", 0)

	res, err := h.gw.Search(c.Request.Context(), t.ID, query, page, perPage)
	if errors.Is(err, search.ErrEmptyQuery) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":    query,
		"total":    res.Total,
		"page":     res.Page,
		"per_page": res.PerPage,
		"took_ms":  res.TookMS,
		"source":   res.Source,
		"results":  res.Hits,
	})
}
