package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenantsearch-backend/internal/http/response"
	"github.com/yungbote/tenantsearch-backend/internal/platform/apierr"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

type AnalyticsHandler struct {
	analytics services.AnalyticsService
}

func NewAnalyticsHandler(analytics services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

type rebuildRequest struct {
	Locale      string `json:"locale"`
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
	TopK        int    `json:"top_k"`
	Async       bool   `json:"async"`
}

// POST /api/v1/analytics/rebuild
func (h *AnalyticsHandler) Rebuild(c *gin.Context) {
	var req rebuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	scope, err := buildScope(c, req.Locale, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	res, err := h.analytics.Rebuild(c.Request.Context(), services.RebuildInput{Scope: scope, TopK: req.TopK, Async: req.Async})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if res.Async {
		c.JSON(http.StatusAccepted, res)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/v1/analytics/top-queries
func (h *AnalyticsHandler) TopQueries(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	rows, err := h.analytics.TopQueries(c.Request.Context(), scope)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"scope": scope.Normalize(), "top_queries": rows})
}

// GET /api/v1/analytics/clusters
func (h *AnalyticsHandler) Clusters(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	clusters, err := h.analytics.Clusters(c.Request.Context(), scope)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"scope": scope.Normalize(), "clusters": clusters})
}
