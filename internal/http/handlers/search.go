package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenantsearch-backend/internal/http/response"
	"github.com/yungbote/tenantsearch-backend/internal/platform/apierr"
	"github.com/yungbote/tenantsearch-backend/internal/platform/ctxutil"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

type SearchHandler struct {
	search services.SearchService
}

func NewSearchHandler(search services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	Text   string `json:"text" binding:"required"`
	Limit  int    `json:"limit"`
	Locale string `json:"locale"`
}

// POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	res, err := h.search.Search(c.Request.Context(), ctxutil.TenantID(c.Request.Context()), req.Text, req.Limit, services.WithLocale(req.Locale))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, res)
}

type feedbackRequest struct {
	Feedback *int16 `json:"feedback" binding:"required"`
}

// POST /api/v1/queries/:id/feedback
func (h *SearchHandler) Feedback(c *gin.Context) {
	queryID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	if err := h.search.RecordFeedback(c.Request.Context(), ctxutil.TenantID(c.Request.Context()), queryID, *req.Feedback); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"query_id": queryID, "feedback": *req.Feedback})
}
