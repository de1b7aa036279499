package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenantsearch-backend/internal/http/response"
	"github.com/yungbote/tenantsearch-backend/internal/platform/apierr"
	"github.com/yungbote/tenantsearch-backend/internal/platform/ctxutil"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

type DocumentHandler struct {
	docs services.DocumentService
}

func NewDocumentHandler(docs services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// POST /api/v1/documents
func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req services.IngestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	res, err := h.docs.Ingest(c.Request.Context(), ctxutil.TenantID(c.Request.Context()), req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context(), ctxutil.TenantID(c.Request.Context()), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}

// DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.docs.Delete(c.Request.Context(), ctxutil.TenantID(c.Request.Context()), id); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
