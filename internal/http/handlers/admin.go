package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenantsearch-backend/internal/http/response"
	"github.com/yungbote/tenantsearch-backend/internal/platform/apierr"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

// AdminHandler serves the cross-tenant routes. Every call is audit-logged
// by the privileged binder with the token subject as actor.
type AdminHandler struct {
	tenants services.TenantService
	docs    services.DocumentService
}

func NewAdminHandler(tenants services.TenantService, docs services.DocumentService) *AdminHandler {
	return &AdminHandler{tenants: tenants, docs: docs}
}

// GET /api/v1/admin/tenants
func (h *AdminHandler) ListTenants(c *gin.Context) {
	stats, err := h.tenants.ListWithStats(c.Request.Context(), actor(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tenants": stats})
}

type createTenantRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name"`
}

// POST /api/v1/admin/tenants
func (h *AdminHandler) CreateTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	t, err := h.tenants.Create(c.Request.Context(), actor(c), req.Slug, req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"tenant": t})
}

// DELETE /api/v1/admin/tenants/:id/documents
func (h *AdminHandler) PurgeTenant(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.docs.PurgeTenant(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
