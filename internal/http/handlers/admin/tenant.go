package admin

import (
	"strings"

	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// TenantRequest 租户请求
type TenantRequest struct {
	Name   string `json:"name" binding:"required"`
	Code   string `json:"code" binding:"required"`
	Status string `json:"status"`
}

func (r TenantRequest) toInput() service.TenantInput {
	return service.TenantInput{Name: r.Name, Code: r.Code, Status: r.Status}
}

// ListTenants 租户列表
func (h *Handler) ListTenants(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.QueryPagination(c)
	tenants, total, err := h.TenantService.List(c.Request.Context(), page, pageSize,
		strings.TrimSpace(c.Query("status")),
		strings.TrimSpace(c.Query("search")),
		scope,
	)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, tenants, response.BuildPagination(page, pageSize, total))
}

// CreateTenant 创建租户
func (h *Handler) CreateTenant(c *gin.Context) {
	var req TenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	tenant, err := h.TenantService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		respondWithMappedError(c, err, organisationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_tenant_created", "tenant_id", tenant.ID, "code", tenant.Code)
	response.Success(c, tenant)
}

// UpdateTenant 更新租户
func (h *Handler) UpdateTenant(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req TenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	tenant, err := h.TenantService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondWithMappedError(c, err, organisationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, tenant)
}
