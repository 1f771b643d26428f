package admin

import (
	"strings"

	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// MerchantRequest 商户请求
type MerchantRequest struct {
	TenantID uint   `json:"tenant_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Status   string `json:"status"`
}

func (r MerchantRequest) toInput() service.MerchantInput {
	return service.MerchantInput{TenantID: r.TenantID, Name: r.Name, Code: r.Code, Status: r.Status}
}

// ListMerchants 商户列表
func (h *Handler) ListMerchants(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	tenantID, err := handlershared.QueryUint(c, "tenant_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.QueryPagination(c)
	merchants, total, err := h.MerchantService.List(c.Request.Context(), page, pageSize, tenantID,
		strings.TrimSpace(c.Query("status")),
		strings.TrimSpace(c.Query("search")),
		scope,
	)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, merchants, response.BuildPagination(page, pageSize, total))
}

// CreateMerchant 创建商户
func (h *Handler) CreateMerchant(c *gin.Context) {
	var req MerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	merchant, err := h.MerchantService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		respondWithMappedError(c, err, organisationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_merchant_created", "merchant_id", merchant.ID, "code", merchant.Code)
	response.Success(c, merchant)
}

// UpdateMerchant 更新商户
func (h *Handler) UpdateMerchant(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req MerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	merchant, err := h.MerchantService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondWithMappedError(c, err, organisationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, merchant)
}
