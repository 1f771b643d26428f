package admin

import (
	"net/url"
	"strings"

	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/identity"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	requestLog(c).Infow("admin_authz_role_created", "operator", operatorEmail(c), "role", role)
	response.Success(c, gin.H{"role": role})
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	requestLog(c).Infow("admin_authz_policy_granted",
		"operator", operatorEmail(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	requestLog(c).Infow("admin_authz_policy_revoked",
		"operator", operatorEmail(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

func decodeRoleParam(value string) string {
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}

// operatorEmail 仅用于日志，缺失时不写响应
func operatorEmail(c *gin.Context) string {
	raw, ok := c.Get(handlershared.IdentityContextKey)
	if !ok {
		return ""
	}
	if id, ok := raw.(*identity.Identity); ok && id != nil {
		return id.Email
	}
	return ""
}
