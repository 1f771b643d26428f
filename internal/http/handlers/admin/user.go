package admin

import (
	"strings"

	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateUserRequest 创建后台用户
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Status   string `json:"status"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest 更新后台用户，空字段保持不变
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Password string `json:"password"`
}

// AssignmentRequest 授权租户/商户
type AssignmentRequest struct {
	TargetID uint `json:"target_id" binding:"required"`
}

// ListUsers 用户列表
func (h *Handler) ListUsers(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	users, total, err := h.UserService.List(c.Request.Context(), page, pageSize,
		strings.TrimSpace(c.Query("role")),
		strings.TrimSpace(c.Query("status")),
		strings.TrimSpace(c.Query("search")),
	)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, users, response.BuildPagination(page, pageSize, total))
}

// CreateUser 创建用户
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, err := h.UserService.Create(c.Request.Context(), service.UserInput{
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		Status:   req.Status,
		Password: req.Password,
	})
	if err != nil {
		respondWithMappedError(c, err, organisationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_user_created", "user_id", user.ID, "role", user.Role)
	response.Success(c, user)
}

// UpdateUser 更新用户
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, err := h.UserService.Update(c.Request.Context(), id, service.UserInput{
		Name:     req.Name,
		Role:     req.Role,
		Status:   req.Status,
		Password: req.Password,
	})
	if err != nil {
		respondWithMappedError(c, err, organisationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, user)
}

// GetUserAssignments 用户的租户/商户授权
func (h *Handler) GetUserAssignments(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	assignments, err := h.UserService.Assignments(c.Request.Context(), id)
	if err != nil {
		respondWithMappedError(c, err, organisationErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, assignments)
}

// AssignUserTenant 授权租户
func (h *Handler) AssignUserTenant(c *gin.Context) {
	h.changeAssignment(c, func(userID, targetID uint, operator string) error {
		return h.UserService.AssignTenant(c.Request.Context(), userID, targetID, operator)
	})
}

// RevokeUserTenant 撤销租户
func (h *Handler) RevokeUserTenant(c *gin.Context) {
	h.changeAssignment(c, func(userID, targetID uint, _ string) error {
		return h.UserService.RevokeTenant(c.Request.Context(), userID, targetID)
	})
}

// AssignUserMerchant 授权商户
func (h *Handler) AssignUserMerchant(c *gin.Context) {
	h.changeAssignment(c, func(userID, targetID uint, operator string) error {
		return h.UserService.AssignMerchant(c.Request.Context(), userID, targetID, operator)
	})
}

// RevokeUserMerchant 撤销商户
func (h *Handler) RevokeUserMerchant(c *gin.Context) {
	h.changeAssignment(c, func(userID, targetID uint, _ string) error {
		return h.UserService.RevokeMerchant(c.Request.Context(), userID, targetID)
	})
}

func (h *Handler) changeAssignment(c *gin.Context, apply func(userID, targetID uint, operator string) error) {
	userID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	operator, ok := currentIdentity(c)
	if !ok {
		return
	}
	if err := apply(userID, req.TargetID, operator.Email); err != nil {
		respondWithMappedError(c, err, organisationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, nil)
}
