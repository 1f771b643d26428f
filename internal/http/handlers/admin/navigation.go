package admin

import (
	"strings"

	"github.com/bluboy-rewards/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetNavigation 当前角色可见的菜单
func (h *Handler) GetNavigation(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	screens, err := h.AuthzService.NavigationFor(id.Role)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"role": id.Role, "screens": screens})
}

// CanViewScreen 判断当前角色能否进入某个页面
func (h *Handler) CanViewScreen(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	allowed, err := h.AuthzService.CanView(id.Role, path)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"path": path, "allowed": allowed})
}
