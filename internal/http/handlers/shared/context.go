package shared

import (
	"strings"

	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// 会话中间件写入的上下文 key
const (
	IdentityContextKey  = "identity"
	ScopeContextKey     = "access_scope"
	TokenContextKey     = "session_token"
	RequestIDContextKey = "request_id"
)

// CurrentIdentity 读取已认证身份，缺失时返回 401。
func CurrentIdentity(c *gin.Context) (*identity.Identity, bool) {
	value, exists := c.Get(IdentityContextKey)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return nil, false
	}
	id, ok := value.(*identity.Identity)
	if !ok || id == nil {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return nil, false
	}
	return id, true
}

// CurrentScope 读取当前数据范围，缺失时返回 403。
func CurrentScope(c *gin.Context) (service.AccessScope, bool) {
	value, exists := c.Get(ScopeContextKey)
	if !exists {
		RespondError(c, response.CodeForbidden, "error.forbidden", nil)
		return service.AccessScope{}, false
	}
	scope, ok := value.(service.AccessScope)
	if !ok {
		RespondError(c, response.CodeForbidden, "error.forbidden", nil)
		return service.AccessScope{}, false
	}
	return scope, true
}

// CurrentToken 读取当前会话令牌。
func CurrentToken(c *gin.Context) string {
	value, exists := c.Get(TokenContextKey)
	if !exists {
		return ""
	}
	if token, ok := value.(string); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// CurrentRequestID 读取请求 ID。
func CurrentRequestID(c *gin.Context) string {
	value, exists := c.Get(RequestIDContextKey)
	if !exists {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return strings.TrimSpace(requestID)
	}
	return ""
}
