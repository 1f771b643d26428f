package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bluboy-rewards/internal/authz"
	"github.com/bluboy-rewards/internal/config"
	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/i18n"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/metrics"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// SessionResolver 会话令牌解析
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*identity.Identity, error)
}

// ScopeResolver 身份到数据范围的解析
type ScopeResolver interface {
	Resolve(id *identity.Identity) (service.AccessScope, error)
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Accept-Language",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			requestIDHeader,
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Cookie 会话需要回显具体 Origin，通配符不能与 credentials 同时使用
func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(handlershared.RequestIDContextKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := sugar.With(
			"request_id", handlershared.CurrentRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if email := sessionEmail(c); email != "" {
			entry = entry.With("actor", email)
		}
		if len(c.Errors) > 0 {
			entry.Errorw("request", "errors", c.Errors.String())
			return
		}
		entry.Infow("request")
	}
}

// MetricsMiddleware 记录接口耗时，按路由模板聚合
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// SessionAuthMiddleware 会话鉴权中间件
// 令牌优先取 Authorization: Bearer，其次取会话 Cookie。
func SessionAuthMiddleware(sessions SessionResolver, scopes ScopeResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil || scopes == nil {
			logger.Errorw("session_auth_unavailable")
			abortWithKey(c, response.CodeServiceUnavailable, "error.identity_unavailable")
			return
		}
		token, ok := extractSessionToken(c, cookieName)
		if !ok {
			abortWithKey(c, response.CodeUnauthorized, "error.auth_header_invalid")
			return
		}
		if token == "" {
			abortWithKey(c, response.CodeUnauthorized, "error.session_missing")
			return
		}

		id, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			handlershared.RequestLog(c).Debugw("session_resolve_failed", "error", err)
			abortWithKey(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}
		if id == nil {
			abortWithKey(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}

		scope, err := scopes.Resolve(id)
		if err != nil {
			handlershared.RequestLog(c).Warnw("session_scope_resolve_failed",
				"email", id.Email,
				"role", id.Role,
				"error", err,
			)
			abortWithKey(c, response.CodeForbidden, "error.forbidden")
			return
		}

		c.Set(handlershared.IdentityContextKey, id)
		c.Set(handlershared.ScopeContextKey, scope)
		c.Set(handlershared.TokenContextKey, token)
		c.Next()
	}
}

// RoleRBACMiddleware 按角色与路由模板做接口鉴权
func RoleRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortWithKey(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}
		value, exists := c.Get(handlershared.IdentityContextKey)
		id, ok := value.(*identity.Identity)
		if !exists || !ok || id == nil {
			abortWithKey(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceRole(id.Role, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"role", id.Role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortWithKey(c, response.CodeForbidden, "error.forbidden")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"email", id.Email,
				"role", id.Role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			abortWithKey(c, response.CodeForbidden, "error.forbidden")
			return
		}

		c.Next()
	}
}

// extractSessionToken 第二个返回值为 false 表示 Authorization 头格式错误
func extractSessionToken(c *gin.Context, cookieName string) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if strings.TrimSpace(cookieName) == "" {
		return "", true
	}
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return "", true
	}
	return strings.TrimSpace(cookie), true
}

func sessionEmail(c *gin.Context) string {
	value, exists := c.Get(handlershared.IdentityContextKey)
	if !exists {
		return ""
	}
	if id, ok := value.(*identity.Identity); ok && id != nil {
		return id.Email
	}
	return ""
}

func abortWithKey(c *gin.Context, code int, key string) {
	response.Error(c, code, i18n.T(i18n.ResolveLocale(c), key))
	c.Abort()
}
