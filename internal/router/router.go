package router

import (
	"sort"
	"strings"

	"github.com/bluboy-rewards/internal/authz"
	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"
	adminhandlers "github.com/bluboy-rewards/internal/http/handlers/admin"
	publichandlers "github.com/bluboy-rewards/internal/http/handlers/public"
	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/provider"

	"github.com/gin-gonic/gin"
)

const defaultMetricsPath = "/metrics"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisClient := c.Cache.Client()
	loginRule := RateLimitRule{
		Prefix:        c.Cache.Key("rate:login"),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_too_many",
		OnLimited: func(ctx *gin.Context, _ string) {
			c.AuthService.RecordRateLimited(
				readJSONField(ctx, "email"),
				ctx.ClientIP(),
				ctx.Request.UserAgent(),
				handlershared.CurrentRequestID(ctx),
			)
		},
	}
	claimVerifyRule := RateLimitRule{
		Prefix:        c.Cache.Key("rate:claim_verify"),
		WindowSeconds: cfg.Security.ClaimVerifyRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimVerifyRateLimit.MaxAttempts,
	}

	cookieName := strings.TrimSpace(cfg.Auth.CookieName)
	if cookieName == "" {
		cookieName = constants.AuthSessionCookie
	}
	sessionAuth := SessionAuthMiddleware(c.AuthService, c.ScopeResolver, cookieName)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware(c.Metrics))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.GET("/captcha", publicHandler.GetCaptcha)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.Login)
			auth.POST("/logout", sessionAuth, publicHandler.Logout)
			auth.GET("/me", sessionAuth, publicHandler.Me)
		}

		admin := apiV1.Group("/admin")
		admin.Use(sessionAuth, RoleRBACMiddleware(c.AuthzService))
		{
			admin.GET("/navigation", adminHandler.GetNavigation)
			admin.GET("/navigation/can-view", adminHandler.CanViewScreen)

			// 仪表盘与统计
			admin.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
			admin.GET("/analytics/rewards", adminHandler.GetRewardAnalytics)
			admin.GET("/analytics/trends", adminHandler.GetClaimTrends)

			// 组织
			admin.GET("/tenants", adminHandler.ListTenants)
			admin.POST("/tenants", adminHandler.CreateTenant)
			admin.PUT("/tenants/:id", adminHandler.UpdateTenant)
			admin.GET("/merchants", adminHandler.ListMerchants)
			admin.POST("/merchants", adminHandler.CreateMerchant)
			admin.PUT("/merchants/:id", adminHandler.UpdateMerchant)

			// 后台用户
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.PUT("/users/:id", adminHandler.UpdateUser)
			admin.GET("/users/:id/assignments", adminHandler.GetUserAssignments)
			admin.POST("/users/:id/tenants", adminHandler.AssignUserTenant)
			admin.DELETE("/users/:id/tenants", adminHandler.RevokeUserTenant)
			admin.POST("/users/:id/merchants", adminHandler.AssignUserMerchant)
			admin.DELETE("/users/:id/merchants", adminHandler.RevokeUserMerchant)
			admin.GET("/login-logs", adminHandler.ListLoginLogs)

			// 营销活动
			admin.GET("/events", adminHandler.ListEvents)
			admin.POST("/events", adminHandler.CreateEvent)
			admin.GET("/events/:id", adminHandler.GetEvent)
			admin.PUT("/events/:id", adminHandler.UpdateEvent)
			admin.POST("/events/:id/activate", adminHandler.ActivateEvent)
			admin.POST("/events/:id/cancel", adminHandler.CancelEvent)

			// 奖励
			admin.GET("/rewards", adminHandler.ListRewards)
			admin.POST("/rewards/distribute", adminHandler.DistributeReward)
			admin.POST("/rewards/expire-sweep", adminHandler.RunExpireSweep)
			admin.GET("/rewards/:id", adminHandler.GetReward)
			admin.POST("/rewards/:id/distribute", adminHandler.DistributeReward)
			admin.POST("/rewards/:id/cancel", adminHandler.CancelReward)

			// 核销
			admin.GET("/claims/session", adminHandler.GetClaimSession)
			admin.POST("/claims/verify", RateLimitMiddleware(redisClient, claimVerifyRule, KeyBySessionEmail), adminHandler.VerifyClaim)
			admin.POST("/claims/commit", adminHandler.CommitClaim)
			admin.POST("/claims/reset", adminHandler.ResetClaim)

			// 权限
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.POST("/authz/roles", adminHandler.CreateAuthzRole)
			admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			admin.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
			admin.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	if c.Metrics != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = defaultMetricsPath
		}
		r.GET(path, gin.WrapH(c.Metrics.Handler()))
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 由已注册路由生成可授权的接口清单
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 || segments[0] != "admin" {
		return segments[0]
	}
	switch segments[1] {
	case "dashboard", "analytics":
		return "analytics"
	case "login-logs":
		return "users"
	}
	return segments[1]
}
