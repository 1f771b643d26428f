package provider

import (
	"context"
	"time"

	"github.com/bluboy-rewards/internal/authz"
	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/metrics"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/queue"
	"github.com/bluboy-rewards/internal/repository"
	"github.com/bluboy-rewards/internal/service"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultClaimSessionTTL    = 30 * time.Minute
	defaultAnalyticsCacheTTL  = 60 * time.Second
	defaultClaimSessionMemory = 10000
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	Cache       *cache.Store
	QueueClient *queue.Client
	Metrics     *metrics.Metrics

	// Repositories
	TenantRepo         repository.TenantRepository
	MerchantRepo       repository.MerchantRepository
	UserRepo           repository.UserRepository
	AssignmentRepo     repository.AssignmentRepository
	EventRepo          repository.EventRepository
	RewardRepo         repository.RewardRepository
	RewardClaimLogRepo repository.RewardClaimLogRepository
	LoginLogRepo       repository.LoginLogRepository
	DashboardRepo      repository.DashboardRepository

	// Services
	AuthzService        *authz.Service
	IdentityProvider    identity.Provider
	AuthService         *service.AuthService
	CaptchaService      *service.CaptchaService
	LoginLogService     *service.LoginLogService
	ScopeResolver       *service.ScopeResolver
	TenantService       *service.TenantService
	MerchantService     *service.MerchantService
	UserService         *service.UserService
	RewardService       *service.RewardService
	EventService        *service.EventService
	ClaimService        *service.ClaimService
	ClaimSessionService *service.ClaimSessionService
	AnalyticsService    *service.AnalyticsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存，未启用时所有调用降级为空操作
	cacheStore := cache.New(&cfg.Redis)
	if cacheStore.Enabled() {
		if err := cacheStore.Ping(context.Background()); err != nil {
			logger.Warnw("provider_init_redis_failed", "error", err)
		}
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.NewRegistry())
	}

	c := &Container{
		Config:      cfg,
		Cache:       cacheStore,
		QueueClient: queueClient,
		Metrics:     m,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

// Close 释放缓存与队列连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			logger.Warnw("provider_close_cache_failed", "error", err)
		}
	}
}

func (c *Container) initRepositories() {
	db := models.DB
	c.TenantRepo = repository.NewTenantRepository(db)
	c.MerchantRepo = repository.NewMerchantRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.AssignmentRepo = repository.NewAssignmentRepository(db)
	c.EventRepo = repository.NewEventRepository(db)
	c.RewardRepo = repository.NewRewardRepository(db)
	c.RewardClaimLogRepo = repository.NewRewardClaimLogRepository(db)
	c.LoginLogRepo = repository.NewLoginLogRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	issuer := identity.NewTokenIssuer(c.Config.JWT, c.Cache)
	provider, err := identity.New(c.Config.Auth, issuer, c.Cache, identity.DatabaseDeps{
		Users:       c.UserRepo,
		Assignments: c.AssignmentRepo,
	})
	if err != nil {
		logger.Errorw("provider_init_identity_failed", "provider", c.Config.Auth.Provider, "error", err)
		panic(err)
	}
	c.IdentityProvider = provider

	rewardCfg := c.Config.Reward
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha, c.Cache)
	c.LoginLogService = service.NewLoginLogService(c.LoginLogRepo)
	c.AuthService = service.NewAuthService(provider, c.CaptchaService, c.LoginLogService)
	c.ScopeResolver = service.NewScopeResolver(c.TenantRepo, c.MerchantRepo)
	c.TenantService = service.NewTenantService(c.TenantRepo)
	c.MerchantService = service.NewMerchantService(c.MerchantRepo, c.TenantRepo)
	c.UserService = service.NewUserService(c.UserRepo, c.AssignmentRepo, c.TenantRepo, c.MerchantRepo, c.Cache, c.Config.Security.PasswordPolicy)
	c.RewardService = service.NewRewardService(c.RewardRepo, c.EventRepo, service.NewRewardCodeGenerator(nil), rewardCfg, c.Metrics)
	c.EventService = service.NewEventService(c.EventRepo, c.RewardRepo, c.MerchantRepo, c.RewardService, c.QueueClient, rewardCfg, c.Metrics)
	c.ClaimService = service.NewClaimService(c.RewardRepo, c.RewardClaimLogRepo, c.Metrics)

	memoryLimit := rewardCfg.ClaimSessionMemoryLimit
	if memoryLimit <= 0 {
		memoryLimit = defaultClaimSessionMemory
	}
	sessionTTL := secondsOr(rewardCfg.ClaimSessionTTLSeconds, defaultClaimSessionTTL)
	c.ClaimSessionService = service.NewClaimSessionService(c.ClaimService, service.NewClaimSessionStore(c.Cache, memoryLimit), sessionTTL)

	analyticsTTL := secondsOr(c.Config.Analytics.CacheTTLSeconds, defaultAnalyticsCacheTTL)
	c.AnalyticsService = service.NewAnalyticsService(c.DashboardRepo, c.RewardRepo, c.Cache, analyticsTTL, c.Metrics)
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
