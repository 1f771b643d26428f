package config

import (
	"fmt"
	"strings"

	"github.com/bluboy-rewards/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Security  SecurityConfig  `mapstructure:"security"`
	Captcha   CaptchaConfig   `mapstructure:"captcha"`
	Reward    RewardConfig    `mapstructure:"reward"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 会话令牌配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
	Issuer      string `mapstructure:"issuer"`
}

// AuthConfig 身份提供方配置
type AuthConfig struct {
	Provider    string             `mapstructure:"provider"` // static / database
	StaticUsers []StaticUserConfig `mapstructure:"static_users"`
	CookieName  string             `mapstructure:"cookie_name"`
	CookieHTTPS bool               `mapstructure:"cookie_https"`
}

// StaticUserConfig 静态凭据条目
type StaticUserConfig struct {
	Email         string   `mapstructure:"email"`
	Password      string   `mapstructure:"password"`
	Name          string   `mapstructure:"name"`
	Role          string   `mapstructure:"role"`
	TenantCodes   []string `mapstructure:"tenant_codes"`
	MerchantCodes []string `mapstructure:"merchant_codes"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit       RateLimitConfig      `mapstructure:"login_rate_limit"`
	ClaimVerifyRateLimit RateLimitConfig      `mapstructure:"claim_verify_rate_limit"`
	PasswordPolicy       PasswordPolicyConfig `mapstructure:"password_policy"`
}

// PasswordPolicyConfig 后台用户密码策略
type PasswordPolicyConfig struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireNumber  bool `mapstructure:"require_number"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// CaptchaConfig 登录验证码配置
type CaptchaConfig struct {
	Provider      string `mapstructure:"provider"` // none / image
	Length        int    `mapstructure:"length"`
	Width         int    `mapstructure:"width"`
	Height        int    `mapstructure:"height"`
	NoiseCount    int    `mapstructure:"noise_count"`
	ShowLine      int    `mapstructure:"show_line"`
	ExpireSeconds int    `mapstructure:"expire_seconds"`
	MaxStore      int    `mapstructure:"max_store"`
}

// RewardConfig 奖励码与核销配置
type RewardConfig struct {
	MaxRewardsPerEvent      int `mapstructure:"max_rewards_per_event"`
	GenerateMaxRounds       int `mapstructure:"generate_max_rounds"`
	InsertBatchSize         int `mapstructure:"insert_batch_size"`
	AsyncGenerateThreshold  int `mapstructure:"async_generate_threshold"`
	ClaimSessionTTLSeconds  int `mapstructure:"claim_session_ttl_seconds"`
	ClaimSessionMemoryLimit int `mapstructure:"claim_session_memory_limit"`
}

// AnalyticsConfig 统计配置
type AnalyticsConfig struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

// MetricsConfig 监控指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// WorkerConfig 后台任务配置
type WorkerConfig struct {
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
}

// DefaultStaticUsers 演示环境内置账号
func DefaultStaticUsers() []StaticUserConfig {
	return []StaticUserConfig{
		{Email: "admin@bluboy.com", Password: "password123", Name: "Super Admin", Role: "SUPER_ADMIN"},
		{Email: "marketing@bluboy.com", Password: "password123", Name: "Marketing Admin", Role: "TENANT_MARKETING_ADMIN", TenantCodes: []string{"BLUIND"}},
		{Email: "merchant@ccd.com", Password: "password123", Name: "CCD Merchant", Role: "MERCHANT_ADMIN", MerchantCodes: []string{"CCD"}},
	}
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // 从当前目录查找
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	setDefaults(v)

	// 环境变量支持
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := decode(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config decode failed: %w", err))
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Auth.StaticUsers) == 0 {
		cfg.Auth.StaticUsers = DefaultStaticUsers()
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/rewards.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 168)
	v.SetDefault("jwt.issuer", "bluboy-rewards")
	v.SetDefault("auth.provider", "static")
	v.SetDefault("auth.cookie_name", "auth-session")
	v.SetDefault("auth.cookie_https", false)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "rw")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
		"X-Locale",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.claim_verify_rate_limit.window_seconds", 60)
	v.SetDefault("security.claim_verify_rate_limit.max_attempts", 30)
	v.SetDefault("security.password_policy.min_length", 8)
	v.SetDefault("security.password_policy.require_upper", false)
	v.SetDefault("security.password_policy.require_lower", false)
	v.SetDefault("security.password_policy.require_number", true)
	v.SetDefault("security.password_policy.require_special", false)
	v.SetDefault("captcha.provider", "none")
	v.SetDefault("captcha.length", 5)
	v.SetDefault("captcha.width", 240)
	v.SetDefault("captcha.height", 80)
	v.SetDefault("captcha.noise_count", 2)
	v.SetDefault("captcha.show_line", 2)
	v.SetDefault("captcha.expire_seconds", 300)
	v.SetDefault("captcha.max_store", 10240)
	v.SetDefault("reward.max_rewards_per_event", 100000)
	v.SetDefault("reward.generate_max_rounds", 5)
	v.SetDefault("reward.insert_batch_size", 500)
	v.SetDefault("reward.async_generate_threshold", 5000)
	v.SetDefault("reward.claim_session_ttl_seconds", 900)
	v.SetDefault("reward.claim_session_memory_limit", 4096)
	v.SetDefault("analytics.cache_ttl_seconds", 300)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("worker.sweep_interval_seconds", 60)
}
