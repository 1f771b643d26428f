package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/bluboy-rewards/internal/app"
	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner(mode)

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isWeakSecret(cfg.JWT.SecretKey) {
			stdLog.Fatalf("会话签名密钥过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
	} else if isWeakSecret(cfg.JWT.SecretKey) {
		stdLog.Printf("警告: 会话签名密钥过弱或仍为默认值，建议在生产环境中更换")
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug"); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 数据库身份提供方需要至少一个超级管理员
	if strings.EqualFold(cfg.Auth.Provider, "database") {
		adminEmail := os.Getenv("BLUBOY_DEFAULT_ADMIN_EMAIL")
		adminPass := os.Getenv("BLUBOY_DEFAULT_ADMIN_PASSWORD")
		if cfg.Server.Mode == "release" && adminPass == "" {
			stdLog.Printf("警告: 未设置 BLUBOY_DEFAULT_ADMIN_PASSWORD，已跳过默认超级管理员初始化")
		} else if err := models.InitDefaultSuperAdmin(adminEmail, adminPass); err != nil {
			stdLog.Printf("警告: 初始化默认超级管理员失败: %v", err)
		}
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	runErr := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
	if err := models.CloseDB(); err != nil {
		logger.Warnw("app_close_db_failed", "error", err)
	}
	if runErr != nil {
		stdLog.Fatalf("服务运行失败: %v", runErr)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║            BluBoy Rewards Admin API 启动中           ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + ansiBold + "mode: " + mode + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
