package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	seedEventName     = "Summer Rewards 2024"
	seedPassword      = "password123"
	defaultSeedReward = 50
	seedDummyRewards  = 5
)

type seedOptions struct {
	Rewards int
	Reset   bool
}

func newRootCommand() *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "写入演示租户、商户、用户、活动与奖励",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Rewards < 0 {
				return fmt.Errorf("invalid --rewards %d", opts.Rewards)
			}
			cfg := config.Load()
			logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
			defer logger.Sync()
			if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
				MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
				MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
				ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
				ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
			}, false); err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer func() { _ = models.CloseDB() }()
			if err := models.AutoMigrate(); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			return runSeed(models.DB, *opts, time.Now())
		},
	}
	cmd.Flags().IntVar(&opts.Rewards, "rewards", defaultSeedReward, "演示奖励数量")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "写入前清空业务数据")
	return cmd
}

func runSeed(db *gorm.DB, opts seedOptions, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if opts.Reset {
			if err := resetData(tx); err != nil {
				return err
			}
		}

		tenants, err := seedTenants(tx)
		if err != nil {
			return err
		}
		merchants, err := seedMerchants(tx, tenants)
		if err != nil {
			return err
		}
		if err := seedUsers(tx, tenants, merchants); err != nil {
			return err
		}
		event, err := seedEvent(tx, tenants["BLUIND"], merchants["CCD"], now)
		if err != nil {
			return err
		}
		created, err := seedRewards(tx, event, merchants["CCD"], opts.Rewards, now)
		if err != nil {
			return err
		}
		logger.Infow("seed_done", "event_id", event.ID, "rewards_created", created, "reset", opts.Reset)
		return nil
	})
}

func resetData(tx *gorm.DB) error {
	// 按外键依赖逆序清理
	tables := []interface{}{
		&models.RewardClaimLog{},
		&models.Reward{},
		&models.MarketingEvent{},
		&models.MerchantAssignment{},
		&models.TenantAssignment{},
		&models.LoginLog{},
		&models.User{},
		&models.Merchant{},
		&models.Tenant{},
	}
	for _, table := range tables {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(table).Error; err != nil {
			return fmt.Errorf("reset %T: %w", table, err)
		}
	}
	logger.Warnw("seed_reset_done")
	return nil
}

func seedTenants(tx *gorm.DB) (map[string]models.Tenant, error) {
	rows := []models.Tenant{
		{Name: "BluBoy India", Code: "BLUIND", Status: constants.StatusActive},
		{Name: "BluBoy International", Code: "BLUINTL", Status: constants.StatusActive},
	}
	out := make(map[string]models.Tenant, len(rows))
	for _, row := range rows {
		tenant := row
		if err := tx.Where("code = ?", row.Code).FirstOrCreate(&tenant).Error; err != nil {
			return nil, fmt.Errorf("seed tenant %s: %w", row.Code, err)
		}
		out[tenant.Code] = tenant
	}
	return out, nil
}

func seedMerchants(tx *gorm.DB, tenants map[string]models.Tenant) (map[string]models.Merchant, error) {
	india := tenants["BLUIND"].ID
	rows := []models.Merchant{
		{TenantID: india, Name: "Cafe Coffee Day", Code: "CCD", Status: constants.StatusActive},
		{TenantID: india, Name: "Pizza Hut", Code: "PHT", Status: constants.StatusActive},
		{TenantID: india, Name: "Starbucks", Code: "SBX", Status: constants.StatusActive},
	}
	out := make(map[string]models.Merchant, len(rows))
	for _, row := range rows {
		merchant := row
		if err := tx.Where("code = ?", row.Code).FirstOrCreate(&merchant).Error; err != nil {
			return nil, fmt.Errorf("seed merchant %s: %w", row.Code, err)
		}
		out[merchant.Code] = merchant
	}
	return out, nil
}

func seedUsers(tx *gorm.DB, tenants map[string]models.Tenant, merchants map[string]models.Merchant) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	rows := []struct {
		user        models.User
		tenantCodes []string
		merchants   []string
	}{
		{user: models.User{Email: "admin@bluboy.com", Name: "Super Admin", Role: constants.RoleSuperAdmin}},
		{user: models.User{Email: "marketing@bluboy.com", Name: "Marketing Admin", Role: constants.RoleTenantMarketingAdmin}, tenantCodes: []string{"BLUIND"}},
		{user: models.User{Email: "merchant@ccd.com", Name: "CCD Merchant", Role: constants.RoleMerchantAdmin}, merchants: []string{"CCD"}},
	}
	now := time.Now()
	for _, row := range rows {
		user := row.user
		user.Status = constants.StatusActive
		user.PasswordHash = string(hash)
		if err := tx.Where("email = ?", user.Email).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", user.Email, err)
		}
		for _, code := range row.tenantCodes {
			assignment := models.TenantAssignment{UserID: user.ID, TenantID: tenants[code].ID, AssignedBy: "seed", AssignedAt: now}
			if err := tx.Where("user_id = ? AND tenant_id = ?", assignment.UserID, assignment.TenantID).FirstOrCreate(&assignment).Error; err != nil {
				return fmt.Errorf("seed tenant assignment %s: %w", user.Email, err)
			}
		}
		for _, code := range row.merchants {
			assignment := models.MerchantAssignment{UserID: user.ID, MerchantID: merchants[code].ID, AssignedBy: "seed", AssignedAt: now}
			if err := tx.Where("user_id = ? AND merchant_id = ?", assignment.UserID, assignment.MerchantID).FirstOrCreate(&assignment).Error; err != nil {
				return fmt.Errorf("seed merchant assignment %s: %w", user.Email, err)
			}
		}
	}
	return nil
}

func seedEvent(tx *gorm.DB, tenant models.Tenant, merchant models.Merchant, now time.Time) (*models.MarketingEvent, error) {
	var event models.MarketingEvent
	err := tx.Where("name = ? AND merchant_id = ?", seedEventName, merchant.ID).First(&event).Error
	if err == nil {
		return &event, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	activatedAt := now
	event = models.MarketingEvent{
		Name:              seedEventName,
		Description:       "Demo rewards for the summer campaign",
		TenantID:          tenant.ID,
		MerchantID:        merchant.ID,
		MinRewardValue:    models.NewMoneyFromCents(1000),
		MaxRewardValue:    models.NewMoneyFromCents(50000),
		TotalRewards:      100,
		DummyRewards:      seedDummyRewards,
		AllowDummyRewards: true,
		StartDate:         now.AddDate(0, 0, -30),
		EndDate:           now.AddDate(0, 0, 60),
		Status:            constants.EventStatusActive,
		CreatedBy:         "seed",
		ActivatedAt:       &activatedAt,
	}
	if err := tx.Create(&event).Error; err != nil {
		return nil, fmt.Errorf("seed event: %w", err)
	}
	return &event, nil
}

// seedRewards 已有奖励时跳过，状态在可用/已发放/已核销之间随机分布
func seedRewards(tx *gorm.DB, event *models.MarketingEvent, merchant models.Merchant, total int, now time.Time) (int, error) {
	if total == 0 {
		return 0, nil
	}
	var existing int64
	if err := tx.Model(&models.Reward{}).Where("event_id = ?", event.ID).Count(&existing).Error; err != nil {
		return 0, err
	}
	if existing > 0 {
		logger.Infow("seed_rewards_skip_existing", "event_id", event.ID, "existing", existing)
		return 0, nil
	}

	generator := service.NewRewardCodeGenerator(nil)
	statuses := []string{constants.RewardStatusAvailable, constants.RewardStatusDistributed, constants.RewardStatusClaimed}
	seen := make(map[string]struct{}, total)
	rewards := make([]models.Reward, 0, total)
	for len(rewards) < total {
		code, err := generator.Generate(merchant.Code)
		if err != nil {
			return 0, err
		}
		if _, dup := seen[code.CodePart1]; dup {
			continue
		}
		seen[code.CodePart1] = struct{}{}
		value, err := generator.Value(event.MinRewardValue, event.MaxRewardValue)
		if err != nil {
			return 0, err
		}
		i := len(rewards)
		reward := models.Reward{
			EventID:    event.ID,
			MerchantID: merchant.ID,
			CodePart1:  code.CodePart1,
			CodePart2:  code.CodePart2,
			FullCode:   code.FullCode,
			Value:      value,
			Status:     statuses[rand.IntN(len(statuses))],
			IsDummy:    i < seedDummyRewards,
		}
		if reward.Status != constants.RewardStatusAvailable {
			customer := fmt.Sprintf("CUST%04d", i+1)
			distributedAt := now.Add(-time.Duration(rand.IntN(30*24)) * time.Hour)
			expiresAt := event.EndDate
			reward.CustomerID = &customer
			reward.DistributedAt = &distributedAt
			reward.ExpiresAt = &expiresAt
		}
		if reward.Status == constants.RewardStatusClaimed {
			claimedAt := reward.DistributedAt.Add(time.Duration(rand.IntN(72)+1) * time.Hour)
			if claimedAt.After(now) {
				claimedAt = now
			}
			reward.ClaimedAt = &claimedAt
		}
		rewards = append(rewards, reward)
	}
	if err := tx.CreateInBatches(rewards, 100).Error; err != nil {
		return 0, fmt.Errorf("seed rewards: %w", err)
	}
	return len(rewards), nil
}
