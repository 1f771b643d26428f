//go:build integration
// +build integration

package repository

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}
	_ = db.Migrator().DropTable(models.AllModels()...)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate postgres failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Migrator().DropTable(models.AllModels()...)
	})
	return db
}

func TestPostgresRewardCompareAndSetAndSearch(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	fx := seedRewardFixture(t, db)
	repo := NewRewardRepository(db)

	if _, err := repo.InsertMany([]models.Reward{newTestReward(fx, fx.merchant, "CCDPG001", 25000, constants.RewardStatusAvailable, false)}, 10); err != nil {
		t.Fatalf("insert reward failed: %v", err)
	}
	found, total, err := repo.List(RewardListFilter{Search: "ccdpg", Page: 1, PageSize: 10})
	if err != nil || total != 1 {
		t.Fatalf("ILIKE search failed: total=%d err=%v", total, err)
	}

	now := time.Now()
	if err := repo.UpdateStatus(found[0].ID, constants.RewardStatusAvailable, constants.RewardStatusClaimed, map[string]interface{}{"claimed_at": now}); err != nil {
		t.Fatalf("cas failed: %v", err)
	}
	if err := repo.UpdateStatus(found[0].ID, constants.RewardStatusAvailable, constants.RewardStatusClaimed, nil); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("second cas should conflict, got %v", err)
	}

	sum, err := repo.SumValue(RewardAggregateFilter{Statuses: []string{constants.RewardStatusClaimed}})
	if err != nil || sum.StringFixed(2) != "250.00" {
		t.Fatalf("sum want 250.00 got %s err=%v", sum.StringFixed(2), err)
	}
}
