package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count %T failed: %v", model, err)
	}
	return count
}

func TestRunSeedIsIdempotent(t *testing.T) {
	db := openSeedTestDB(t)
	now := time.Now()
	for i := 0; i < 2; i++ {
		if err := runSeed(db, seedOptions{Rewards: 20}, now); err != nil {
			t.Fatalf("seed run %d failed: %v", i+1, err)
		}
	}
	if got := countRows(t, db, &models.Tenant{}); got != 2 {
		t.Fatalf("expected 2 tenants, got %d", got)
	}
	if got := countRows(t, db, &models.Merchant{}); got != 3 {
		t.Fatalf("expected 3 merchants, got %d", got)
	}
	if got := countRows(t, db, &models.User{}); got != 3 {
		t.Fatalf("expected 3 users, got %d", got)
	}
	if got := countRows(t, db, &models.Reward{}); got != 20 {
		t.Fatalf("expected 20 rewards, got %d", got)
	}

	var dummy int64
	if err := db.Model(&models.Reward{}).Where("is_dummy = ?", true).Count(&dummy).Error; err != nil {
		t.Fatalf("count dummy failed: %v", err)
	}
	if dummy != seedDummyRewards {
		t.Fatalf("expected %d dummy rewards, got %d", seedDummyRewards, dummy)
	}

	var rewards []models.Reward
	if err := db.Find(&rewards).Error; err != nil {
		t.Fatalf("list rewards failed: %v", err)
	}
	for _, reward := range rewards {
		if !strings.HasPrefix(reward.CodePart1, "CCD") || len(reward.CodePart1) != constants.RewardClaimCodeLength {
			t.Fatalf("unexpected code part1: %s", reward.CodePart1)
		}
		if reward.Status != constants.RewardStatusAvailable && (reward.CustomerID == nil || !strings.HasPrefix(*reward.CustomerID, "CUST")) {
			t.Fatalf("non-available reward should carry a customer: %+v", reward)
		}
		if reward.Status == constants.RewardStatusClaimed && reward.ClaimedAt == nil {
			t.Fatalf("claimed reward missing claimed_at: %+v", reward)
		}
	}
}

func TestRunSeedResetReplacesRewards(t *testing.T) {
	db := openSeedTestDB(t)
	now := time.Now()
	if err := runSeed(db, seedOptions{Rewards: 10}, now); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if err := runSeed(db, seedOptions{Rewards: 4, Reset: true}, now); err != nil {
		t.Fatalf("reset seed failed: %v", err)
	}
	if got := countRows(t, db, &models.Reward{}); got != 4 {
		t.Fatalf("expected 4 rewards after reset, got %d", got)
	}
	if got := countRows(t, db, &models.MarketingEvent{}); got != 1 {
		t.Fatalf("expected 1 event after reset, got %d", got)
	}
}
