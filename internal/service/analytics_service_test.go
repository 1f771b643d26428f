package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/repository"
)

func TestRewardAnalyticsAggregatesWithoutDummy(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	createTestReward(t, fx, fx.merchant, "CCDAB121", 25000, constants.RewardStatusAvailable)
	createTestReward(t, fx, fx.merchant, "CCDAB122", 25000, constants.RewardStatusClaimed)
	createTestReward(t, fx, fx.merchant, "CCDAB123", 15000, constants.RewardStatusClaimed)
	createTestReward(t, fx, fx.merchant, "CCDAB124", 10000, constants.RewardStatusExpired)
	dummy := createTestReward(t, fx, fx.merchant, "CCDAB125", 99900, constants.RewardStatusClaimed)
	fx.db.Model(dummy).Update("is_dummy", true)
	createTestReward(t, fx, fx.other, "PHTAB121", 12345600, constants.RewardStatusClaimed)

	svc := NewAnalyticsService(repository.NewDashboardRepository(fx.db), repository.NewRewardRepository(fx.db), cache.New(nil), time.Minute, nil)
	result, err := svc.GetRewardAnalytics(context.Background(), RewardAnalyticsInput{}, merchantScope(fx.merchant.ID))
	if err != nil {
		t.Fatalf("reward analytics failed: %v", err)
	}
	if result.Total != 4 || result.Claimed != 2 || result.Available != 1 || result.Expired != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.ClaimedValue != "400.00" || result.ClaimedValueDisplay != "₹400.00" {
		t.Fatalf("unexpected claimed value: %s %s", result.ClaimedValue, result.ClaimedValueDisplay)
	}
	if result.ClaimRate != "50.00" || result.Currency != "INR" {
		t.Fatalf("unexpected rate/currency: %s %s", result.ClaimRate, result.Currency)
	}

	all, err := svc.GetRewardAnalytics(context.Background(), RewardAnalyticsInput{}, UnrestrictedScope())
	if err != nil {
		t.Fatalf("unrestricted analytics failed: %v", err)
	}
	if all.ClaimedValueDisplay != "₹1,23,856.00" {
		t.Fatalf("unexpected unrestricted display: %s", all.ClaimedValueDisplay)
	}
}

func TestResolveAnalyticsWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

	window, err := resolveAnalyticsWindow(ClaimTrendInput{Range: "7d", Timezone: "Asia/Kolkata"}, now)
	if err != nil {
		t.Fatalf("7d window failed: %v", err)
	}
	if window.timezone != "Asia/Kolkata" || window.endAt.Sub(window.startAt) != 7*24*time.Hour {
		t.Fatalf("unexpected 7d window: %+v", window)
	}
	// 18:30 UTC 已是加尔各答次日 00:00
	if window.endAt.Format("2006-01-02") != "2026-03-17" {
		t.Fatalf("window should end after Kolkata today, got %s", window.endAt)
	}

	from := now.AddDate(0, 0, -3)
	window, err = resolveAnalyticsWindow(ClaimTrendInput{Range: "custom", From: &from, To: &now, Timezone: "UTC"}, now)
	if err != nil || window.endAt.Sub(window.startAt) != 4*24*time.Hour {
		t.Fatalf("unexpected custom window: %+v %v", window, err)
	}

	tooLong := now.AddDate(0, 0, -120)
	if _, err := resolveAnalyticsWindow(ClaimTrendInput{Range: "custom", From: &tooLong, To: &now}, now); !errors.Is(err, ErrAnalyticsRangeInvalid) {
		t.Fatalf("custom > 90d want ErrAnalyticsRangeInvalid got %v", err)
	}
	if _, err := resolveAnalyticsWindow(ClaimTrendInput{Range: "quarter"}, now); !errors.Is(err, ErrAnalyticsRangeInvalid) {
		t.Fatalf("unknown range want ErrAnalyticsRangeInvalid got %v", err)
	}
}

func TestScopeCacheKeyIsOrderIndependent(t *testing.T) {
	a := scopeCacheKey(AccessScope{TenantIDs: []uint{2, 1}, MerchantIDs: []uint{9, 3}})
	b := scopeCacheKey(AccessScope{TenantIDs: []uint{1, 2}, MerchantIDs: []uint{3, 9}})
	if a != b || a != "t1,2:m3,9" {
		t.Fatalf("unexpected scope keys: %s %s", a, b)
	}
	if scopeCacheKey(UnrestrictedScope()) != "all" {
		t.Fatalf("unrestricted scope key want all")
	}
}
