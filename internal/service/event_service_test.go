package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/repository"

	"gorm.io/gorm"
)

func newTestEventService(db *gorm.DB) *EventService {
	cfg := config.RewardConfig{MaxRewardsPerEvent: 1000, GenerateMaxRounds: 5, InsertBatchSize: 50, AsyncGenerateThreshold: 500}
	rewardRepo := repository.NewRewardRepository(db)
	eventRepo := repository.NewEventRepository(db)
	rewards := NewRewardService(rewardRepo, eventRepo, nil, cfg, nil)
	return NewEventService(eventRepo, rewardRepo, repository.NewMerchantRepository(db), rewards, nil, cfg, nil)
}

func testEventInput(merchantID uint) EventInput {
	start := time.Now().Add(-time.Hour)
	return EventInput{
		Name:              "Diwali Dhamaka",
		MerchantID:        merchantID,
		MinRewardValue:    models.NewMoneyFromCents(5000),
		MaxRewardValue:    models.NewMoneyFromCents(20000),
		TotalRewards:      12,
		DummyRewards:      2,
		AllowDummyRewards: true,
		StartDate:         start,
		EndDate:           start.Add(48 * time.Hour),
	}
}

func tenantScope(tenantIDs []uint, merchantIDs []uint) AccessScope {
	return AccessScope{Role: constants.RoleTenantMarketingAdmin, Email: "marketing@bluboy.in", TenantIDs: tenantIDs, MerchantIDs: merchantIDs}
}

func TestEventCreateActivateGeneratesRewards(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	svc := newTestEventService(fx.db)
	scope := tenantScope([]uint{fx.tenant.ID}, []uint{fx.merchant.ID, fx.other.ID})
	ctx := context.Background()

	event, err := svc.Create(ctx, testEventInput(fx.merchant.ID), scope)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if event.Status != constants.EventStatusDraft || event.TenantID != fx.tenant.ID || event.CreatedBy != scope.Email {
		t.Fatalf("unexpected draft event: %+v", event)
	}

	update := testEventInput(fx.merchant.ID)
	update.TotalRewards = 8
	update.DummyRewards = 0
	if _, err := svc.Update(ctx, event.ID, update, scope); err != nil {
		t.Fatalf("update draft failed: %v", err)
	}

	result, err := svc.Activate(ctx, event.ID, scope)
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if result.Async || result.Generated != 8 || result.Event.Status != constants.EventStatusActive || result.Event.ActivatedAt == nil {
		t.Fatalf("unexpected activate result: %+v", result)
	}
	var count int64
	fx.db.Model(&models.Reward{}).Where("event_id = ?", event.ID).Count(&count)
	if count != 8 {
		t.Fatalf("rewards want 8 got %d", count)
	}

	if _, err := svc.Update(ctx, event.ID, update, scope); !errors.Is(err, ErrEventImmutable) {
		t.Fatalf("update active want ErrEventImmutable got %v", err)
	}
	if _, err := svc.Activate(ctx, event.ID, scope); !errors.Is(err, ErrEventTransitionInvalid) {
		t.Fatalf("re-activate want ErrEventTransitionInvalid got %v", err)
	}
	if again, err := svc.GenerateRewards(ctx, event.ID); err != nil || again != 0 {
		t.Fatalf("regenerate should be a no-op, got %d %v", again, err)
	}
}

func TestEventCreateValidation(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	svc := newTestEventService(fx.db)
	ctx := context.Background()

	bad := testEventInput(fx.merchant.ID)
	bad.MinRewardValue = models.NewMoneyFromCents(30000)
	if _, err := svc.Create(ctx, bad, UnrestrictedScope()); !errors.Is(err, ErrEventInvalid) {
		t.Fatalf("min>max want ErrEventInvalid got %v", err)
	}
	bad = testEventInput(fx.merchant.ID)
	bad.AllowDummyRewards = false
	if _, err := svc.Create(ctx, bad, UnrestrictedScope()); !errors.Is(err, ErrEventInvalid) {
		t.Fatalf("dummy without permission want ErrEventInvalid got %v", err)
	}
	bad = testEventInput(fx.merchant.ID)
	bad.EndDate = bad.StartDate
	if _, err := svc.Create(ctx, bad, UnrestrictedScope()); !errors.Is(err, ErrEventInvalid) {
		t.Fatalf("empty window want ErrEventInvalid got %v", err)
	}
	if _, err := svc.Create(ctx, testEventInput(fx.merchant.ID), tenantScope([]uint{fx.tenant.ID + 100}, nil)); !errors.Is(err, ErrMerchantNotFound) {
		t.Fatalf("foreign tenant want ErrMerchantNotFound got %v", err)
	}
}

func TestEventCancelCancelsOpenRewards(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	open := createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusDistributed)
	claimed := createTestReward(t, fx, fx.merchant, "CCDAB124", 25000, constants.RewardStatusClaimed)
	svc := newTestEventService(fx.db)

	event, err := svc.Cancel(context.Background(), fx.event.ID, UnrestrictedScope())
	if err != nil || event.Status != constants.EventStatusCancelled {
		t.Fatalf("cancel failed: %v %+v", err, event)
	}
	var stored models.Reward
	fx.db.First(&stored, open.ID)
	if stored.Status != constants.RewardStatusCancelled {
		t.Fatalf("open reward want CANCELLED got %s", stored.Status)
	}
	fx.db.First(&stored, claimed.ID)
	if stored.Status != constants.RewardStatusClaimed {
		t.Fatalf("claimed reward must stay CLAIMED, got %s", stored.Status)
	}
}

func TestEventExpireEnded(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	available := createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusAvailable)
	distributed := createTestReward(t, fx, fx.merchant, "CCDAB124", 25000, constants.RewardStatusDistributed)
	svc := newTestEventService(fx.db)

	expired, err := svc.ExpireEnded(context.Background(), fx.event.EndDate.Add(time.Minute))
	if err != nil || expired != 1 {
		t.Fatalf("expire ended want 1 got %d %v", expired, err)
	}
	var event models.MarketingEvent
	fx.db.First(&event, fx.event.ID)
	if event.Status != constants.EventStatusExpired {
		t.Fatalf("event want EXPIRED got %s", event.Status)
	}
	var stored models.Reward
	fx.db.First(&stored, available.ID)
	if stored.Status != constants.RewardStatusExpired {
		t.Fatalf("available reward want EXPIRED got %s", stored.Status)
	}
	fx.db.First(&stored, distributed.ID)
	if stored.Status != constants.RewardStatusDistributed {
		t.Fatalf("distributed reward keeps its own expiry, got %s", stored.Status)
	}

	again, err := svc.ExpireEnded(context.Background(), fx.event.EndDate.Add(time.Minute))
	if err != nil || again != 0 {
		t.Fatalf("second sweep want 0 got %d %v", again, err)
	}
}

func TestEventGetRespectsScope(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	svc := newTestEventService(fx.db)
	if _, err := svc.Get(context.Background(), fx.event.ID, merchantScope(fx.other.ID)); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("other merchant want ErrEventNotFound got %v", err)
	}
	if _, err := svc.Get(context.Background(), fx.event.ID, merchantScope(fx.merchant.ID)); err != nil {
		t.Fatalf("own merchant should see event: %v", err)
	}
}
