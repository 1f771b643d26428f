package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/provider"
	"github.com/bluboy-rewards/internal/queue"
	"github.com/bluboy-rewards/internal/repository"
	"github.com/bluboy-rewards/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

type workerFixture struct {
	db       *gorm.DB
	consumer *Consumer
	merchant models.Merchant
}

func setupWorkerTest(t *testing.T) workerFixture {
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
	models.DB = db

	tenant := models.Tenant{Name: "BluBoy India", Code: "BLUIND", Status: constants.StatusActive}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}
	merchant := models.Merchant{TenantID: tenant.ID, Name: "Cafe Coffee Day", Code: "CCD", Status: constants.StatusActive}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}

	cfg := config.RewardConfig{MaxRewardsPerEvent: 1000, GenerateMaxRounds: 5, InsertBatchSize: 50, AsyncGenerateThreshold: 500}
	eventRepo := repository.NewEventRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	rewards := service.NewRewardService(rewardRepo, eventRepo, nil, cfg, nil)
	events := service.NewEventService(eventRepo, rewardRepo, repository.NewMerchantRepository(db), rewards, nil, cfg, nil)
	container := &provider.Container{
		EventRepo:     eventRepo,
		RewardRepo:    rewardRepo,
		RewardService: rewards,
		EventService:  events,
	}
	return workerFixture{db: db, consumer: NewConsumer(container), merchant: merchant}
}

func createWorkerEvent(t *testing.T, fx workerFixture, status string, end time.Time) models.MarketingEvent {
	t.Helper()
	event := models.MarketingEvent{
		Name:           "Monsoon Rewards",
		TenantID:       fx.merchant.TenantID,
		MerchantID:     fx.merchant.ID,
		MinRewardValue: models.NewMoneyFromCents(10000),
		MaxRewardValue: models.NewMoneyFromCents(20000),
		TotalRewards:   6,
		StartDate:      end.Add(-48 * time.Hour),
		EndDate:        end,
		Status:         status,
	}
	if err := fx.db.Create(&event).Error; err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	return event
}

func newJSONTestTask(t *testing.T, taskType string, payload interface{}) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(taskType, body)
}

func TestHandleEventGenerateRewardsCreatesRewards(t *testing.T) {
	fx := setupWorkerTest(t)
	event := createWorkerEvent(t, fx, constants.EventStatusActive, time.Now().Add(24*time.Hour))

	task := newJSONTestTask(t, queue.TaskEventGenerateRewards, queue.EventGenerateRewardsPayload{EventID: event.ID, RequestedBy: "marketing@bluboy.com"})
	if err := fx.consumer.handleEventGenerateRewards(context.Background(), task); err != nil {
		t.Fatalf("handle generate rewards failed: %v", err)
	}
	var count int64
	if err := fx.db.Model(&models.Reward{}).Where("event_id = ?", event.ID).Count(&count).Error; err != nil {
		t.Fatalf("count rewards failed: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected 6 rewards, got %d", count)
	}

	// 重复执行不应重复生成
	if err := fx.consumer.handleEventGenerateRewards(context.Background(), task); err != nil {
		t.Fatalf("handle generate rewards again failed: %v", err)
	}
	if err := fx.db.Model(&models.Reward{}).Where("event_id = ?", event.ID).Count(&count).Error; err != nil {
		t.Fatalf("count rewards failed: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected generation to be idempotent, got %d", count)
	}
}

func TestHandleEventGenerateRewardsSkipsMissingOrInactive(t *testing.T) {
	fx := setupWorkerTest(t)
	draft := createWorkerEvent(t, fx, constants.EventStatusDraft, time.Now().Add(24*time.Hour))

	cases := []queue.EventGenerateRewardsPayload{
		{EventID: 0},
		{EventID: 99999},
		{EventID: draft.ID},
	}
	for _, payload := range cases {
		task := newJSONTestTask(t, queue.TaskEventGenerateRewards, payload)
		if err := fx.consumer.handleEventGenerateRewards(context.Background(), task); err != nil {
			t.Fatalf("payload %+v should be skipped, got %v", payload, err)
		}
	}
	var count int64
	if err := fx.db.Model(&models.Reward{}).Count(&count).Error; err != nil {
		t.Fatalf("count rewards failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rewards, got %d", count)
	}
}

func TestHandleEventGenerateRewardsRejectsBadPayload(t *testing.T) {
	fx := setupWorkerTest(t)
	task := asynq.NewTask(queue.TaskEventGenerateRewards, []byte("{not-json"))
	if err := fx.consumer.handleEventGenerateRewards(context.Background(), task); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestHandleExpireSweeps(t *testing.T) {
	fx := setupWorkerTest(t)
	now := time.Now()
	ended := createWorkerEvent(t, fx, constants.EventStatusActive, now.Add(-time.Hour))
	live := createWorkerEvent(t, fx, constants.EventStatusActive, now.Add(24*time.Hour))

	past := now.Add(-time.Minute)
	customer := "CUST-1"
	overdue := models.Reward{
		EventID:    live.ID,
		MerchantID: fx.merchant.ID,
		CodePart1:  "CCDAB123",
		CodePart2:  "X9Y8Z7W6",
		FullCode:   "CCDAB123-X9Y8Z7W6",
		Value:      models.NewMoneyFromCents(15000),
		Status:     constants.RewardStatusDistributed,
		CustomerID: &customer,
		ExpiresAt:  &past,
	}
	if err := fx.db.Create(&overdue).Error; err != nil {
		t.Fatalf("create reward failed: %v", err)
	}

	rewardTask := newJSONTestTask(t, queue.TaskRewardExpireSweep, queue.ExpireSweepPayload{Now: now})
	if err := fx.consumer.handleRewardExpireSweep(context.Background(), rewardTask); err != nil {
		t.Fatalf("reward sweep failed: %v", err)
	}
	var reward models.Reward
	if err := fx.db.First(&reward, overdue.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if reward.Status != constants.RewardStatusExpired {
		t.Fatalf("expected reward expired, got %s", reward.Status)
	}

	// 空载荷按当前时间扫描
	eventTask := asynq.NewTask(queue.TaskEventExpireSweep, nil)
	if err := fx.consumer.handleEventExpireSweep(context.Background(), eventTask); err != nil {
		t.Fatalf("event sweep failed: %v", err)
	}
	var reloaded models.MarketingEvent
	if err := fx.db.First(&reloaded, ended.ID).Error; err != nil {
		t.Fatalf("reload event failed: %v", err)
	}
	if reloaded.Status != constants.EventStatusExpired {
		t.Fatalf("expected ended event expired, got %s", reloaded.Status)
	}
	if err := fx.db.First(&reloaded, live.ID).Error; err != nil {
		t.Fatalf("reload event failed: %v", err)
	}
	if reloaded.Status != constants.EventStatusActive {
		t.Fatalf("expected live event untouched, got %s", reloaded.Status)
	}
}

func TestSweepServiceStopsWithContext(t *testing.T) {
	fx := setupWorkerTest(t)
	sweeper, err := NewSweepService(fx.consumer, config.WorkerConfig{SweepIntervalSeconds: 3600})
	if err != nil {
		t.Fatalf("new sweep service failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("sweeper start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("sweeper did not stop")
	}
}

func TestNewServiceRequiresQueue(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, &Consumer{}, config.WorkerConfig{}); err == nil {
		t.Fatalf("expected error when queue is disabled")
	}
	if _, err := NewSweepService(nil, config.WorkerConfig{}); err == nil {
		t.Fatalf("expected error for nil consumer")
	}
	if got := resolveSweepInterval(config.WorkerConfig{}); got != defaultSweepInterval {
		t.Fatalf("unexpected default interval: %s", got)
	}
}
