package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/metrics"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/queue"
	"github.com/bluboy-rewards/internal/repository"

	"gorm.io/gorm"
)

const expireSweepBatch = 100

// EventService 营销活动服务
type EventService struct {
	eventRepo    repository.EventRepository
	rewardRepo   repository.RewardRepository
	merchantRepo repository.MerchantRepository
	rewards      *RewardService
	queueClient  *queue.Client
	metrics      *metrics.Metrics
	cfg          config.RewardConfig
	now          func() time.Time
}

// NewEventService 创建营销活动服务
func NewEventService(
	eventRepo repository.EventRepository,
	rewardRepo repository.RewardRepository,
	merchantRepo repository.MerchantRepository,
	rewards *RewardService,
	queueClient *queue.Client,
	cfg config.RewardConfig,
	m *metrics.Metrics,
) *EventService {
	return &EventService{
		eventRepo:    eventRepo,
		rewardRepo:   rewardRepo,
		merchantRepo: merchantRepo,
		rewards:      rewards,
		queueClient:  queueClient,
		metrics:      m,
		cfg:          cfg,
		now:          time.Now,
	}
}

// EventInput 创建/更新活动输入
type EventInput struct {
	Name                            string
	Description                     string
	MerchantID                      uint
	MinRewardValue                  models.Money
	MaxRewardValue                  models.Money
	TotalRewards                    int
	DummyRewards                    int
	AllowDummyRewards               bool
	AllowMultipleRewardsPerCustomer bool
	StartDate                       time.Time
	EndDate                         time.Time
	RewardValidityStart             *time.Time
	RewardValidityEnd               *time.Time
}

// ActivateResult 激活结果
type ActivateResult struct {
	Event     *models.MarketingEvent `json:"event"`
	Generated int                    `json:"generated"`
	Async     bool                   `json:"async"`
}

// Create 创建草稿活动
func (s *EventService) Create(ctx context.Context, input EventInput, scope AccessScope) (*models.MarketingEvent, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	merchant, err := s.merchantRepo.GetByID(input.MerchantID)
	if err != nil {
		return nil, err
	}
	if merchant == nil || !scope.AllowsTenant(merchant.TenantID) {
		return nil, ErrMerchantNotFound
	}
	if merchant.Status != constants.StatusActive {
		return nil, fmt.Errorf("%w: merchant inactive", ErrEventInvalid)
	}
	event := &models.MarketingEvent{
		TenantID:  merchant.TenantID,
		Status:    constants.EventStatusDraft,
		CreatedBy: scope.Email,
	}
	applyEventInput(event, input)
	if err := s.eventRepo.WithTx(models.DB.WithContext(ctx)).Create(event); err != nil {
		return nil, err
	}
	logger.Infow("event_created", "event_id", event.ID, "merchant_id", merchant.ID, "operator", scope.Email)
	return event, nil
}

// Update 更新草稿活动，ACTIVE 之后不可修改
func (s *EventService) Update(ctx context.Context, id uint, input EventInput, scope AccessScope) (*models.MarketingEvent, error) {
	event, err := s.Get(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	if event.Status != constants.EventStatusDraft {
		return nil, ErrEventImmutable
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if input.MerchantID != event.MerchantID {
		merchant, err := s.merchantRepo.GetByID(input.MerchantID)
		if err != nil {
			return nil, err
		}
		if merchant == nil || !scope.AllowsTenant(merchant.TenantID) {
			return nil, ErrMerchantNotFound
		}
		event.TenantID = merchant.TenantID
	}
	applyEventInput(event, input)
	event.Tenant = nil
	event.Merchant = nil
	if err := s.eventRepo.WithTx(models.DB.WithContext(ctx)).Update(event); err != nil {
		return nil, err
	}
	return s.Get(ctx, id, scope)
}

// Activate 激活活动并生成奖励
// 奖励数超过异步阈值且队列可用时，生成任务交给 worker。
func (s *EventService) Activate(ctx context.Context, id uint, scope AccessScope) (*ActivateResult, error) {
	event, err := s.Get(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	if err := ValidateEventTransition(event.Status, constants.EventStatusActive); err != nil {
		return nil, err
	}
	now := s.now()
	if !event.EndDate.After(now) {
		return nil, fmt.Errorf("%w: event already ended", ErrEventInvalid)
	}
	if event.Merchant == nil {
		return nil, ErrMerchantNotFound
	}

	async := s.cfg.AsyncGenerateThreshold > 0 && event.TotalRewards > s.cfg.AsyncGenerateThreshold && s.queueClient.Enabled()
	generated := 0
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.eventRepo.WithTx(tx).UpdateStatus(event.ID, constants.EventStatusDraft, constants.EventStatusActive, map[string]interface{}{
			"activated_at": now,
		}); err != nil {
			return mapEventWriteError(err, constants.EventStatusActive)
		}
		if async {
			return nil
		}
		count, err := s.rewards.GenerateForEvent(tx, event, event.Merchant)
		generated = count
		return err
	})
	if err != nil {
		return nil, err
	}
	if async {
		if err := s.queueClient.EnqueueEventGenerateRewards(queue.EventGenerateRewardsPayload{EventID: event.ID, RequestedBy: scope.Email}); err != nil {
			logger.Errorw("event_generate_enqueue_failed", "event_id", event.ID, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrRewardGenerateFailed, err)
		}
	}
	logger.Infow("event_activated", "event_id", event.ID, "generated", generated, "async", async, "operator", scope.Email)

	activated, err := s.eventRepo.WithTx(models.DB.WithContext(ctx)).GetByID(event.ID)
	if err != nil {
		return nil, err
	}
	return &ActivateResult{Event: activated, Generated: generated, Async: async}, nil
}

// GenerateRewards 为已激活活动补齐奖励（异步任务入口，可重复执行）
func (s *EventService) GenerateRewards(ctx context.Context, eventID uint) (int, error) {
	generated := 0
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := s.eventRepo.WithTx(tx).GetByID(eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return ErrEventNotFound
		}
		if event.Status != constants.EventStatusActive {
			return ErrEventNotActive
		}
		if event.Merchant == nil {
			return ErrMerchantNotFound
		}
		generated, err = s.rewards.GenerateForEvent(tx, event, event.Merchant)
		return err
	})
	return generated, err
}

// Cancel 作废活动及其未终结奖励
func (s *EventService) Cancel(ctx context.Context, id uint, scope AccessScope) (*models.MarketingEvent, error) {
	event, err := s.Get(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	if err := ValidateEventTransition(event.Status, constants.EventStatusCancelled); err != nil {
		return nil, err
	}
	now := s.now()
	var cancelled int64
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.eventRepo.WithTx(tx).UpdateStatus(event.ID, event.Status, constants.EventStatusCancelled, nil); err != nil {
			return mapEventWriteError(err, constants.EventStatusCancelled)
		}
		count, err := s.rewardRepo.WithTx(tx).CancelOpenByEvent(event.ID, now)
		cancelled = count
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AddRewardsSwept(constants.RewardStatusCancelled, cancelled)
	logger.Infow("event_cancelled", "event_id", event.ID, "rewards_cancelled", cancelled, "operator", scope.Email)
	return s.Get(ctx, id, scope)
}

// ExpireEnded 将已结束的 ACTIVE 活动置为过期，未发放奖励随之过期
func (s *EventService) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = s.now()
	}
	expired := 0
	for {
		events, err := s.eventRepo.WithTx(models.DB.WithContext(ctx)).ListEndedActive(now, expireSweepBatch)
		if err != nil {
			return expired, err
		}
		if len(events) == 0 {
			return expired, nil
		}
		progressed := false
		for _, event := range events {
			var rewardsExpired int64
			err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				if err := s.eventRepo.WithTx(tx).UpdateStatus(event.ID, constants.EventStatusActive, constants.EventStatusExpired, nil); err != nil {
					return err
				}
				count, err := s.rewardRepo.WithTx(tx).ExpireAvailableByEvent(event.ID, now)
				rewardsExpired = count
				return err
			})
			if errors.Is(err, repository.ErrStatusConflict) {
				continue
			}
			if err != nil {
				return expired, err
			}
			progressed = true
			expired++
			s.metrics.AddRewardsSwept(constants.RewardStatusExpired, rewardsExpired)
			logger.Infow("event_expired", "event_id", event.ID, "rewards_expired", rewardsExpired)
		}
		if !progressed || len(events) < expireSweepBatch {
			return expired, nil
		}
	}
}

// Get 获取活动详情
func (s *EventService) Get(ctx context.Context, id uint, scope AccessScope) (*models.MarketingEvent, error) {
	event, err := s.eventRepo.WithTx(models.DB.WithContext(ctx)).GetByID(id)
	if err != nil {
		return nil, err
	}
	if event == nil || !scopeAllowsEvent(scope, event) {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// EventListInput 活动列表查询参数
type EventListInput struct {
	Page       int
	PageSize   int
	Status     string
	TenantID   uint
	MerchantID uint
	Search     string
}

// List 分页查询活动
func (s *EventService) List(ctx context.Context, input EventListInput, scope AccessScope) ([]models.MarketingEvent, int64, error) {
	return s.eventRepo.WithTx(models.DB.WithContext(ctx)).List(repository.EventListFilter{
		Page:       input.Page,
		PageSize:   input.PageSize,
		Status:     strings.ToUpper(strings.TrimSpace(input.Status)),
		TenantID:   input.TenantID,
		MerchantID: input.MerchantID,
		Search:     strings.TrimSpace(input.Search),
		Scope:      scope.Filter(),
	})
}

func (s *EventService) validateInput(input EventInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name required", ErrEventInvalid)
	}
	if input.MerchantID == 0 {
		return fmt.Errorf("%w: merchant required", ErrEventInvalid)
	}
	if input.MinRewardValue.IsNegative() || !input.MaxRewardValue.IsPositive() {
		return fmt.Errorf("%w: reward value must be positive", ErrEventInvalid)
	}
	if input.MinRewardValue.GreaterThan(input.MaxRewardValue.Decimal) {
		return fmt.Errorf("%w: min reward value exceeds max", ErrEventInvalid)
	}
	if input.TotalRewards <= 0 {
		return fmt.Errorf("%w: total rewards must be positive", ErrEventInvalid)
	}
	if s.cfg.MaxRewardsPerEvent > 0 && input.TotalRewards > s.cfg.MaxRewardsPerEvent {
		return fmt.Errorf("%w: total rewards exceeds %d", ErrEventInvalid, s.cfg.MaxRewardsPerEvent)
	}
	if input.DummyRewards < 0 || input.DummyRewards > input.TotalRewards {
		return fmt.Errorf("%w: dummy rewards out of range", ErrEventInvalid)
	}
	if input.DummyRewards > 0 && !input.AllowDummyRewards {
		return fmt.Errorf("%w: dummy rewards not allowed", ErrEventInvalid)
	}
	if input.StartDate.IsZero() || !input.EndDate.After(input.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrEventInvalid)
	}
	if input.RewardValidityStart != nil && input.RewardValidityEnd != nil && !input.RewardValidityEnd.After(*input.RewardValidityStart) {
		return fmt.Errorf("%w: reward validity window invalid", ErrEventInvalid)
	}
	return nil
}

func applyEventInput(event *models.MarketingEvent, input EventInput) {
	event.Name = strings.TrimSpace(input.Name)
	event.Description = strings.TrimSpace(input.Description)
	event.MerchantID = input.MerchantID
	event.MinRewardValue = models.NewMoneyFromDecimal(input.MinRewardValue.Decimal)
	event.MaxRewardValue = models.NewMoneyFromDecimal(input.MaxRewardValue.Decimal)
	event.TotalRewards = input.TotalRewards
	event.DummyRewards = input.DummyRewards
	event.AllowDummyRewards = input.AllowDummyRewards
	event.AllowMultipleRewardsPerCustomer = input.AllowMultipleRewardsPerCustomer
	event.StartDate = input.StartDate
	event.EndDate = input.EndDate
	event.RewardValidityStart = input.RewardValidityStart
	event.RewardValidityEnd = input.RewardValidityEnd
}

func scopeAllowsEvent(scope AccessScope, event *models.MarketingEvent) bool {
	return scope.AllowsTenant(event.TenantID) || scope.AllowsMerchant(event.MerchantID)
}

func mapEventWriteError(err error, target string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEventNotFound
	}
	var conflict *repository.StatusConflictError
	if errors.As(err, &conflict) {
		return &RewardTransitionError{Entity: "event", From: conflict.Current, To: target}
	}
	return err
}
