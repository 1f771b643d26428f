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
	"github.com/bluboy-rewards/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultGenerateMaxRounds = 5
	defaultInsertBatchSize   = 500
)

// RewardService 奖励生成、发放与管理服务
type RewardService struct {
	rewardRepo repository.RewardRepository
	eventRepo  repository.EventRepository
	generator  *RewardCodeGenerator
	metrics    *metrics.Metrics
	maxRounds  int
	batchSize  int
	now        func() time.Time
}

// NewRewardService 创建奖励服务
func NewRewardService(rewardRepo repository.RewardRepository, eventRepo repository.EventRepository, generator *RewardCodeGenerator, cfg config.RewardConfig, m *metrics.Metrics) *RewardService {
	if generator == nil {
		generator = NewRewardCodeGenerator(nil)
	}
	maxRounds := cfg.GenerateMaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultGenerateMaxRounds
	}
	batchSize := cfg.InsertBatchSize
	if batchSize <= 0 {
		batchSize = defaultInsertBatchSize
	}
	return &RewardService{
		rewardRepo: rewardRepo,
		eventRepo:  eventRepo,
		generator:  generator,
		metrics:    m,
		maxRounds:  maxRounds,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// GenerateForEvent 为活动生成全部奖励
// 已生成过奖励的活动直接返回 0；候选码与批内及库内已有码冲突时重新生成，超过轮数上限返回 ErrRewardCodeExhausted。
func (s *RewardService) GenerateForEvent(tx *gorm.DB, event *models.MarketingEvent, merchant *models.Merchant) (int, error) {
	if event == nil || merchant == nil || event.TotalRewards <= 0 {
		return 0, ErrEventInvalid
	}
	rewardRepo := s.rewardRepo.WithTx(tx)
	existing, err := rewardRepo.CountByEvent(event.ID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	codes, err := s.generateUniqueCodes(rewardRepo, merchant.Code, event.TotalRewards)
	if err != nil {
		return 0, err
	}

	dummyCount := 0
	if event.AllowDummyRewards && event.DummyRewards > 0 {
		dummyCount = event.DummyRewards
		if dummyCount > event.TotalRewards {
			dummyCount = event.TotalRewards
		}
	}
	rewards := make([]models.Reward, 0, len(codes))
	for i, code := range codes {
		value, err := s.generator.Value(event.MinRewardValue, event.MaxRewardValue)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRewardGenerateFailed, err)
		}
		rewards = append(rewards, models.Reward{
			EventID:    event.ID,
			MerchantID: merchant.ID,
			CodePart1:  code.CodePart1,
			CodePart2:  code.CodePart2,
			FullCode:   code.FullCode,
			Value:      value,
			Status:     constants.RewardStatusAvailable,
			IsDummy:    i < dummyCount,
		})
	}

	inserted, err := rewardRepo.InsertMany(rewards, s.batchSize)
	if err != nil {
		return 0, err
	}
	s.metrics.AddRewardsGenerated(inserted-dummyCount, dummyCount)
	logger.Infow("rewards_generated",
		"event_id", event.ID,
		"merchant_code", merchant.Code,
		"total", inserted,
		"dummy", dummyCount,
	)
	return inserted, nil
}

func (s *RewardService) generateUniqueCodes(rewardRepo repository.RewardRepository, merchantCode string, total int) ([]RewardCode, error) {
	accepted := make([]RewardCode, 0, total)
	seen := make(map[string]struct{}, total)
	pending := total
	for round := 0; round < s.maxRounds && pending > 0; round++ {
		candidates := make([]RewardCode, 0, pending)
		keys := make([]string, 0, pending)
		for i := 0; i < pending; i++ {
			code, err := s.generator.Generate(merchantCode)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRewardGenerateFailed, err)
			}
			if _, dup := seen[code.CodePart1]; dup {
				continue
			}
			seen[code.CodePart1] = struct{}{}
			candidates = append(candidates, code)
			keys = append(keys, code.CodePart1)
		}
		stored, err := rewardRepo.ExistingCodePart1s(keys)
		if err != nil {
			return nil, err
		}
		for _, code := range candidates {
			if _, taken := stored[code.CodePart1]; taken {
				continue
			}
			accepted = append(accepted, code)
		}
		pending = total - len(accepted)
		if pending > 0 {
			logger.Debugw("reward_code_collision", "round", round+1, "pending", pending)
		}
	}
	if pending > 0 {
		logger.Errorw("reward_code_exhausted", "merchant_code", merchantCode, "pending", pending, "rounds", s.maxRounds)
		return nil, ErrRewardCodeExhausted
	}
	return accepted, nil
}

// DistributeRewardInput 发放奖励输入
// RewardID 为空时自动选取活动下一个可用奖励。
type DistributeRewardInput struct {
	RewardID   uint
	EventID    uint
	CustomerID string
}

// Distribute 将奖励发放给客户 AVAILABLE -> DISTRIBUTED
func (s *RewardService) Distribute(ctx context.Context, input DistributeRewardInput, scope AccessScope) (*models.Reward, error) {
	customerID := strings.TrimSpace(input.CustomerID)
	if customerID == "" {
		return nil, ErrRewardCustomerMissing
	}
	var rewardID uint
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rewardRepo := s.rewardRepo.WithTx(tx)
		eventRepo := s.eventRepo.WithTx(tx)

		var reward *models.Reward
		var err error
		if input.RewardID != 0 {
			reward, err = rewardRepo.GetByID(input.RewardID)
			if err != nil {
				return err
			}
			if reward == nil || !scope.AllowsMerchant(reward.MerchantID) {
				return ErrRewardNotFound
			}
		} else {
			event, err := eventRepo.GetByID(input.EventID)
			if err != nil {
				return err
			}
			if event == nil || !scope.AllowsMerchant(event.MerchantID) {
				return ErrEventNotFound
			}
			reward, err = rewardRepo.NextAvailable(event.ID)
			if err != nil {
				return err
			}
			if reward == nil {
				return ErrRewardNoneAvailable
			}
		}

		event, err := eventRepo.GetByID(reward.EventID)
		if err != nil {
			return err
		}
		now := s.now()
		if event == nil || event.Status != constants.EventStatusActive || now.After(event.EndDate) {
			return ErrEventNotActive
		}
		if !CanDistribute(reward) {
			return ValidateRewardTransition(reward.Status, constants.RewardStatusDistributed)
		}
		if reward.ExpiresAt != nil && !reward.ExpiresAt.After(now) {
			return ValidateRewardTransition(constants.RewardStatusExpired, constants.RewardStatusDistributed)
		}
		if !event.AllowMultipleRewardsPerCustomer {
			// 锁住活动行，同一活动的发放串行执行，计数与更新之间不会插入其他发放
			if _, err := eventRepo.GetByIDForUpdate(event.ID); err != nil {
				return err
			}
			held, err := rewardRepo.CountByCustomer(event.ID, customerID)
			if err != nil {
				return err
			}
			if held > 0 {
				return ErrRewardCustomerLimit
			}
		}

		expiresAt := event.EndDate
		if event.RewardValidityEnd != nil {
			expiresAt = *event.RewardValidityEnd
		}
		if err := rewardRepo.UpdateStatus(reward.ID, constants.RewardStatusAvailable, constants.RewardStatusDistributed, map[string]interface{}{
			"customer_id":    customerID,
			"distributed_at": now,
			"expires_at":     expiresAt,
		}); err != nil {
			return mapRewardWriteError(err, constants.RewardStatusDistributed)
		}
		rewardID = reward.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("reward_distributed", "reward_id", rewardID, "customer_id", customerID, "operator", scope.Email)
	return s.rewardRepo.WithContext(ctx).GetByID(rewardID)
}

// Cancel 作废奖励，任意非终态 -> CANCELLED
func (s *RewardService) Cancel(ctx context.Context, id uint, scope AccessScope) (*models.Reward, error) {
	rewardRepo := s.rewardRepo.WithContext(ctx)
	reward, err := rewardRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if reward == nil || !scope.AllowsMerchant(reward.MerchantID) {
		return nil, ErrRewardNotFound
	}
	if err := ValidateRewardTransition(reward.Status, constants.RewardStatusCancelled); err != nil {
		return nil, err
	}
	if err := rewardRepo.UpdateStatus(reward.ID, reward.Status, constants.RewardStatusCancelled, nil); err != nil {
		return nil, mapRewardWriteError(err, constants.RewardStatusCancelled)
	}
	logger.Infow("reward_cancelled", "reward_id", reward.ID, "from", reward.Status, "operator", scope.Email)
	return rewardRepo.GetByID(reward.ID)
}

// ExpireDue 将过有效期的奖励置为过期
func (s *RewardService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = s.now()
	}
	count, err := s.rewardRepo.WithContext(ctx).ExpireDue(now)
	if err != nil {
		return 0, err
	}
	s.metrics.AddRewardsSwept(constants.RewardStatusExpired, count)
	if count > 0 {
		logger.Infow("rewards_expired", "count", count)
	}
	return count, nil
}

// Get 获取奖励详情
func (s *RewardService) Get(ctx context.Context, id uint, scope AccessScope) (*models.Reward, error) {
	reward, err := s.rewardRepo.WithContext(ctx).GetByID(id)
	if err != nil {
		return nil, err
	}
	if reward == nil || !scope.AllowsMerchant(reward.MerchantID) {
		return nil, ErrRewardNotFound
	}
	return reward, nil
}

// RewardListInput 奖励列表查询参数
type RewardListInput struct {
	Page       int
	PageSize   int
	Tab        string
	Status     string
	EventID    uint
	MerchantID uint
	Search     string
}

// RewardTabStats 奖励页签统计
type RewardTabStats struct {
	Outstanding  int64        `json:"outstanding"`
	Claimed      int64        `json:"claimed"`
	ClaimedValue models.Money `json:"claimed_value"`
}

// RewardListResult 奖励列表结果
type RewardListResult struct {
	Items []models.Reward `json:"items"`
	Total int64           `json:"total"`
	Stats RewardTabStats  `json:"stats"`
}

// List 查询奖励列表及页签统计
func (s *RewardService) List(ctx context.Context, input RewardListInput, scope AccessScope) (*RewardListResult, error) {
	if input.Status != "" && !IsValidRewardStatus(input.Status) {
		return nil, fmt.Errorf("%w: unknown status %s", ErrFailedPrecondition, input.Status)
	}
	rewardRepo := s.rewardRepo.WithContext(ctx)
	items, total, err := rewardRepo.List(repository.RewardListFilter{
		Page:       input.Page,
		PageSize:   input.PageSize,
		Tab:        input.Tab,
		Status:     input.Status,
		EventID:    input.EventID,
		MerchantID: input.MerchantID,
		Search:     strings.TrimSpace(input.Search),
		Scope:      scope.Filter(),
	})
	if err != nil {
		return nil, err
	}

	base := repository.RewardAggregateFilter{
		EventID:      input.EventID,
		MerchantID:   input.MerchantID,
		ExcludeDummy: true,
		Scope:        scope.Filter(),
	}
	rows, err := rewardRepo.AggregateByStatus(base)
	if err != nil {
		return nil, err
	}
	stats := RewardTabStats{ClaimedValue: models.NewMoneyFromCents(0)}
	for _, row := range rows {
		switch row.Status {
		case constants.RewardStatusAvailable, constants.RewardStatusDistributed:
			stats.Outstanding += row.Count
		case constants.RewardStatusClaimed:
			stats.Claimed = row.Count
			stats.ClaimedValue = models.NewMoneyFromDecimal(row.Value.Decimal)
		}
	}
	return &RewardListResult{Items: items, Total: total, Stats: stats}, nil
}

func mapRewardWriteError(err error, target string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRewardNotFound
	}
	var conflict *repository.StatusConflictError
	if errors.As(err, &conflict) {
		return &RewardTransitionError{Entity: "reward", From: conflict.Current, To: target}
	}
	return err
}
