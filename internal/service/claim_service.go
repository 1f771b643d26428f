package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/metrics"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/repository"

	"gorm.io/gorm"
)

// ClaimError 核销失败，Kind 为稳定的错误类型
type ClaimError struct {
	Kind string
	Err  error
}

func (e *ClaimError) Error() string {
	if e.Err == nil {
		return "claim " + e.Kind
	}
	return fmt.Sprintf("claim %s: %v", e.Kind, e.Err)
}

func (e *ClaimError) Unwrap() error {
	return e.Err
}

func newClaimError(kind string, err error) *ClaimError {
	return &ClaimError{Kind: kind, Err: err}
}

// ClaimErrorKind 提取核销错误类型，非核销错误视为 ClaimFailed
func ClaimErrorKind(err error) string {
	var claimErr *ClaimError
	if errors.As(err, &claimErr) {
		return claimErr.Kind
	}
	return constants.ClaimErrorClaimFailed
}

// ClaimRewardView 核销流程中展示给操作员的奖励信息
// FullCode 与 ClaimedAt 仅在核销成功后填充。
type ClaimRewardView struct {
	RewardID   uint         `json:"reward_id"`
	EventID    uint         `json:"event_id"`
	MerchantID uint         `json:"merchant_id"`
	CodePart1  string       `json:"code_part1"`
	Value      models.Money `json:"value"`
	Status     string       `json:"status"`
	CustomerID *string      `json:"customer_id,omitempty"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
	FullCode   string       `json:"full_code,omitempty"`
	ClaimedAt  *time.Time   `json:"claimed_at,omitempty"`
}

// ClaimActor 发起核销的操作员
type ClaimActor struct {
	Scope     AccessScope
	Email     string
	Role      string
	RequestID string
	Locale    string
}

// ClaimService 奖励核销服务（无状态）
type ClaimService struct {
	rewardRepo   repository.RewardRepository
	claimLogRepo repository.RewardClaimLogRepository
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewClaimService 创建核销服务
func NewClaimService(rewardRepo repository.RewardRepository, claimLogRepo repository.RewardClaimLogRepository, m *metrics.Metrics) *ClaimService {
	return &ClaimService{
		rewardRepo:   rewardRepo,
		claimLogRepo: claimLogRepo,
		metrics:      m,
		now:          time.Now,
	}
}

// Verify 校验核销码，成功时返回不含完整码的奖励信息
func (s *ClaimService) Verify(ctx context.Context, code string, scope AccessScope) (*ClaimRewardView, error) {
	view, err := s.verify(ctx, code, scope)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = ClaimErrorKind(err)
		logger.Debugw("claim_verify_failed", "kind", outcome, "error", err)
	}
	s.metrics.ObserveClaimVerify(outcome)
	return view, err
}

func (s *ClaimService) verify(ctx context.Context, code string, scope AccessScope) (*ClaimRewardView, error) {
	// 长度校验基于原始输入，空白字符计入长度
	if !ValidateClaimCode(code) {
		return nil, newClaimError(constants.ClaimErrorInvalidFormat, nil)
	}
	normalized := NormalizeClaimCode(code)
	reward, err := s.rewardRepo.WithContext(ctx).FindByCodePart1(normalized)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if reward == nil || !scope.AllowsMerchant(reward.MerchantID) {
		return nil, newClaimError(constants.ClaimErrorNotFound, nil)
	}
	if err := claimableStatusError(reward, s.now()); err != nil {
		return nil, err
	}
	return newClaimRewardView(reward), nil
}

// Commit 以比较并设置方式核销奖励，成功后返回完整码与核销时间
func (s *ClaimService) Commit(ctx context.Context, rewardID uint, expectedStatus string, actor ClaimActor) (*ClaimRewardView, error) {
	view, err := s.commit(ctx, rewardID, expectedStatus, actor)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = ClaimErrorKind(err)
		logger.Warnw("claim_commit_failed",
			"reward_id", rewardID,
			"operator", actor.Email,
			"kind", outcome,
			"request_id", actor.RequestID,
			"error", err,
		)
	} else {
		logger.Infow("reward_claim_committed",
			"reward_id", rewardID,
			"merchant_id", view.MerchantID,
			"operator", actor.Email,
			"value", view.Value.String(),
			"request_id", actor.RequestID,
		)
	}
	s.metrics.ObserveClaimCommit(outcome)
	return view, err
}

func (s *ClaimService) commit(ctx context.Context, rewardID uint, expectedStatus string, actor ClaimActor) (*ClaimRewardView, error) {
	if rewardID == 0 {
		return nil, newClaimError(constants.ClaimErrorNotFound, nil)
	}
	var view *ClaimRewardView
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rewardRepo := s.rewardRepo.WithTx(tx)
		reward, err := rewardRepo.GetByID(rewardID)
		if err != nil {
			return classifyStoreError(err)
		}
		if reward == nil || !actor.Scope.AllowsMerchant(reward.MerchantID) {
			return newClaimError(constants.ClaimErrorNotFound, nil)
		}
		now := s.now()
		if err := claimableStatusError(reward, now); err != nil {
			return err
		}
		expected := expectedStatus
		if expected == "" {
			expected = reward.Status
		}
		if err := ValidateRewardTransition(expected, constants.RewardStatusClaimed); err != nil {
			return newClaimError(constants.ClaimErrorConflict, err)
		}
		if err := rewardRepo.UpdateStatus(reward.ID, expected, constants.RewardStatusClaimed, map[string]interface{}{
			"claimed_at": now,
		}); err != nil {
			return mapCommitError(err)
		}
		claimLog := &models.RewardClaimLog{
			RewardID:      reward.ID,
			EventID:       reward.EventID,
			MerchantID:    reward.MerchantID,
			OperatorEmail: actor.Email,
			OperatorRole:  actor.Role,
			Value:         reward.Value,
			RequestID:     actor.RequestID,
			ClaimedAt:     now,
		}
		if err := s.claimLogRepo.WithTx(tx).Create(claimLog); err != nil {
			return classifyStoreError(err)
		}

		reward.Status = constants.RewardStatusClaimed
		reward.ClaimedAt = &now
		view = newClaimRewardView(reward)
		view.FullCode = reward.FullCode
		view.ClaimedAt = &now
		return nil
	})
	if err != nil {
		var claimErr *ClaimError
		if errors.As(err, &claimErr) {
			return nil, claimErr
		}
		return nil, classifyStoreError(err)
	}
	return view, nil
}

func newClaimRewardView(reward *models.Reward) *ClaimRewardView {
	return &ClaimRewardView{
		RewardID:   reward.ID,
		EventID:    reward.EventID,
		MerchantID: reward.MerchantID,
		CodePart1:  reward.CodePart1,
		Value:      reward.Value,
		Status:     reward.Status,
		CustomerID: reward.CustomerID,
		ExpiresAt:  reward.ExpiresAt,
	}
}

// claimableStatusError 按当前状态给出具名的核销失败原因
func claimableStatusError(reward *models.Reward, now time.Time) error {
	switch reward.Status {
	case constants.RewardStatusClaimed:
		return newClaimError(constants.ClaimErrorAlreadyClaimed, nil)
	case constants.RewardStatusExpired:
		return newClaimError(constants.ClaimErrorExpired, nil)
	case constants.RewardStatusCancelled:
		return newClaimError(constants.ClaimErrorCancelled, nil)
	}
	if !CanClaim(reward) {
		return newClaimError(constants.ClaimErrorConflict, fmt.Errorf("unexpected status %s", reward.Status))
	}
	// 尚未被过期任务扫描的奖励同样视为已过期
	if reward.ExpiresAt != nil && !reward.ExpiresAt.After(now) {
		return newClaimError(constants.ClaimErrorExpired, nil)
	}
	return nil
}

func mapCommitError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newClaimError(constants.ClaimErrorNotFound, err)
	}
	var conflict *repository.StatusConflictError
	if errors.As(err, &conflict) {
		switch conflict.Current {
		case constants.RewardStatusClaimed:
			return newClaimError(constants.ClaimErrorAlreadyClaimed, err)
		case constants.RewardStatusExpired:
			return newClaimError(constants.ClaimErrorExpired, err)
		case constants.RewardStatusCancelled:
			return newClaimError(constants.ClaimErrorCancelled, err)
		default:
			return newClaimError(constants.ClaimErrorConflict, err)
		}
	}
	return classifyStoreError(err)
}

// classifyStoreError 区分瞬时存储故障与其他写入失败
func classifyStoreError(err error) error {
	if isTransientStoreError(err) {
		return newClaimError(constants.ClaimErrorStoreUnavailable, err)
	}
	return newClaimError(constants.ClaimErrorClaimFailed, err)
}

func isTransientStoreError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
