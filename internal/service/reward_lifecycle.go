package service

import (
	"fmt"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"
)

// RewardTransitionError 非法状态迁移，同时携带当前状态与目标状态
type RewardTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *RewardTransitionError) Error() string {
	return fmt.Sprintf("%s transition %s -> %s not allowed", e.Entity, e.From, e.To)
}

// Is 支持 errors.Is(err, ErrFailedPrecondition)
func (e *RewardTransitionError) Is(target error) bool {
	if target == ErrFailedPrecondition {
		return true
	}
	return e.Entity == "event" && target == ErrEventTransitionInvalid
}

var rewardTransitions = map[string][]string{
	constants.RewardStatusAvailable: {
		constants.RewardStatusDistributed,
		constants.RewardStatusClaimed,
		constants.RewardStatusExpired,
		constants.RewardStatusCancelled,
	},
	constants.RewardStatusDistributed: {
		constants.RewardStatusClaimed,
		constants.RewardStatusExpired,
		constants.RewardStatusCancelled,
	},
}

var eventTransitions = map[string][]string{
	constants.EventStatusDraft: {
		constants.EventStatusActive,
		constants.EventStatusCancelled,
	},
	constants.EventStatusActive: {
		constants.EventStatusExpired,
		constants.EventStatusCancelled,
	},
}

// ValidateRewardTransition 校验奖励状态迁移是否合法
func ValidateRewardTransition(from, to string) error {
	if allowed(rewardTransitions, from, to) {
		return nil
	}
	return &RewardTransitionError{Entity: "reward", From: from, To: to}
}

// ValidateEventTransition 校验活动状态迁移是否合法
func ValidateEventTransition(from, to string) error {
	if allowed(eventTransitions, from, to) {
		return nil
	}
	return &RewardTransitionError{Entity: "event", From: from, To: to}
}

func allowed(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsRewardTerminal 终态：CLAIMED / EXPIRED / CANCELLED
func IsRewardTerminal(status string) bool {
	switch status {
	case constants.RewardStatusClaimed, constants.RewardStatusExpired, constants.RewardStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValidRewardStatus 判断奖励状态取值是否合法
func IsValidRewardStatus(status string) bool {
	switch status {
	case constants.RewardStatusAvailable, constants.RewardStatusDistributed,
		constants.RewardStatusClaimed, constants.RewardStatusExpired, constants.RewardStatusCancelled:
		return true
	default:
		return false
	}
}

// CanClaim 仅 AVAILABLE / DISTRIBUTED 可核销
func CanClaim(reward *models.Reward) bool {
	if reward == nil {
		return false
	}
	return reward.Status == constants.RewardStatusAvailable || reward.Status == constants.RewardStatusDistributed
}

// CanDistribute 仅 AVAILABLE 可发放
func CanDistribute(reward *models.Reward) bool {
	return reward != nil && reward.Status == constants.RewardStatusAvailable
}
