package queue

import (
	"encoding/json"
	"time"

	"github.com/bluboy-rewards/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskRewardExpireSweep 奖励过期扫描任务
	TaskRewardExpireSweep = constants.TaskRewardExpireSweep
	// TaskEventExpireSweep 活动结束扫描任务
	TaskEventExpireSweep = constants.TaskEventExpireSweep
	// TaskEventGenerateRewards 活动奖励批量生成任务
	TaskEventGenerateRewards = constants.TaskEventGenerateRewards
)

// ExpireSweepPayload 过期扫描任务载荷
type ExpireSweepPayload struct {
	Now time.Time `json:"now"`
}

// EventGenerateRewardsPayload 奖励生成任务载荷
type EventGenerateRewardsPayload struct {
	EventID     uint   `json:"event_id"`
	RequestedBy string `json:"requested_by"`
}

// NewRewardExpireSweepTask 创建奖励过期扫描任务
func NewRewardExpireSweepTask(payload ExpireSweepPayload) (*asynq.Task, error) {
	return newJSONTask(TaskRewardExpireSweep, payload)
}

// NewEventExpireSweepTask 创建活动结束扫描任务
func NewEventExpireSweepTask(payload ExpireSweepPayload) (*asynq.Task, error) {
	return newJSONTask(TaskEventExpireSweep, payload)
}

// NewEventGenerateRewardsTask 创建奖励生成任务
func NewEventGenerateRewardsTask(payload EventGenerateRewardsPayload) (*asynq.Task, error) {
	return newJSONTask(TaskEventGenerateRewards, payload)
}

func newJSONTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}
