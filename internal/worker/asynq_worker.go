package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/provider"
	"github.com/bluboy-rewards/internal/queue"
	"github.com/bluboy-rewards/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskRewardExpireSweep, c.handleRewardExpireSweep)
	mux.HandleFunc(queue.TaskEventExpireSweep, c.handleEventExpireSweep)
	mux.HandleFunc(queue.TaskEventGenerateRewards, c.handleEventGenerateRewards)
}

func (c *Consumer) handleRewardExpireSweep(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_reward_expire_sweep_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	now, err := decodeSweepNow(task)
	if err != nil {
		logger.Warnw("worker_reward_expire_sweep_unmarshal_failed", "error", err)
		return err
	}
	if c.RewardService == nil {
		logger.Warnw("worker_reward_expire_sweep_skip_service_nil")
		return nil
	}
	count, err := c.RewardService.ExpireDue(ctx, now)
	if err != nil {
		logger.Warnw("worker_reward_expire_sweep_failed", "now", now, "error", err)
		return err
	}
	if count > 0 {
		logger.Infow("worker_reward_expire_sweep_done", "now", now, "expired", count)
	}
	return nil
}

func (c *Consumer) handleEventExpireSweep(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_event_expire_sweep_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	now, err := decodeSweepNow(task)
	if err != nil {
		logger.Warnw("worker_event_expire_sweep_unmarshal_failed", "error", err)
		return err
	}
	if c.EventService == nil {
		logger.Warnw("worker_event_expire_sweep_skip_service_nil")
		return nil
	}
	count, err := c.EventService.ExpireEnded(ctx, now)
	if err != nil {
		logger.Warnw("worker_event_expire_sweep_failed", "now", now, "error", err)
		return err
	}
	if count > 0 {
		logger.Infow("worker_event_expire_sweep_done", "now", now, "expired", count)
	}
	return nil
}

func (c *Consumer) handleEventGenerateRewards(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_event_generate_rewards_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.EventGenerateRewardsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_event_generate_rewards_unmarshal_failed", "error", err)
		return err
	}
	if payload.EventID == 0 {
		logger.Debugw("worker_event_generate_rewards_skip_invalid_payload", "event_id", payload.EventID)
		return nil
	}
	if c.EventService == nil {
		logger.Warnw("worker_event_generate_rewards_skip_service_nil", "event_id", payload.EventID)
		return nil
	}
	created, err := c.EventService.GenerateRewards(ctx, payload.EventID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			logger.Debugw("worker_event_generate_rewards_skip_event_not_found", "event_id", payload.EventID)
			return nil
		case errors.Is(err, service.ErrEventNotActive):
			logger.Debugw("worker_event_generate_rewards_skip_event_not_active", "event_id", payload.EventID)
			return nil
		default:
			logger.Warnw("worker_event_generate_rewards_failed",
				"event_id", payload.EventID,
				"requested_by", payload.RequestedBy,
				"error", err,
			)
			return err
		}
	}
	logger.Infow("worker_event_generate_rewards_done",
		"event_id", payload.EventID,
		"requested_by", payload.RequestedBy,
		"created", created,
	)
	return nil
}

// decodeSweepNow 解析扫描基准时间，缺省取当前时间
func decodeSweepNow(task *asynq.Task) (time.Time, error) {
	var payload queue.ExpireSweepPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return time.Time{}, err
		}
	}
	if payload.Now.IsZero() {
		return time.Now(), nil
	}
	return payload.Now, nil
}
