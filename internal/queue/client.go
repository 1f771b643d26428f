package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueEventGenerateRewards 推送活动奖励生成任务，同一活动只保留一个待执行任务
func (c *Client) EnqueueEventGenerateRewards(payload EventGenerateRewardsPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewEventGenerateRewardsTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task,
		asynq.Queue(constants.QueueCritical),
		asynq.TaskID(fmt.Sprintf("event-generate-%d", payload.EventID)),
		asynq.MaxRetry(3),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueRewardExpireSweep 推送奖励过期扫描任务
func (c *Client) EnqueueRewardExpireSweep(now time.Time, opts ...asynq.Option) error {
	return c.enqueueSweep(NewRewardExpireSweepTask, now, opts...)
}

// EnqueueEventExpireSweep 推送活动结束扫描任务
func (c *Client) EnqueueEventExpireSweep(now time.Time, opts ...asynq.Option) error {
	return c.enqueueSweep(NewEventExpireSweepTask, now, opts...)
}

func (c *Client) enqueueSweep(build func(ExpireSweepPayload) (*asynq.Task, error), now time.Time, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := build(ExpireSweepPayload{Now: now})
	if err != nil {
		return err
	}
	options := append([]asynq.Option{asynq.Queue(c.defaultQueue), asynq.MaxRetry(1)}, opts...)
	_, err = c.client.Enqueue(task, options...)
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
