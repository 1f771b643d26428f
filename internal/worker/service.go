package worker

import (
	"context"
	"errors"
	"time"

	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultSweepInterval = time.Minute
)

// Service 异步队列服务
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer, workerCfg config.WorkerConfig) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: resolveSweepInterval(workerCfg),
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.QueueClient.Enabled() {
		go runTicker(ctx, s.sweepInterval, s.enqueueSweeps)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// enqueueSweeps 多实例部署时 Unique 保证同一周期只入队一次
func (s *Service) enqueueSweeps(now time.Time) {
	client := s.consumer.QueueClient
	unique := asynq.Unique(s.sweepInterval)
	if err := client.EnqueueRewardExpireSweep(now, unique); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Warnw("worker_enqueue_reward_expire_sweep_failed", "error", err)
	}
	if err := client.EnqueueEventExpireSweep(now, unique); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Warnw("worker_enqueue_event_expire_sweep_failed", "error", err)
	}
}

// SweepService 无队列时在进程内执行过期扫描
type SweepService struct {
	name     string
	consumer *Consumer
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSweepService 创建进程内扫描服务
func NewSweepService(consumer *Consumer, workerCfg config.WorkerConfig) (*SweepService, error) {
	if consumer == nil || consumer.Container == nil {
		return nil, errors.New("consumer is nil")
	}
	return &SweepService{
		name:     "sweeper",
		consumer: consumer,
		interval: resolveSweepInterval(workerCfg),
	}, nil
}

// Name 服务名称
func (s *SweepService) Name() string {
	if s == nil || s.name == "" {
		return "sweeper"
	}
	return s.name
}

// Start 启动服务，阻塞至 ctx 结束
func (s *SweepService) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("sweeper not initialized")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	defer close(s.done)
	runTicker(ctx, s.interval, func(now time.Time) {
		s.SweepOnce(ctx, now)
	})
	return nil
}

// Stop 停止服务
func (s *SweepService) Stop(ctx context.Context) error {
	if s == nil || s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// SweepOnce 执行一轮奖励与活动过期扫描
func (s *SweepService) SweepOnce(ctx context.Context, now time.Time) {
	c := s.consumer
	if c.RewardService != nil {
		expired, err := c.RewardService.ExpireDue(ctx, now)
		if err != nil {
			logger.Warnw("worker_sweep_reward_expire_failed", "error", err)
		} else if expired > 0 {
			logger.Infow("worker_sweep_reward_expire_done", "expired", expired)
		}
	}
	if c.EventService != nil {
		expired, err := c.EventService.ExpireEnded(ctx, now)
		if err != nil {
			logger.Warnw("worker_sweep_event_expire_failed", "error", err)
		} else if expired > 0 {
			logger.Infow("worker_sweep_event_expire_done", "expired", expired)
		}
	}
}

func runTicker(ctx context.Context, interval time.Duration, runOnce func(now time.Time)) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	runOnce(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			runOnce(now)
		}
	}
}

func resolveSweepInterval(cfg config.WorkerConfig) time.Duration {
	if cfg.SweepIntervalSeconds <= 0 {
		return defaultSweepInterval
	}
	return time.Duration(cfg.SweepIntervalSeconds) * time.Second
}
