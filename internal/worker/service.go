package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/constants"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultRollupInterval = 10 * time.Minute

// Service asynq 任务消费服务
type Service struct {
	name   string
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建任务消费服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.S()
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:   "worker",
		server: asynq.NewServer(opt, serverCfg),
		mux:    mux,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务，阻塞至 Stop
func (s *Service) Start(context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

// Enqueuer 推送日汇总任务；返回 false 表示需同步执行
type Enqueuer interface {
	EnqueueAnalyticsRollup(ctx context.Context, day time.Time, opts ...asynq.Option) (bool, error)
}

// RollupScheduler 周期性汇总今天与昨天的访问数据。
// 队列启用时推送任务，否则直接调用 Roller。
type RollupScheduler struct {
	roller   Roller
	enqueuer Enqueuer
	interval time.Duration
	now      func() time.Time
	stop     chan struct{}
}

// NewRollupScheduler 创建汇总调度器
func NewRollupScheduler(roller Roller, enqueuer Enqueuer, cfg config.AnalyticsConfig) *RollupScheduler {
	interval := time.Duration(cfg.RollupIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultRollupInterval
	}
	return &RollupScheduler{
		roller:   roller,
		enqueuer: enqueuer,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Name 服务名称
func (s *RollupScheduler) Name() string {
	return "analytics_rollup"
}

// Start 立即执行一轮，之后按间隔执行
func (s *RollupScheduler) Start(ctx context.Context) error {
	s.RunOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop 停止调度
func (s *RollupScheduler) Stop(context.Context) error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return nil
}

// RunOnce 汇总今天与昨天（UTC）
func (s *RollupScheduler) RunOnce(ctx context.Context) {
	today := s.now().UTC()
	for _, day := range []time.Time{today.AddDate(0, 0, -1), today} {
		if err := s.rollup(ctx, day); err != nil {
			logger.Warnw("analytics_rollup_schedule_failed", "date", day.Format(constants.DateLayout), "error", err)
		}
	}
}

func (s *RollupScheduler) rollup(ctx context.Context, day time.Time) error {
	if s.enqueuer != nil {
		queued, err := s.enqueuer.EnqueueAnalyticsRollup(ctx, day)
		if err != nil || queued {
			return err
		}
	}
	if s.roller == nil {
		return errors.New("analytics roller is nil")
	}
	_, err := s.roller.RollupDay(ctx, day)
	return err
}
