package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cabinstay/internal/constants"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/queue"

	"github.com/hibiken/asynq"
)

// Roller 执行某日访问汇总
type Roller interface {
	RollupDay(ctx context.Context, day time.Time) (*models.VisitorStat, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	analytics Roller
}

// NewConsumer 创建消费者
func NewConsumer(analytics Roller) *Consumer {
	return &Consumer{analytics: analytics}
}

// Register 注册任务处理函数
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAnalyticsRollup, c.handleAnalyticsRollup)
}

func (c *Consumer) handleAnalyticsRollup(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.analytics == nil || task == nil {
		logger.Debugw("worker_analytics_rollup_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	day, err := queue.ParseAnalyticsRollupTask(task)
	if err != nil {
		// 载荷无法解析时重试无意义
		logger.Warnw("worker_analytics_rollup_invalid_payload", "payload", string(task.Payload()), "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if _, err := c.analytics.RollupDay(ctx, day); err != nil {
		logger.Warnw("worker_analytics_rollup_failed", "date", day.Format(constants.DateLayout), "error", err)
		return err
	}
	return nil
}
