package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault

	rollupUniqueWindow = time.Minute
	rollupTimeout      = 2 * time.Minute
	rollupMaxRetry     = 3
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端；未启用时返回空客户端，Enqueue 返回 false
func NewClient(cfg *config.QueueConfig) *Client {
	if cfg == nil || !cfg.Enabled {
		return &Client{defaultQueue: DefaultQueue}
	}
	return &Client{
		client:       asynq.NewClient(buildRedisOpt(cfg)),
		enabled:      true,
		defaultQueue: DefaultQueue,
	}
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

// EnqueueAnalyticsRollup 推送日汇总任务；同一日期在去重窗口内只入队一次。
// 返回 false 表示队列未启用，调用方应同步执行。
func (c *Client) EnqueueAnalyticsRollup(ctx context.Context, day time.Time, opts ...asynq.Option) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	task, err := NewAnalyticsRollupTask(day)
	if err != nil {
		return false, err
	}
	options := append([]asynq.Option{
		asynq.Queue(c.defaultQueue),
		asynq.MaxRetry(rollupMaxRetry),
		asynq.Timeout(rollupTimeout),
		asynq.Unique(rollupUniqueWindow),
	}, opts...)
	if _, err := c.client.EnqueueContext(ctx, task, options...); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 4
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
