package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cabinstay/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskAnalyticsRollup 访问日汇总任务
	TaskAnalyticsRollup = constants.TaskAnalyticsRollup
)

// AnalyticsRollupPayload 日汇总任务载荷，date 为 YYYY-MM-DD（UTC）
type AnalyticsRollupPayload struct {
	Date string `json:"date"`
}

// Day 解析载荷中的日期
func (p AnalyticsRollupPayload) Day() (time.Time, error) {
	day, err := time.ParseInLocation(constants.DateLayout, strings.TrimSpace(p.Date), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid rollup date %q: %w", p.Date, err)
	}
	return day, nil
}

// NewAnalyticsRollupTask 创建日汇总任务
func NewAnalyticsRollupTask(day time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(AnalyticsRollupPayload{Date: day.UTC().Format(constants.DateLayout)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsRollup, body), nil
}

// ParseAnalyticsRollupTask 解析日汇总任务
func ParseAnalyticsRollupTask(task *asynq.Task) (time.Time, error) {
	var payload AnalyticsRollupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return time.Time{}, err
	}
	return payload.Day()
}
