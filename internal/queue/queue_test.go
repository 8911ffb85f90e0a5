package queue

import (
	"context"
	"testing"
	"time"

	"github.com/cabinstay/internal/config"

	"github.com/hibiken/asynq"
)

func TestAnalyticsRollupTaskRoundTrip(t *testing.T) {
	day := time.Date(2024, 6, 1, 23, 30, 0, 0, time.FixedZone("UTC+8", 8*3600))
	task, err := NewAnalyticsRollupTask(day)
	if err != nil {
		t.Fatalf("new rollup task failed: %v", err)
	}
	if task.Type() != TaskAnalyticsRollup {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	if string(task.Payload()) != `{"date":"2024-06-01"}` {
		t.Fatalf("unexpected payload: %s", task.Payload())
	}
	parsed, err := ParseAnalyticsRollupTask(task)
	if err != nil {
		t.Fatalf("parse rollup task failed: %v", err)
	}
	if !parsed.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected parsed day: %v", parsed)
	}
}

func TestParseAnalyticsRollupTaskRejectsBadDate(t *testing.T) {
	if _, err := ParseAnalyticsRollupTask(asynq.NewTask(TaskAnalyticsRollup, []byte(`{"date":"06/01/2024"}`))); err == nil {
		t.Fatalf("expected invalid date error")
	}
	if _, err := ParseAnalyticsRollupTask(asynq.NewTask(TaskAnalyticsRollup, []byte(`not json`))); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client := NewClient(&config.QueueConfig{})
	if client.Enabled() {
		t.Fatalf("expected disabled client")
	}
	queued, err := client.EnqueueAnalyticsRollup(context.Background(), time.Now())
	if err != nil || queued {
		t.Fatalf("disabled client should not enqueue: queued=%v err=%v", queued, err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client failed: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 4 || cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
