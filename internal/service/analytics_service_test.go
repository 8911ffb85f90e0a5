package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cabinstay/internal/repository"
)

func newTestAnalyticsService(t *testing.T) *AnalyticsService {
	t.Helper()
	db := openServiceTestDB(t)
	return NewAnalyticsService(repository.NewAnalyticsRepository(db), repository.NewReservationRepository(db))
}

func TestAnalyticsServiceUpsertIsIdempotent(t *testing.T) {
	svc := newTestAnalyticsService(t)
	ctx := context.Background()
	day := mustDate(t, "2024-05-20")

	for i := 0; i < 2; i++ {
		stat, err := svc.UpsertDailyStat(ctx, day, 50, 150, 40)
		if err != nil {
			t.Fatalf("upsert #%d failed: %v", i+1, err)
		}
		if stat.Visitors != 50 || stat.PageViews != 150 || stat.UniqueVisitors != 40 {
			t.Fatalf("unexpected stat after upsert #%d: %+v", i+1, stat)
		}
	}
	stats, err := svc.ListDailyStats(ctx, day, day)
	if err != nil {
		t.Fatalf("list stats failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one row for the day, got %d", len(stats))
	}

	updated, err := svc.UpsertDailyStat(ctx, day.Add(15*time.Hour), 60, 170, 45)
	if err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if updated.Visitors != 60 || updated.PageViews != 170 || updated.UniqueVisitors != 45 {
		t.Fatalf("expected last write to win, got %+v", updated)
	}
}

func TestAnalyticsServiceUpsertValidation(t *testing.T) {
	svc := newTestAnalyticsService(t)
	ctx := context.Background()

	if _, err := svc.UpsertDailyStat(ctx, time.Time{}, 1, 1, 1); !errors.Is(err, ErrStatDateInvalid) {
		t.Fatalf("expected invalid date, got %v", err)
	}
	if _, err := svc.UpsertDailyStat(ctx, mustDate(t, "2024-05-20"), -1, 1, 1); !errors.Is(err, ErrStatCountsInvalid) {
		t.Fatalf("expected invalid counters, got %v", err)
	}
	if _, err := svc.GetDailyStat(ctx, mustDate(t, "2024-05-21")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ListDailyStats(ctx, mustDate(t, "2024-06-01"), mustDate(t, "2024-05-01")); !errors.Is(err, ErrStatDateInvalid) {
		t.Fatalf("expected reversed range rejected, got %v", err)
	}
	if _, err := svc.ListDailyStats(ctx, mustDate(t, "2022-01-01"), mustDate(t, "2024-01-01")); !errors.Is(err, ErrStatDateInvalid) {
		t.Fatalf("expected oversized range rejected, got %v", err)
	}
}

func TestAnalyticsServiceRollupDay(t *testing.T) {
	svc := newTestAnalyticsService(t)
	ctx := context.Background()

	views := []PageViewInput{
		{PageURL: "/", SessionID: "s1", IPAddress: "10.0.0.1"},
		{PageURL: "/rooms", SessionID: "s1", IPAddress: "10.0.0.1"},
		{PageURL: "/rooms/1", SessionID: "s2", IPAddress: "10.0.0.1"},
		{PageURL: "/", SessionID: "", IPAddress: "10.0.0.2"},
	}
	for _, view := range views {
		if err := svc.RecordPageView(ctx, view); err != nil {
			t.Fatalf("record page view failed: %v", err)
		}
	}
	if err := svc.RecordPageView(ctx, PageViewInput{PageURL: "  "}); !errors.Is(err, ErrPageViewInvalid) {
		t.Fatalf("expected page url required, got %v", err)
	}

	today := time.Now().UTC()
	stat, err := svc.RollupDay(ctx, today)
	if err != nil {
		t.Fatalf("rollup failed: %v", err)
	}
	if stat.PageViews != 4 || stat.Visitors != 2 || stat.UniqueVisitors != 2 {
		t.Fatalf("unexpected rollup: %+v", stat)
	}
	again, err := svc.RollupDay(ctx, today)
	if err != nil {
		t.Fatalf("second rollup failed: %v", err)
	}
	if again.PageViews != stat.PageViews || again.ID != stat.ID {
		t.Fatalf("rollup should be repeatable: %+v vs %+v", again, stat)
	}

	overview, err := svc.Overview(ctx, today, today)
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.PageViews != 4 || overview.Reservations == nil {
		t.Fatalf("unexpected overview: %+v", overview)
	}
}
