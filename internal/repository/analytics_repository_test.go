package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cabinstay/internal/models"

	"gorm.io/datatypes"
)

func TestUpsertDailyStatKeepsOneRowPerDate(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()
	date := day("2026-08-01")

	if err := repo.UpsertDailyStat(ctx, &models.VisitorStat{Date: datatypes.Date(date), Visitors: 3, PageViews: 10, UniqueVisitors: 2}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := repo.UpsertDailyStat(ctx, &models.VisitorStat{Date: datatypes.Date(date), Visitors: 5, PageViews: 12, UniqueVisitors: 4}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.VisitorStat{}).Count(&count).Error; err != nil {
		t.Fatalf("count stats failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
	stat, err := repo.GetDailyStat(ctx, date)
	if err != nil || stat == nil {
		t.Fatalf("get daily stat failed: %v", err)
	}
	if stat.Visitors != 5 || stat.PageViews != 12 || stat.UniqueVisitors != 4 {
		t.Fatalf("expected overwritten counters, got %+v", stat)
	}

	missing, err := repo.GetDailyStat(ctx, day("2026-08-02"))
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing day, got %+v err=%v", missing, err)
	}
}

func TestAggregateDayCountsDistinctVisitors(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()
	base := day("2026-08-10")

	views := []models.PageView{
		{IPAddress: "10.0.0.1", SessionID: "s1", PageURL: "/", CreatedAt: base.Add(1 * time.Hour)},
		{IPAddress: "10.0.0.1", SessionID: "s1", PageURL: "/cabins", CreatedAt: base.Add(2 * time.Hour)},
		{IPAddress: "10.0.0.2", SessionID: "s2", PageURL: "/", CreatedAt: base.Add(3 * time.Hour)},
		{IPAddress: "10.0.0.2", SessionID: "", PageURL: "/parts", CreatedAt: base.Add(4 * time.Hour)},
		{IPAddress: "10.0.0.3", SessionID: "s3", PageURL: "/", CreatedAt: base.Add(25 * time.Hour)},
	}
	for i := range views {
		if err := repo.CreatePageView(ctx, &views[i]); err != nil {
			t.Fatalf("create page view failed: %v", err)
		}
	}

	agg, err := repo.AggregateDay(ctx, base)
	if err != nil {
		t.Fatalf("aggregate day failed: %v", err)
	}
	if agg.PageViews != 4 || agg.Visitors != 2 || agg.UniqueVisitors != 2 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}

	stats, err := repo.ListDailyStats(ctx, base, base.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("list stats failed: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected no stats before rollup, got %d", len(stats))
	}
}
