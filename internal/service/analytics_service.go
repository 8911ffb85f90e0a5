package service

import (
	"context"
	"strings"
	"time"

	"github.com/cabinstay/internal/constants"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/repository"

	"gorm.io/datatypes"
)

const maxStatRangeDays = 366

// AnalyticsService 访问统计服务
type AnalyticsService struct {
	repo            repository.AnalyticsRepository
	reservationRepo repository.ReservationRepository
}

// NewAnalyticsService 创建访问统计服务
func NewAnalyticsService(repo repository.AnalyticsRepository, reservationRepo repository.ReservationRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo, reservationRepo: reservationRepo}
}

// PageViewInput 页面访问事件
type PageViewInput struct {
	IPAddress string
	UserAgent string
	PageURL   string
	Referrer  string
	SessionID string
}

// Overview 统计总览
type Overview struct {
	From           string           `json:"from"`
	To             string           `json:"to"`
	Visitors       int64            `json:"visitors"`
	PageViews      int64            `json:"page_views"`
	UniqueVisitors int64            `json:"unique_visitors"`
	Reservations   map[string]int64 `json:"reservations"`
}

// UpsertDailyStat 写入某日汇总，重复调用以最后一次为准
func (s *AnalyticsService) UpsertDailyStat(ctx context.Context, day time.Time, visitors, pageViews, uniqueVisitors int64) (*models.VisitorStat, error) {
	if day.IsZero() {
		return nil, ErrStatDateInvalid
	}
	if visitors < 0 || pageViews < 0 || uniqueVisitors < 0 {
		return nil, ErrStatCountsInvalid
	}
	stat := &models.VisitorStat{
		Date:           datatypes.Date(truncateDay(day)),
		Visitors:       visitors,
		PageViews:      pageViews,
		UniqueVisitors: uniqueVisitors,
	}
	if err := s.repo.UpsertDailyStat(ctx, stat); err != nil {
		return nil, ClassifyDBError(err)
	}
	stored, err := s.repo.GetDailyStat(ctx, truncateDay(day))
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return stat, nil
	}
	return stored, nil
}

// RecordPageView 追加访问事件
func (s *AnalyticsService) RecordPageView(ctx context.Context, input PageViewInput) error {
	pageURL := strings.TrimSpace(input.PageURL)
	if pageURL == "" {
		return ErrPageViewInvalid
	}
	return s.repo.CreatePageView(ctx, &models.PageView{
		IPAddress: truncate(strings.TrimSpace(input.IPAddress), 64),
		UserAgent: truncate(input.UserAgent, 500),
		PageURL:   truncate(pageURL, 1000),
		Referrer:  truncate(strings.TrimSpace(input.Referrer), 1000),
		SessionID: truncate(strings.TrimSpace(input.SessionID), 128),
	})
}

// RollupDay 聚合某日访问事件并写入日汇总
func (s *AnalyticsService) RollupDay(ctx context.Context, day time.Time) (*models.VisitorStat, error) {
	day = truncateDay(day)
	agg, err := s.repo.AggregateDay(ctx, day)
	if err != nil {
		return nil, err
	}
	stat, err := s.UpsertDailyStat(ctx, day, agg.Visitors, agg.PageViews, agg.UniqueVisitors)
	if err != nil {
		return nil, err
	}
	logger.Infow("analytics_rollup_done",
		"date", day.Format(constants.DateLayout),
		"visitors", stat.Visitors,
		"page_views", stat.PageViews,
		"unique_visitors", stat.UniqueVisitors,
	)
	return stat, nil
}

// GetDailyStat 获取某日汇总
func (s *AnalyticsService) GetDailyStat(ctx context.Context, day time.Time) (*models.VisitorStat, error) {
	stat, err := s.repo.GetDailyStat(ctx, truncateDay(day))
	if err != nil {
		return nil, err
	}
	if stat == nil {
		return nil, ErrNotFound
	}
	return stat, nil
}

// ListDailyStats 日期闭区间内的汇总
func (s *AnalyticsService) ListDailyStats(ctx context.Context, from, to time.Time) ([]models.VisitorStat, error) {
	from, to, err := statRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDailyStats(ctx, from, to)
}

// Overview 汇总区间内的访问量与各状态预订数
func (s *AnalyticsService) Overview(ctx context.Context, from, to time.Time) (*Overview, error) {
	stats, err := s.ListDailyStats(ctx, from, to)
	if err != nil {
		return nil, err
	}
	from, to, _ = statRange(from, to)
	out := &Overview{From: from.Format(constants.DateLayout), To: to.Format(constants.DateLayout)}
	for _, stat := range stats {
		out.Visitors += stat.Visitors
		out.PageViews += stat.PageViews
		out.UniqueVisitors += stat.UniqueVisitors
	}
	if s.reservationRepo != nil {
		if out.Reservations, err = s.reservationRepo.CountByStatus(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// statRange 缺省为最近 30 天，区间不超过一年
func statRange(from, to time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	to = truncateDay(to)
	if from.IsZero() {
		from = to.AddDate(0, 0, -29)
	}
	from = truncateDay(from)
	if from.After(to) || to.Sub(from) > maxStatRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, ErrStatDateInvalid
	}
	return from, to, nil
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
