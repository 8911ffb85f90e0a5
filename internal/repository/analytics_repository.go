package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cabinstay/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DayAggregate 某日页面访问事件的聚合结果
type DayAggregate struct {
	PageViews      int64
	Visitors       int64 // 去重会话
	UniqueVisitors int64 // 去重 IP
}

// AnalyticsRepository 访问统计数据访问接口
type AnalyticsRepository interface {
	UpsertDailyStat(ctx context.Context, stat *models.VisitorStat) error
	GetDailyStat(ctx context.Context, day time.Time) (*models.VisitorStat, error)
	ListDailyStats(ctx context.Context, from, to time.Time) ([]models.VisitorStat, error)
	CreatePageView(ctx context.Context, view *models.PageView) error
	AggregateDay(ctx context.Context, day time.Time) (DayAggregate, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AnalyticsRepository
}

// GormAnalyticsRepository GORM 实现
type GormAnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建统计仓库
func NewAnalyticsRepository(db *gorm.DB) *GormAnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAnalyticsRepository) WithTx(tx *gorm.DB) AnalyticsRepository {
	if tx == nil {
		return r
	}
	return &GormAnalyticsRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAnalyticsRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// UpsertDailyStat 按日期写入汇总，已存在时覆盖计数。
// 依赖 date 唯一索引，单条语句完成，并发写同一日期不会产生重复行。
func (r *GormAnalyticsRepository) UpsertDailyStat(ctx context.Context, stat *models.VisitorStat) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"visitors", "page_views", "unique_visitors", "updated_at"}),
	}).Create(stat).Error
}

// GetDailyStat 获取某日汇总，不存在返回 nil
func (r *GormAnalyticsRepository) GetDailyStat(ctx context.Context, day time.Time) (*models.VisitorStat, error) {
	var stat models.VisitorStat
	if err := r.db.WithContext(ctx).Where("date = ?", datatypes.Date(day)).First(&stat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stat, nil
}

// ListDailyStats 日期闭区间内的汇总，按日期升序
func (r *GormAnalyticsRepository) ListDailyStats(ctx context.Context, from, to time.Time) ([]models.VisitorStat, error) {
	stats := make([]models.VisitorStat, 0)
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", datatypes.Date(from), datatypes.Date(to)).
		Order("date ASC").
		Find(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// CreatePageView 追加一条访问事件
func (r *GormAnalyticsRepository) CreatePageView(ctx context.Context, view *models.PageView) error {
	return r.db.WithContext(ctx).Create(view).Error
}

// AggregateDay 聚合 [day, day+1) 内的访问事件
func (r *GormAnalyticsRepository) AggregateDay(ctx context.Context, day time.Time) (DayAggregate, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var agg DayAggregate
	err := r.db.WithContext(ctx).
		Model(&models.PageView{}).
		Select(
			"COUNT(*) AS page_views, "+
				"COUNT(DISTINCT NULLIF(session_id, '')) AS visitors, "+
				"COUNT(DISTINCT NULLIF(ip_address, '')) AS unique_visitors",
		).
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&agg).Error
	if err != nil {
		return DayAggregate{}, err
	}
	return agg, nil
}
