package repository

import (
	"context"
	"strings"

	"github.com/cabinstay/internal/models"

	"gorm.io/gorm"
)

// AuditLogRepository 后台审计日志数据访问接口
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AdminAuditLog) error
	List(ctx context.Context, filter AuditLogListFilter) ([]models.AdminAuditLog, int64, error)
	Count(ctx context.Context) (int64, error)
}

// GormAuditLogRepository GORM 实现
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓库
func NewAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Create 写入审计日志
func (r *GormAuditLogRepository) Create(ctx context.Context, log *models.AdminAuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List 审计日志列表，按时间倒序
func (r *GormAuditLogRepository) List(ctx context.Context, filter AuditLogListFilter) ([]models.AdminAuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AdminAuditLog{})
	if filter.AdminID != 0 {
		query = query.Where("admin_id = ?", filter.AdminID)
	}
	if method := strings.ToUpper(strings.TrimSpace(filter.Method)); method != "" {
		query = query.Where("method = ?", method)
	}
	if route := strings.TrimSpace(filter.Route); route != "" {
		query = query.Where(likeCondition(r.db, "route"), likePattern(route))
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	logs := make([]models.AdminAuditLog, 0)
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("id DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Count 审计日志总数
func (r *GormAuditLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AdminAuditLog{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
