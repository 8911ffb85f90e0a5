package service

import (
	"context"
	"strings"
	"time"

	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/repository"
)

// AuditRecordInput 后台写操作审计输入
type AuditRecordInput struct {
	AdminID    uint
	Username   string
	Method     string
	Route      string
	ResourceID string
	StatusCode int
	RequestID  string
}

// AuditService 后台写操作审计服务
type AuditService struct {
	repo repository.AuditLogRepository
}

// NewAuditService 创建审计服务
func NewAuditService(repo repository.AuditLogRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Record 写入审计日志；未识别身份的请求不记录
func (s *AuditService) Record(ctx context.Context, input AuditRecordInput) error {
	if s == nil || s.repo == nil || input.AdminID == 0 {
		return nil
	}
	return s.repo.Create(ctx, &models.AdminAuditLog{
		AdminID:    input.AdminID,
		Username:   strings.TrimSpace(input.Username),
		Method:     strings.ToUpper(strings.TrimSpace(input.Method)),
		Route:      strings.TrimSpace(input.Route),
		ResourceID: strings.TrimSpace(input.ResourceID),
		StatusCode: input.StatusCode,
		RequestID:  strings.TrimSpace(input.RequestID),
		CreatedAt:  time.Now().UTC(),
	})
}

// List 查询审计日志
func (s *AuditService) List(ctx context.Context, filter repository.AuditLogListFilter) ([]models.AdminAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AdminAuditLog{}, 0, nil
	}
	return s.repo.List(ctx, filter)
}

// Count 审计日志总数
func (s *AuditService) Count(ctx context.Context) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, nil
	}
	return s.repo.Count(ctx)
}
