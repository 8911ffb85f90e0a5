package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cabinstay/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 管理员数据访问接口
type AdminRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	GetByID(ctx context.Context, id uint) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, admin *models.Admin) error
	TouchLogin(ctx context.Context, id uint, at time.Time) error
	RevokeTokens(ctx context.Context, id uint, at time.Time) error
	Delete(ctx context.Context, id uint) (int64, error)
}

// GormAdminRepository GORM 实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建管理员仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// GetByUsername 根据用户名获取管理员
func (r *GormAdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// GetByID 根据 ID 获取管理员
func (r *GormAdminRepository) GetByID(ctx context.Context, id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// List 获取管理员列表
func (r *GormAdminRepository) List(ctx context.Context) ([]models.Admin, error) {
	admins := make([]models.Admin, 0)
	err := r.db.WithContext(ctx).
		Select("id", "username", "is_super", "last_login_at", "created_at").
		Order("id ASC").
		Find(&admins).Error
	if err != nil {
		return nil, err
	}
	return admins, nil
}

// Count 统计管理员数量
func (r *GormAdminRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Admin{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建管理员
func (r *GormAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

// TouchLogin 记录最近登录时间
func (r *GormAdminRepository) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// RevokeTokens 递增 token_version，使已签发 Token 失效
func (r *GormAdminRepository) RevokeTokens(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Updates(map[string]interface{}{
		"token_version":        gorm.Expr("token_version + 1"),
		"token_invalid_before": at,
	}).Error
}

// Delete 删除管理员（软删除）
func (r *GormAdminRepository) Delete(ctx context.Context, id uint) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Delete(&models.Admin{}, id)
	return result.RowsAffected, result.Error
}
