package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/cabinstay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryRepository 分类数据访问接口
type CategoryRepository interface {
	List(ctx context.Context) ([]models.CategoryWithCount, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) (int64, error)
	DetachProducts(ctx context.Context, categoryID uint) (int64, error)
	CountBySlug(ctx context.Context, slug string, excludeID uint) (int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CategoryRepository
}

// GormCategoryRepository GORM 实现
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓库
func NewCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCategoryRepository) WithTx(tx *gorm.DB) CategoryRepository {
	if tx == nil {
		return r
	}
	return &GormCategoryRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCategoryRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// List 分类列表（附带商品数）
func (r *GormCategoryRepository) List(ctx context.Context) ([]models.CategoryWithCount, error) {
	categories := make([]models.CategoryWithCount, 0)
	err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Select("categories.*, (SELECT COUNT(*) FROM products WHERE products.category_id = categories.id) AS product_count").
		Order("categories.name ASC, categories.id ASC").
		Scan(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// GetByID 根据 ID 获取分类，不存在返回 nil
func (r *GormCategoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// GetBySlug 根据 slug 获取分类，不存在返回 nil
func (r *GormCategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// Exists 分类是否存在
func (r *GormCategoryRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create 创建分类
func (r *GormCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// Update 更新分类
func (r *GormCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(category).Error
}

// Delete 物理删除分类，返回受影响行数
func (r *GormCategoryRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Category{}, id)
	return result.RowsAffected, result.Error
}

// DetachProducts 将引用该分类的商品置空分类
func (r *GormCategoryRepository) DetachProducts(ctx context.Context, categoryID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("category_id = ?", categoryID).
		Update("category_id", nil)
	return result.RowsAffected, result.Error
}

// CountBySlug 统计 slug 数量
func (r *GormCategoryRepository) CountBySlug(ctx context.Context, slug string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Category{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
