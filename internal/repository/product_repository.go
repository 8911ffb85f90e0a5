package repository

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/cabinstay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const productListColumns = "products.*, categories.name AS category_name, categories.slug AS category_slug"

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	Iterate(ctx context.Context, filter ProductListFilter) iter.Seq2[models.ProductListItem, error]
	List(ctx context.Context, filter ProductListFilter) ([]models.ProductListItem, int64, error)
	GetByID(ctx context.Context, id uint) (*models.ProductListItem, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) (int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Transaction 执行事务
func (r *GormProductRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// filtered 构建带分类连接与过滤条件的查询
func (r *GormProductRepository) filtered(ctx context.Context, filter ProductListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Joins("LEFT JOIN categories ON categories.id = products.category_id")
	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if slug := strings.TrimSpace(filter.CategorySlug); slug != "" {
		query = query.Where("categories.slug = ?", slug)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where(likeCondition(r.db, "products.name"), likePattern(search))
	}
	return query
}

// Iterate 按 ID 顺序惰性遍历商品；每次 range 重新查询，可重复遍历。
// 遍历期间占用一个连接，调用方不应在循环体内再访问数据库。
func (r *GormProductRepository) Iterate(ctx context.Context, filter ProductListFilter) iter.Seq2[models.ProductListItem, error] {
	return func(yield func(models.ProductListItem, error) bool) {
		query := r.filtered(ctx, filter).Select(productListColumns).Order("products.id ASC")
		query = applyPagination(query, filter.Page, filter.PageSize)
		rows, err := query.Rows()
		if err != nil {
			yield(models.ProductListItem{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var item models.ProductListItem
			if err := r.db.ScanRows(rows, &item); err != nil {
				yield(models.ProductListItem{}, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.ProductListItem{}, err)
		}
	}
}

// List 分页商品列表
func (r *GormProductRepository) List(ctx context.Context, filter ProductListFilter) ([]models.ProductListItem, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := make([]models.ProductListItem, 0)
	query := r.filtered(ctx, filter).Select(productListColumns).Order("products.id ASC")
	if err := applyPagination(query, filter.Page, filter.PageSize).Scan(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetByID 获取商品（附带分类名），不存在返回 nil
func (r *GormProductRepository) GetByID(ctx context.Context, id uint) (*models.ProductListItem, error) {
	var item models.ProductListItem
	result := r.filtered(ctx, ProductListFilter{}).
		Select(productListColumns).
		Where("products.id = ?", id).
		Limit(1).
		Scan(&item)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &item, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

// Update 更新商品
func (r *GormProductRepository) Update(ctx context.Context, product *models.Product) error {
	if product == nil || product.ID == 0 {
		return errors.New("product id is required")
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
}

// Delete 删除商品，返回受影响行数
func (r *GormProductRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	return result.RowsAffected, result.Error
}
