package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/repository"

	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CategoryService 分类业务服务
type CategoryService struct {
	repo  repository.CategoryRepository
	cache CatalogCache
}

// NewCategoryService 创建分类服务
func NewCategoryService(repo repository.CategoryRepository, cache CatalogCache) *CategoryService {
	return &CategoryService{repo: repo, cache: cache}
}

// CategoryInput 创建/更新分类输入；更新时 nil 字段保持不变
type CategoryInput struct {
	Name        *string
	Slug        *string
	Description *string
}

// List 获取分类列表（附带商品数）
func (s *CategoryService) List(ctx context.Context) ([]models.CategoryWithCount, error) {
	return s.repo.List(ctx)
}

// Create 创建分类；slug 为空时由名称生成，已存在返回 ErrSlugExists
func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(deref(input.Name))
	if name == "" {
		return nil, ErrCategoryNameRequired
	}
	slug, err := normalizeSlug(deref(input.Slug), name)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountBySlug(ctx, slug, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	category := models.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(deref(input.Description)),
	}
	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, slugConflict(err)
	}
	s.invalidate(ctx)
	logger.Infow("category_created", "category_id", category.ID, "slug", category.Slug)
	return &category, nil
}

// Update 更新分类；slug 变化时重新校验唯一性
func (s *CategoryService) Update(ctx context.Context, id uint, input CategoryInput) (*models.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrCategoryNameRequired
		}
		category.Name = name
	}
	if input.Slug != nil {
		slug, err := normalizeSlug(*input.Slug, category.Name)
		if err != nil {
			return nil, err
		}
		if slug != category.Slug {
			count, err := s.repo.CountBySlug(ctx, slug, category.ID)
			if err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrSlugExists
			}
			category.Slug = slug
		}
	}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, slugConflict(err)
	}
	s.invalidate(ctx)
	logger.Infow("category_updated", "category_id", category.ID, "slug", category.Slug)
	return category, nil
}

// Delete 在同一事务内解除商品关联并删除分类，商品本身保留
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	var detached int64
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		category, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if category == nil {
			return ErrCategoryNotFound
		}
		detached, err = repo.DetachProducts(ctx, id)
		if err != nil {
			return err
		}
		affected, err := repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	logger.Infow("category_deleted", "category_id", id, "detached_products", detached)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	bumpCatalog(ctx, s.cache)
}

// normalizeSlug 校验显式 slug，为空时由 fallback 生成
func normalizeSlug(raw, fallback string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if slug == "" {
		slug = models.Slugify(fallback)
	}
	if slug == "" || len(slug) > 120 || !slugPattern.MatchString(slug) {
		return "", ErrSlugInvalid
	}
	return slug, nil
}

// slugConflict 并发创建同一 slug 时由唯一索引兜底
func slugConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(ClassifyDBError(err), ErrConflict) {
		return ErrSlugExists
	}
	return err
}

func deref[T any](ptr *T) T {
	var zero T
	if ptr == nil {
		return zero
	}
	return *ptr
}
