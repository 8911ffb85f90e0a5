package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const productListCacheKind = "products"

// ProductService 商品业务服务
type ProductService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
	cache        CatalogCache
	opts         ProductOptions
}

// ProductOptions 商品校验与缓存参数
type ProductOptions struct {
	Schema       models.SpecSchema
	Rules        *RuleSet
	ListCacheTTL time.Duration
}

// ProductOptionsFromConfig 解析规格 schema 并编译商品规则
func ProductOptionsFromConfig(cfg config.CatalogConfig) (ProductOptions, error) {
	schema := models.SpecSchema{Kinds: map[string]models.SpecKind{}, Required: cfg.RequiredSpecKeys}
	for key, raw := range cfg.SpecificationSchema {
		kind, err := models.ParseSpecKind(raw)
		if err != nil {
			return ProductOptions{}, fmt.Errorf("catalog.specification_schema.%s: %w", key, err)
		}
		schema.Kinds[key] = kind
	}
	rules, err := CompileRuleSet(cfg.RulesVersion, cfg.ProductRules, ProductRuleEnv{})
	if err != nil {
		return ProductOptions{}, err
	}
	return ProductOptions{
		Schema:       schema,
		Rules:        rules,
		ListCacheTTL: time.Duration(cfg.ListCacheTTLSeconds) * time.Second,
	}, nil
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, categoryRepo repository.CategoryRepository, cache CatalogCache, opts ProductOptions) *ProductService {
	return &ProductService{repo: repo, categoryRepo: categoryRepo, cache: cache, opts: opts}
}

// ProductInput 创建/更新商品输入（更新为整体替换）
type ProductInput struct {
	Name           string
	Description    string
	Price          decimal.Decimal
	CategoryID     *uint
	Stock          int
	MainImage      string
	Images         []string
	Specifications models.Specifications
}

// ProductPage 分页商品列表
type ProductPage struct {
	Items []models.ProductListItem `json:"items"`
	Total int64                    `json:"total"`
}

// Iterate 惰性遍历符合条件的商品，可重复 range
func (s *ProductService) Iterate(ctx context.Context, filter repository.ProductListFilter) iter.Seq2[models.ProductListItem, error] {
	return s.repo.Iterate(ctx, filter)
}

// ListPublic 公开商品列表，按目录版本缓存
func (s *ProductService) ListPublic(ctx context.Context, filter repository.ProductListFilter) ([]models.ProductListItem, int64, error) {
	key := productFilterKey(filter)
	if s.cache != nil && s.opts.ListCacheTTL > 0 {
		var cached ProductPage
		hit, err := s.cache.GetCatalogList(ctx, productListCacheKind, key, &cached)
		if err != nil {
			logger.Warnw("product_list_cache_read_failed", "error", err)
		} else if hit {
			return cached.Items, cached.Total, nil
		}
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if s.cache != nil && s.opts.ListCacheTTL > 0 {
		page := ProductPage{Items: items, Total: total}
		if err := s.cache.SetCatalogList(ctx, productListCacheKind, key, page, s.opts.ListCacheTTL); err != nil {
			logger.Warnw("product_list_cache_write_failed", "error", err)
		}
	}
	return items, total, nil
}

// Get 商品详情
func (s *ProductService) Get(ctx context.Context, id uint) (*models.ProductListItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrProductNotFound
	}
	return item, nil
}

// Create 创建商品
func (s *ProductService) Create(ctx context.Context, input ProductInput) (*models.ProductListItem, error) {
	product := &models.Product{}
	if err := s.apply(ctx, product, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, categoryReference(err)
	}
	bumpCatalog(ctx, s.cache)
	logger.Infow("product_created", "product_id", product.ID, "category_id", product.CategoryID)
	return s.Get(ctx, product.ID)
}

// Update 更新商品
func (s *ProductService) Update(ctx context.Context, id uint, input ProductInput) (*models.ProductListItem, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrProductNotFound
	}
	product := existing.Product
	product.Category = nil
	if err := s.apply(ctx, &product, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &product); err != nil {
		return nil, categoryReference(err)
	}
	bumpCatalog(ctx, s.cache)
	logger.Infow("product_updated", "product_id", product.ID, "category_id", product.CategoryID)
	return s.Get(ctx, product.ID)
}

// Delete 删除商品
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	bumpCatalog(ctx, s.cache)
	logger.Infow("product_deleted", "product_id", id)
	return nil
}

// apply 校验输入并写入模型
func (s *ProductService) apply(ctx context.Context, product *models.Product, input ProductInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrProductNameRequired
	}
	price := input.Price.Round(2)
	if !price.IsPositive() {
		return ErrProductPriceInvalid
	}
	if input.Stock < 0 {
		return ErrProductStockInvalid
	}
	categoryID := input.CategoryID
	if categoryID != nil && *categoryID == 0 {
		categoryID = nil
	}
	if categoryID != nil {
		exists, err := s.categoryRepo.Exists(ctx, *categoryID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrProductCategoryAbsent
		}
	}
	specs := input.Specifications
	if specs == nil {
		specs = models.Specifications{}
	}
	if err := specs.Validate(s.opts.Schema); err != nil {
		return fmt.Errorf("%w: %v", ErrSpecificationInvalid, err)
	}
	images := make(models.StringArray, 0, len(input.Images))
	for _, image := range input.Images {
		if image = strings.TrimSpace(image); image != "" {
			images = append(images, image)
		}
	}

	priceFloat, _ := price.Float64()
	if err := s.opts.Rules.Check(ProductRuleEnv{
		Name:        name,
		Description: input.Description,
		Price:       priceFloat,
		Stock:       input.Stock,
		HasCategory: categoryID != nil,
		Images:      len(images),
		Specs:       specs.Plain(),
	}); err != nil {
		return err
	}

	product.Name = name
	product.Description = strings.TrimSpace(input.Description)
	product.Price = models.NewMoneyFromDecimal(price)
	product.CategoryID = categoryID
	product.Stock = input.Stock
	product.MainImage = strings.TrimSpace(input.MainImage)
	product.Images = images
	product.Specifications = specs
	return nil
}

// categoryReference 分类在校验后被并发删除时，外键兜底
func categoryReference(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrProductCategoryAbsent
	}
	return ClassifyDBError(err)
}

func productFilterKey(filter repository.ProductListFilter) string {
	values := url.Values{}
	values.Set("page", strconv.Itoa(filter.Page))
	values.Set("page_size", strconv.Itoa(filter.PageSize))
	if filter.CategoryID != nil {
		values.Set("category_id", strconv.FormatUint(uint64(*filter.CategoryID), 10))
	}
	values.Set("category", strings.TrimSpace(filter.CategorySlug))
	values.Set("search", strings.ToLower(strings.TrimSpace(filter.Search)))
	return values.Encode()
}
