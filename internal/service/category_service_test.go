package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/repository"
	"github.com/cabinstay/internal/schema"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := models.OpenDB(models.DBOptions{
		Driver: "sqlite",
		DSN:    dsn,
		Pool:   models.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	t.Cleanup(func() { _ = models.CloseDB(db) })
	if _, err := schema.NewManager(db, nil).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema failed: %v", err)
	}
	return db
}

// recordingCatalogCache 记录版本递增次数的内存缓存
type recordingCatalogCache struct {
	bumps   int
	entries map[string]interface{}
	reads   int
}

func newRecordingCatalogCache() *recordingCatalogCache {
	return &recordingCatalogCache{entries: map[string]interface{}{}}
}

func (c *recordingCatalogCache) BumpCatalogVersion(context.Context) error {
	c.bumps++
	c.entries = map[string]interface{}{}
	return nil
}

func (c *recordingCatalogCache) GetCatalogList(_ context.Context, kind, filter string, dest interface{}) (bool, error) {
	c.reads++
	value, ok := c.entries[kind+"|"+filter]
	if !ok {
		return false, nil
	}
	page, ok := dest.(*ProductPage)
	if !ok {
		return false, nil
	}
	*page = value.(ProductPage)
	return true, nil
}

func (c *recordingCatalogCache) SetCatalogList(_ context.Context, kind, filter string, value interface{}, _ time.Duration) error {
	c.entries[kind+"|"+filter] = value
	return nil
}

func ptr[T any](value T) *T {
	return &value
}

func newTestCategoryService(db *gorm.DB, cache CatalogCache) *CategoryService {
	return NewCategoryService(repository.NewCategoryRepository(db), cache)
}

func TestCategoryServiceCreateGeneratesSlug(t *testing.T) {
	db := openServiceTestDB(t)
	cache := newRecordingCatalogCache()
	svc := newTestCategoryService(db, cache)

	category, err := svc.Create(context.Background(), CategoryInput{Name: ptr("  Lake Cabins ")})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	if category.Name != "Lake Cabins" || category.Slug != "lake-cabins" {
		t.Fatalf("unexpected category: %+v", category)
	}
	if cache.bumps != 1 {
		t.Fatalf("expected catalog version bump, got %d", cache.bumps)
	}
}

func TestCategoryServiceSlugConflictLeavesNoRow(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newTestCategoryService(db, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CategoryInput{Name: ptr("Cabins"), Slug: ptr("cabins")}); err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	_, err := svc.Create(ctx, CategoryInput{Name: ptr("Other"), Slug: ptr("cabins")})
	if !errors.Is(err, ErrSlugExists) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected slug conflict, got %v", err)
	}

	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		t.Fatalf("count categories failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 category, got %d", count)
	}
}

func TestCategoryServiceRejectsInvalidInput(t *testing.T) {
	svc := newTestCategoryService(openServiceTestDB(t), nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CategoryInput{Name: ptr("   ")}); !errors.Is(err, ErrCategoryNameRequired) {
		t.Fatalf("expected name required, got %v", err)
	}
	if _, err := svc.Create(ctx, CategoryInput{Name: ptr("Cabins"), Slug: ptr("Bad Slug!")}); !errors.Is(err, ErrSlugInvalid) {
		t.Fatalf("expected invalid slug, got %v", err)
	}
	if _, err := svc.Create(ctx, CategoryInput{Name: ptr("木屋")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unsluggable name, got %v", err)
	}
}

func TestCategoryServiceUpdateKeepsOwnSlug(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newTestCategoryService(db, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, CategoryInput{Name: ptr("Cabins")})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	if _, err := svc.Create(ctx, CategoryInput{Name: ptr("Suites")}); err != nil {
		t.Fatalf("create category failed: %v", err)
	}

	updated, err := svc.Update(ctx, first.ID, CategoryInput{Slug: ptr("cabins"), Description: ptr(" by the lake ")})
	if err != nil {
		t.Fatalf("update with own slug failed: %v", err)
	}
	if updated.Description != "by the lake" {
		t.Fatalf("unexpected description: %q", updated.Description)
	}
	if _, err := svc.Update(ctx, first.ID, CategoryInput{Slug: ptr("suites")}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected slug conflict, got %v", err)
	}
	if _, err := svc.Update(ctx, 999, CategoryInput{Name: ptr("x")}); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCategoryServiceDeleteDetachesProducts(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newTestCategoryService(db, nil)
	ctx := context.Background()

	category, err := svc.Create(ctx, CategoryInput{Name: ptr("Cabins")})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := &models.Product{
		Name:       "Pine cabin",
		Price:      models.NewMoneyFromDecimal(decimal.NewFromInt(150)),
		CategoryID: &category.ID,
	}
	if err := db.Omit("Category").Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	if err := svc.Delete(ctx, category.ID); err != nil {
		t.Fatalf("delete category failed: %v", err)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("product should survive category delete: %v", err)
	}
	if reloaded.CategoryID != nil {
		t.Fatalf("expected category_id cleared, got %v", *reloaded.CategoryID)
	}
	if err := svc.Delete(ctx, category.ID); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
