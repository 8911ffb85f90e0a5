package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestProductService(t *testing.T, db *gorm.DB, cache CatalogCache, cfg config.CatalogConfig) *ProductService {
	t.Helper()
	opts, err := ProductOptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("build product options failed: %v", err)
	}
	return NewProductService(repository.NewProductRepository(db), repository.NewCategoryRepository(db), cache, opts)
}

func validProductInput(name string) ProductInput {
	return ProductInput{
		Name:  name,
		Price: decimal.RequireFromString("129.90"),
		Stock: 2,
		Specifications: models.Specifications{
			"beds": models.NumberSpec("2"),
			"view": models.StringSpec("lake"),
		},
	}
}

func TestProductServiceCreateWithCategory(t *testing.T) {
	db := openServiceTestDB(t)
	categories := newTestCategoryService(db, nil)
	svc := newTestProductService(t, db, nil, config.CatalogConfig{})
	ctx := context.Background()

	category, err := categories.Create(ctx, CategoryInput{Name: ptr("Cabins")})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	input := validProductInput("Pine cabin")
	input.CategoryID = &category.ID
	input.Images = []string{" /uploads/a.png ", ""}

	item, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if item.CategoryName == nil || *item.CategoryName != "Cabins" {
		t.Fatalf("expected category name, got %+v", item.CategoryName)
	}
	if !item.Price.Decimal.Equal(decimal.RequireFromString("129.90")) {
		t.Fatalf("unexpected price: %s", item.Price.String())
	}
	if len(item.Images) != 1 || item.Images[0] != "/uploads/a.png" {
		t.Fatalf("unexpected images: %v", item.Images)
	}
}

func TestProductServiceRejectsMissingCategory(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newTestProductService(t, db, nil, config.CatalogConfig{})

	input := validProductInput("Ghost cabin")
	input.CategoryID = ptr(uint(404))
	_, err := svc.Create(context.Background(), input)
	if !errors.Is(err, ErrProductCategoryAbsent) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected category absent, got %v", err)
	}

	var count int64
	if err := db.Model(&models.Product{}).Count(&count).Error; err != nil {
		t.Fatalf("count products failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no product rows, got %d", count)
	}
}

func TestProductServiceValidation(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newTestProductService(t, db, nil, config.CatalogConfig{
		SpecificationSchema: map[string]string{"beds": "number", "pets": "bool"},
		RequiredSpecKeys:    []string{"beds"},
		ProductRules:        []string{"Stock <= 100", "Specs.beds <= 6"},
	})
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*ProductInput)
		want   error
	}{
		{"empty name", func(in *ProductInput) { in.Name = " " }, ErrProductNameRequired},
		{"zero price", func(in *ProductInput) { in.Price = decimal.Zero }, ErrProductPriceInvalid},
		{"negative stock", func(in *ProductInput) { in.Stock = -1 }, ErrProductStockInvalid},
		{"missing required spec", func(in *ProductInput) { delete(in.Specifications, "beds") }, ErrSpecificationInvalid},
		{"wrong spec kind", func(in *ProductInput) { in.Specifications["pets"] = models.StringSpec("yes") }, ErrSpecificationInvalid},
		{"stock rule", func(in *ProductInput) { in.Stock = 101 }, ErrRuleViolation},
		{"spec rule", func(in *ProductInput) { in.Specifications["beds"] = models.NumberSpec("8") }, ErrRuleViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validProductInput("Pine cabin")
			tc.mutate(&input)
			if _, err := svc.Create(ctx, input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := svc.Create(ctx, validProductInput("Pine cabin")); err != nil {
		t.Fatalf("valid product rejected: %v", err)
	}
}

func TestProductOptionsFromConfigRejectsBadRules(t *testing.T) {
	if _, err := ProductOptionsFromConfig(config.CatalogConfig{SpecificationSchema: map[string]string{"beds": "array"}}); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if _, err := ProductOptionsFromConfig(config.CatalogConfig{ProductRules: []string{"Price + 1"}}); err == nil {
		t.Fatalf("expected non-bool rule to fail compilation")
	}
}

func TestProductServiceUpdateAndDelete(t *testing.T) {
	db := openServiceTestDB(t)
	cache := newRecordingCatalogCache()
	svc := newTestProductService(t, db, cache, config.CatalogConfig{})
	ctx := context.Background()

	created, err := svc.Create(ctx, validProductInput("Pine cabin"))
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	input := validProductInput("Cedar cabin")
	input.Stock = 0
	updated, err := svc.Update(ctx, created.ID, input)
	if err != nil {
		t.Fatalf("update product failed: %v", err)
	}
	if updated.Name != "Cedar cabin" || updated.Stock != 0 || updated.CategoryName != nil {
		t.Fatalf("unexpected updated product: %+v", updated)
	}
	if _, err := svc.Update(ctx, 999, input); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete product failed: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if cache.bumps != 3 {
		t.Fatalf("expected 3 catalog bumps, got %d", cache.bumps)
	}
}

func TestProductServiceListPublicUsesCacheUntilWrite(t *testing.T) {
	db := openServiceTestDB(t)
	cache := newRecordingCatalogCache()
	svc := newTestProductService(t, db, cache, config.CatalogConfig{ListCacheTTLSeconds: 60})
	ctx := context.Background()

	if _, err := svc.Create(ctx, validProductInput("Pine cabin")); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	filter := repository.ProductListFilter{Page: 1, PageSize: 10}
	if _, total, err := svc.ListPublic(ctx, filter); err != nil || total != 1 {
		t.Fatalf("first list failed: total=%d err=%v", total, err)
	}

	// 绕过服务直接写库，缓存命中时仍返回旧结果
	extra := &models.Product{Name: "Birch cabin", Price: models.NewMoneyFromDecimal(decimal.NewFromInt(80))}
	if err := db.Omit("Category").Create(extra).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if _, total, err := svc.ListPublic(ctx, filter); err != nil || total != 1 {
		t.Fatalf("expected cached total 1, got total=%d err=%v", total, err)
	}

	if _, err := svc.Create(ctx, validProductInput("Oak cabin")); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if _, total, err := svc.ListPublic(ctx, filter); err != nil || total != 3 {
		t.Fatalf("expected fresh total 3 after write, got total=%d err=%v", total, err)
	}
}

func TestProductServiceIterate(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newTestProductService(t, db, nil, config.CatalogConfig{})
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		if _, err := svc.Create(ctx, validProductInput(name)); err != nil {
			t.Fatalf("create product failed: %v", err)
		}
	}

	names := make([]string, 0, 3)
	for item, err := range svc.Iterate(ctx, repository.ProductListFilter{}) {
		if err != nil {
			t.Fatalf("iterate failed: %v", err)
		}
		names = append(names, item.Name)
	}
	if len(names) != 3 || names[0] != "A" || names[2] != "C" {
		t.Fatalf("unexpected iteration order: %v", names)
	}
}
