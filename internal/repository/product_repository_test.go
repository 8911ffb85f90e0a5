package repository

import (
	"context"
	"testing"
)

func TestProductIterateIsRestartable(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	category := createTestCategory(t, db, "Cabins")
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		createTestProduct(t, db, name, &category.ID)
	}

	collect := func() []string {
		names := make([]string, 0)
		for item, err := range repo.Iterate(ctx, ProductListFilter{}) {
			if err != nil {
				t.Fatalf("iterate failed: %v", err)
			}
			names = append(names, item.Name)
		}
		return names
	}
	first := collect()
	second := collect()
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 items per pass, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("passes differ at %d: %s vs %s", i, first[i], second[i])
		}
	}
	if first[0] != "Alpha" || first[2] != "Charlie" {
		t.Fatalf("expected id order, got %v", first)
	}

	seen := 0
	for _, err := range repo.Iterate(ctx, ProductListFilter{}) {
		if err != nil {
			t.Fatalf("iterate failed: %v", err)
		}
		seen++
		if seen == 1 {
			break
		}
	}
	if seen != 1 {
		t.Fatalf("expected early stop after 1, got %d", seen)
	}

	// 提前退出后连接应已释放
	if _, _, err := repo.List(ctx, ProductListFilter{}); err != nil {
		t.Fatalf("list after early break failed: %v", err)
	}
}

func TestProductListFiltersAndJoinsCategory(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	cabins := createTestCategory(t, db, "Cabins")
	parts := createTestCategory(t, db, "Parts")
	createTestProduct(t, db, "Cabin 100%", &cabins.ID)
	createTestProduct(t, db, "Cabin 90", &cabins.ID)
	createTestProduct(t, db, "Seal", &parts.ID)
	createTestProduct(t, db, "Orphan", nil)

	items, total, err := repo.List(ctx, ProductListFilter{CategorySlug: "cabins"})
	if err != nil {
		t.Fatalf("list by slug failed: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 cabins, got total=%d len=%d", total, len(items))
	}
	if items[0].CategoryName == nil || *items[0].CategoryName != "Cabins" {
		t.Fatalf("expected joined category name, got %+v", items[0].CategoryName)
	}

	items, total, err = repo.List(ctx, ProductListFilter{Search: "100%"})
	if err != nil {
		t.Fatalf("list by search failed: %v", err)
	}
	if total != 1 || items[0].Name != "Cabin 100%" {
		t.Fatalf("wildcard should be literal, got total=%d items=%+v", total, items)
	}

	items, total, err = repo.List(ctx, ProductListFilter{Page: 2, PageSize: 3})
	if err != nil {
		t.Fatalf("list page failed: %v", err)
	}
	if total != 4 || len(items) != 1 || items[0].Name != "Orphan" {
		t.Fatalf("unexpected second page: total=%d items=%+v", total, items)
	}
	if items[0].CategoryName != nil {
		t.Fatalf("uncategorized product should have nil category name")
	}
}

func TestProductGetByIDMissingReturnsNil(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	item, err := repo.GetByID(ctx, 999)
	if err != nil {
		t.Fatalf("get missing failed: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil, got %+v", item)
	}

	category := createTestCategory(t, db, "Cabins")
	product := createTestProduct(t, db, "Quadrant", &category.ID)
	item, err = repo.GetByID(ctx, product.ID)
	if err != nil || item == nil {
		t.Fatalf("get existing failed: %v", err)
	}
	if item.CategorySlug == nil || *item.CategorySlug != "cabins" {
		t.Fatalf("expected category slug, got %+v", item.CategorySlug)
	}
	if !item.Price.IsPositive() {
		t.Fatalf("expected price to round-trip, got %s", item.Price.String())
	}
}
