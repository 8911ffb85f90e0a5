package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cabinstay/internal/models"

	"gorm.io/gorm"
)

func openSchemaTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func defaultSeeds() []models.Category {
	return []models.Category{
		{Name: "Shower Cabins", Slug: "shower-cabins"},
		{Name: "Accessories", Slug: "accessories"},
		{Name: "Parts", Slug: "parts"},
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db := openSchemaTestDB(t)
	manager := NewManager(db, defaultSeeds())
	ctx := context.Background()

	first, err := manager.EnsureSchema(ctx)
	if err != nil {
		t.Fatalf("first ensure schema failed: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("expected 5 applied migrations, got %d", len(first))
	}
	second, err := manager.EnsureSchema(ctx)
	if err != nil {
		t.Fatalf("second ensure schema failed: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no migrations on second run, got %d", len(second))
	}
	if _, err := manager.EnsureSchema(ctx); err != nil {
		t.Fatalf("third ensure schema failed: %v", err)
	}

	for _, table := range []string{"categories", "products", "room_types", "rooms", "reservations", "visitor_stats", "page_views", "admins", "admin_audit_logs"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
	if !db.Migrator().HasIndex("visitor_stats", "idx_visitor_stats_date") {
		t.Fatalf("expected unique date index on visitor_stats")
	}

	for _, seed := range defaultSeeds() {
		var count int64
		if err := db.Model(&models.Category{}).Where("slug = ?", seed.Slug).Count(&count).Error; err != nil {
			t.Fatalf("count seed failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected seed %s exactly once, got %d", seed.Slug, count)
		}
	}

	statuses, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, status := range statuses {
		if !status.Applied {
			t.Fatalf("expected version %d applied", status.Version)
		}
	}
}

func TestEnsureSchemaNormalizesLegacyCategoryText(t *testing.T) {
	db := openSchemaTestDB(t)
	legacy := []string{
		`CREATE TABLE categories (id integer PRIMARY KEY AUTOINCREMENT, name text NOT NULL)`,
		`INSERT INTO categories (name) VALUES ('Shower Cabins'), ('Old Stuff')`,
		`CREATE TABLE products (id integer PRIMARY KEY AUTOINCREMENT, name text NOT NULL, price decimal(20,2) NOT NULL, category text)`,
		`INSERT INTO products (name, price, category) VALUES ('Corner cabin', 499.00, 'Old Stuff'), ('Hose', 12.50, 'Brand New'), ('Loose', 3.00, NULL)`,
	}
	for _, stmt := range legacy {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare legacy schema failed: %v", err)
		}
	}

	if _, err := NewManager(db, defaultSeeds()).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema on legacy db failed: %v", err)
	}

	if db.Migrator().HasColumn("products", "category") {
		t.Fatalf("legacy text category column should be dropped")
	}
	if !db.Migrator().HasColumn("categories", "slug") {
		t.Fatalf("categories should be rebuilt with slug")
	}

	var product models.Product
	if err := db.Where("name = ?", "Corner cabin").First(&product).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	var oldStuff models.Category
	if err := db.Where("slug = ?", "old-stuff").First(&oldStuff).Error; err != nil {
		t.Fatalf("legacy category should keep a generated slug: %v", err)
	}
	if product.CategoryID == nil || *product.CategoryID != oldStuff.ID {
		t.Fatalf("expected product category_id=%d, got %v", oldStuff.ID, product.CategoryID)
	}

	var brandNew models.Category
	if err := db.Where("slug = ?", "brand-new").First(&brandNew).Error; err != nil {
		t.Fatalf("unknown legacy text category should be created: %v", err)
	}

	var loose models.Product
	if err := db.Where("name = ?", "Loose").First(&loose).Error; err != nil {
		t.Fatalf("load loose product failed: %v", err)
	}
	if loose.CategoryID != nil {
		t.Fatalf("product without legacy category should stay detached")
	}

	var total int64
	db.Model(&models.Category{}).Count(&total)
	// shower-cabins(legacy) + old-stuff + brand-new + accessories + parts
	if total != 5 {
		t.Fatalf("expected 5 categories after rebuild, got %d", total)
	}
}

func TestEnsureSchemaLegacyRebuildKeepsProductCategory(t *testing.T) {
	db := openSchemaTestDB(t)
	legacy := []string{
		`CREATE TABLE categories (id integer PRIMARY KEY AUTOINCREMENT, name text NOT NULL)`,
		`INSERT INTO categories (name) VALUES ('Shower Cabins'), ('Trays')`,
		`CREATE TABLE products (id integer PRIMARY KEY AUTOINCREMENT, name text NOT NULL, price decimal(20,2) NOT NULL,
			category_id integer REFERENCES categories(id) ON DELETE SET NULL)`,
		`INSERT INTO products (name, price, category_id) VALUES ('Stone tray', 89.00, 2), ('Loose', 3.00, NULL)`,
	}
	for _, stmt := range legacy {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare legacy schema failed: %v", err)
		}
	}

	if _, err := NewManager(db, defaultSeeds()).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema on legacy db failed: %v", err)
	}

	var tray models.Product
	if err := db.Where("name = ?", "Stone tray").First(&tray).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	if tray.CategoryID == nil || *tray.CategoryID != 2 {
		t.Fatalf("rebuild should keep product category_id=2, got %v", tray.CategoryID)
	}
	var trays models.Category
	if err := db.First(&trays, 2).Error; err != nil {
		t.Fatalf("load rebuilt category failed: %v", err)
	}
	if trays.Slug != "trays" {
		t.Fatalf("expected slug trays, got %q", trays.Slug)
	}

	var loose models.Product
	if err := db.Where("name = ?", "Loose").First(&loose).Error; err != nil {
		t.Fatalf("load loose product failed: %v", err)
	}
	if loose.CategoryID != nil {
		t.Fatalf("detached product should stay detached, got %v", *loose.CategoryID)
	}

	// 外键仍然生效：删除分类后引用置空
	if err := db.Exec("DELETE FROM categories WHERE id = 2").Error; err != nil {
		t.Fatalf("delete category failed: %v", err)
	}
	if err := db.First(&tray, tray.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if tray.CategoryID != nil {
		t.Fatalf("foreign key should still nullify the reference, got %v", *tray.CategoryID)
	}
}

func TestEnsureSchemaRollsBackFailedVersion(t *testing.T) {
	db := openSchemaTestDB(t)
	// 同名视图会让建表失败，整个版本必须回滚
	if err := db.Exec(`CREATE VIEW rooms AS SELECT 1 AS id`).Error; err != nil {
		t.Fatalf("create blocking view failed: %v", err)
	}

	manager := NewManager(db, defaultSeeds())
	_, err := manager.EnsureSchema(context.Background())
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if db.Migrator().HasTable("room_types") {
		t.Fatalf("room_types from the failed version must not be committed")
	}
	if !db.Migrator().HasTable("products") {
		t.Fatalf("earlier versions should remain applied")
	}

	statuses, err := manager.Status(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, status := range statuses {
		if status.Version >= 3 && status.Applied {
			t.Fatalf("version %d should not be recorded as applied", status.Version)
		}
	}
}

func TestUniqueSlug(t *testing.T) {
	used := map[string]struct{}{}
	if got := uniqueSlug("parts", 1, used); got != "parts" {
		t.Fatalf("unexpected slug %s", got)
	}
	if got := uniqueSlug("parts", 2, used); got != "parts-2" {
		t.Fatalf("unexpected deduplicated slug %s", got)
	}
	if got := uniqueSlug("", 7, used); got != "category-7" {
		t.Fatalf("unexpected fallback slug %s", got)
	}
}
