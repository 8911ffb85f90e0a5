package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cabinstay/internal/models"

	"gorm.io/gorm"
)

const categoriesRebuildTable = "categories_rebuild"

// createCategories 建分类表；旧库缺少 slug 列时整表重建并回填默认分类
func (m *Manager) createCategories(tx *gorm.DB) error {
	migrator := tx.Migrator()
	if migrator.HasTable("categories") && !migrator.HasColumn("categories", "slug") {
		return m.rebuildLegacyCategories(tx)
	}
	return ensureTable(tx, tableSpec{
		model:    &categoryV1{},
		additive: []string{"Description", "CreatedAt", "UpdatedAt"},
		indexes:  []string{"idx_categories_slug"},
	})
}

type legacyCategory struct {
	ID          uint
	Name        string
	Description string
}

// rebuildLegacyCategories 在当前事务内完成：建新表 -> 拷贝 -> 删旧表 -> 改名 -> 回填默认分类
func (m *Manager) rebuildLegacyCategories(tx *gorm.DB) error {
	migrator := tx.Migrator()
	columns := "id, name"
	if migrator.HasColumn("categories", "description") {
		columns += ", description"
	}
	var legacy []legacyCategory
	if err := tx.Table("categories").Select(columns).Order("id ASC").Scan(&legacy).Error; err != nil {
		return fmt.Errorf("read legacy categories: %w", err)
	}

	if migrator.HasTable(categoriesRebuildTable) {
		if err := migrator.DropTable(categoriesRebuildTable); err != nil {
			return err
		}
	}
	if err := tx.Table(categoriesRebuildTable).Migrator().CreateTable(&categoryV1{}); err != nil {
		return fmt.Errorf("create rebuilt categories: %w", err)
	}

	used := make(map[string]struct{}, len(legacy))
	for _, row := range legacy {
		slug := uniqueSlug(models.Slugify(row.Name), row.ID, used)
		rebuilt := categoryV1{ID: row.ID, Name: row.Name, Slug: slug, Description: row.Description}
		if err := tx.Table(categoriesRebuildTable).Create(&rebuilt).Error; err != nil {
			return fmt.Errorf("copy legacy category %d: %w", row.ID, err)
		}
	}

	// 删旧表会触发商品外键的 ON DELETE 动作，先摘下引用，改名后按原 ID 恢复
	refs, err := detachProductReferences(tx)
	if err != nil {
		return err
	}
	if err := migrator.DropTable("categories"); err != nil {
		return fmt.Errorf("drop legacy categories: %w", err)
	}
	if err := migrator.RenameTable(categoriesRebuildTable, "categories"); err != nil {
		return fmt.Errorf("rename rebuilt categories: %w", err)
	}
	if models.DialectName(tx) == "postgres" {
		if err := tx.Exec("SELECT setval(pg_get_serial_sequence('categories', 'id'), COALESCE((SELECT MAX(id) FROM categories), 1))").Error; err != nil {
			return fmt.Errorf("reset categories sequence: %w", err)
		}
	}
	if err := restoreProductReferences(tx, refs); err != nil {
		return err
	}
	return seedCategories(tx, m.seeds)
}

// detachProductReferences 记录商品的 category_id 并置空，返回 category_id -> 商品 ID。
// postgres/mysql 还会删除指向 categories 的外键约束，由 v2 按新表重新创建。
func detachProductReferences(tx *gorm.DB) (map[uint][]uint, error) {
	migrator := tx.Migrator()
	if !migrator.HasTable("products") || !migrator.HasColumn("products", "category_id") {
		return nil, nil
	}
	var rows []struct {
		ID         uint
		CategoryID uint
	}
	if err := tx.Table("products").
		Select("id, category_id").
		Where("category_id IS NOT NULL").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("read product category references: %w", err)
	}
	refs := make(map[uint][]uint)
	for _, row := range rows {
		refs[row.CategoryID] = append(refs[row.CategoryID], row.ID)
	}

	if err := dropForeignKeysTo(tx, "products", "categories"); err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		if err := tx.Exec("UPDATE products SET category_id = NULL WHERE category_id IS NOT NULL").Error; err != nil {
			return nil, fmt.Errorf("detach product categories: %w", err)
		}
	}
	return refs, nil
}

func restoreProductReferences(tx *gorm.DB, refs map[uint][]uint) error {
	for categoryID, productIDs := range refs {
		if err := tx.Table("products").
			Where("id IN ?", productIDs).
			Update("category_id", categoryID).Error; err != nil {
			return fmt.Errorf("restore products for category %d: %w", categoryID, err)
		}
	}
	return nil
}

// dropForeignKeysTo 删除 table 上引用 parent 的外键；sqlite 的外键随表定义存在，无需处理
func dropForeignKeysTo(tx *gorm.DB, table, parent string) error {
	var names []string
	var drop string
	switch models.DialectName(tx) {
	case "postgres":
		err := tx.Raw(`SELECT conname FROM pg_constraint
			WHERE contype = 'f' AND conrelid = ?::regclass AND confrelid = ?::regclass`, table, parent).
			Scan(&names).Error
		if err != nil {
			return fmt.Errorf("list %s foreign keys: %w", table, err)
		}
		drop = `ALTER TABLE %s DROP CONSTRAINT "%s"`
	case "mysql":
		err := tx.Raw(`SELECT CONSTRAINT_NAME FROM information_schema.KEY_COLUMN_USAGE
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME = ?`, table, parent).
			Scan(&names).Error
		if err != nil {
			return fmt.Errorf("list %s foreign keys: %w", table, err)
		}
		drop = "ALTER TABLE %s DROP FOREIGN KEY `%s`"
	default:
		return nil
	}
	for _, name := range names {
		if err := tx.Exec(fmt.Sprintf(drop, table, name)).Error; err != nil {
			return fmt.Errorf("drop foreign key %s: %w", name, err)
		}
	}
	return nil
}

func uniqueSlug(base string, id uint, used map[string]struct{}) string {
	if base == "" {
		base = fmt.Sprintf("category-%d", id)
	}
	slug := base
	for n := 2; ; n++ {
		if _, taken := used[slug]; !taken {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	used[slug] = struct{}{}
	return slug
}

// createProducts 建商品表；旧库的文本 category 列迁移为 category_id 外键后删除
func createProducts(tx *gorm.DB) error {
	if err := ensureTable(tx, tableSpec{
		model:    &productV2{},
		additive: []string{"Description", "CategoryID", "Stock", "MainImage", "Images", "Specifications", "CreatedAt", "UpdatedAt"},
		indexes:  []string{"idx_products_name", "idx_products_category_id", "idx_products_created_at"},
	}); err != nil {
		return err
	}

	migrator := tx.Migrator()
	if migrator.HasColumn("products", "category") {
		if err := backfillProductCategory(tx); err != nil {
			return err
		}
		if err := tx.Exec("ALTER TABLE products DROP COLUMN category").Error; err != nil {
			return fmt.Errorf("drop legacy products.category: %w", err)
		}
	}

	// SQLite 不支持对已有表追加外键；删除分类时由仓储层在事务内先置空引用
	if models.DialectName(tx) != "sqlite" && !migrator.HasConstraint(&productV2{}, "Category") {
		if err := migrator.CreateConstraint(&productV2{}, "Category"); err != nil {
			return fmt.Errorf("create products category constraint: %w", err)
		}
	}
	return nil
}

func backfillProductCategory(tx *gorm.DB) error {
	var names []string
	if err := tx.Table("products").
		Where("category IS NOT NULL AND category <> '' AND category_id IS NULL").
		Distinct().
		Pluck("category", &names).Error; err != nil {
		return fmt.Errorf("read legacy product categories: %w", err)
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		categoryID, err := resolveLegacyCategory(tx, name)
		if err != nil {
			return err
		}
		if err := tx.Table("products").
			Where("category = ? AND category_id IS NULL", name).
			Update("category_id", categoryID).Error; err != nil {
			return fmt.Errorf("backfill products for %q: %w", name, err)
		}
	}
	return nil
}

func resolveLegacyCategory(tx *gorm.DB, name string) (uint, error) {
	slug := models.Slugify(name)
	var existing categoryV1
	err := tx.Where("slug = ? OR LOWER(name) = LOWER(?)", slug, name).Order("id ASC").First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if slug == "" {
		var count int64
		if err := tx.Model(&categoryV1{}).Count(&count).Error; err != nil {
			return 0, err
		}
		slug = fmt.Sprintf("category-%d", count+1)
	}
	created := categoryV1{Name: name, Slug: slug}
	if err := tx.Create(&created).Error; err != nil {
		return 0, fmt.Errorf("create category for %q: %w", name, err)
	}
	return created.ID, nil
}
