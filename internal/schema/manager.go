// Package schema 管理表结构、索引与约束，并以版本化迁移的方式幂等地应用。
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/models"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMigrationFailed 迁移单元执行失败（已整体回滚）
var ErrMigrationFailed = errors.New("schema migration failed")

// Manager 表结构管理器
type Manager struct {
	db    *gorm.DB
	seeds []models.Category
}

// Applied 一次迁移执行结果
type Applied struct {
	Version  int64         `json:"version"`
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// VersionStatus 迁移版本状态
type VersionStatus struct {
	Version   int64     `json:"version"`
	Name      string    `json:"name"`
	Applied   bool      `json:"applied"`
	AppliedAt time.Time `json:"applied_at,omitempty"`
}

// NewManager 创建表结构管理器，seeds 为默认分类
func NewManager(db *gorm.DB, seeds []models.Category) *Manager {
	return &Manager{db: db, seeds: seeds}
}

// EnsureSchema 将数据库迁移到当前版本并补齐默认分类，可重复调用
func (m *Manager) EnsureSchema(ctx context.Context) ([]Applied, error) {
	provider, err := m.provider()
	if err != nil {
		return nil, err
	}
	results, err := provider.Up(ctx)
	applied := make([]Applied, 0, len(results))
	for _, result := range results {
		if result == nil || result.Source == nil || result.Error != nil {
			continue
		}
		applied = append(applied, Applied{
			Version:  result.Source.Version,
			Name:     migrationName(result.Source.Version),
			Duration: result.Duration,
		})
	}
	if err != nil {
		logger.Errorw("schema_migration_failed", "error", err)
		return applied, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}
	for _, item := range applied {
		logger.Infow("schema_migration_applied", "version", item.Version, "name", item.Name, "duration_ms", item.Duration.Milliseconds())
	}

	if err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return seedCategories(tx, m.seeds)
	}); err != nil {
		logger.Errorw("schema_seed_failed", "error", err)
		return applied, fmt.Errorf("%w: seed categories: %v", ErrMigrationFailed, err)
	}
	return applied, nil
}

// Status 返回每个迁移版本的应用状态
func (m *Manager) Status(ctx context.Context) ([]VersionStatus, error) {
	provider, err := m.provider()
	if err != nil {
		return nil, err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]VersionStatus, 0, len(statuses))
	for _, status := range statuses {
		if status == nil || status.Source == nil {
			continue
		}
		out = append(out, VersionStatus{
			Version:   status.Source.Version,
			Name:      migrationName(status.Source.Version),
			Applied:   status.State == goose.StateApplied,
			AppliedAt: status.AppliedAt,
		})
	}
	return out, nil
}

func (m *Manager) provider() (*goose.Provider, error) {
	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, err
	}
	opts := []goose.ProviderOption{
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(m.migrations()...),
	}
	dialect, err := gooseDialect(models.DialectName(m.db))
	if err != nil {
		return nil, err
	}
	if dialect == goose.DialectPostgres {
		// 多实例同时启动时串行执行迁移
		locker, err := lock.NewPostgresSessionLocker()
		if err != nil {
			return nil, err
		}
		opts = append(opts, goose.WithSessionLocker(locker))
	}
	return goose.NewProvider(dialect, sqlDB, nil, opts...)
}

func gooseDialect(name string) (goose.Dialect, error) {
	switch name {
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3, nil
	case "postgres":
		return goose.DialectPostgres, nil
	case "mysql":
		return goose.DialectMySQL, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect: %s", name)
	}
}

// step 为单个迁移版本，在同一事务内执行
type step struct {
	version int64
	name    string
	up      func(tx *gorm.DB) error
}

func (m *Manager) steps() []step {
	return []step{
		{version: 1, name: "create_categories", up: m.createCategories},
		{version: 2, name: "create_products", up: createProducts},
		{version: 3, name: "create_booking", up: createBooking},
		{version: 4, name: "create_analytics", up: createAnalytics},
		{version: 5, name: "create_admin", up: createAdmin},
	}
}

func migrationName(version int64) string {
	for _, s := range (&Manager{}).steps() {
		if s.version == version {
			return s.name
		}
	}
	return ""
}

func (m *Manager) migrations() []*goose.Migration {
	steps := m.steps()
	out := make([]*goose.Migration, 0, len(steps))
	for _, s := range steps {
		up := s.up
		out = append(out, goose.NewGoMigration(s.version, &goose.GoFunc{
			RunTx: func(ctx context.Context, tx *sql.Tx) error {
				return up(m.bind(ctx, tx))
			},
		}, nil))
	}
	return out
}

// bind 让 gorm 会话复用 goose 开启的事务，迁移语句与版本记录同提交同回滚
func (m *Manager) bind(ctx context.Context, tx *sql.Tx) *gorm.DB {
	gdb := m.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	gdb.Statement.ConnPool = tx
	return gdb
}

// tableSpec 描述一张表的幂等创建方式
type tableSpec struct {
	model    interface{}
	additive []string // 表已存在时允许补齐的可空列（字段名）
	indexes  []string
}

func ensureTable(db *gorm.DB, spec tableSpec) error {
	m := db.Migrator()
	if !m.HasTable(spec.model) {
		return m.CreateTable(spec.model)
	}
	for _, field := range spec.additive {
		if m.HasColumn(spec.model, field) {
			continue
		}
		if err := m.AddColumn(spec.model, field); err != nil {
			return fmt.Errorf("add column %s: %w", field, err)
		}
	}
	for _, name := range spec.indexes {
		if m.HasIndex(spec.model, name) {
			continue
		}
		if err := m.CreateIndex(spec.model, name); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

func seedCategories(tx *gorm.DB, seeds []models.Category) error {
	for _, seed := range seeds {
		row := categoryV1{
			Name:        strings.TrimSpace(seed.Name),
			Slug:        strings.TrimSpace(seed.Slug),
			Description: seed.Description,
		}
		if row.Slug == "" {
			row.Slug = models.Slugify(row.Name)
		}
		if row.Name == "" || row.Slug == "" {
			continue
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", row.Slug, err)
		}
	}
	return nil
}
