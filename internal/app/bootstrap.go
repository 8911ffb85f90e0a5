package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/provider"
	"github.com/cabinstay/internal/router"
	"github.com/cabinstay/internal/schema"
	"github.com/cabinstay/internal/worker"

	"gorm.io/gorm"
)

// OpenDatabase 打开数据库连接；sqlite 文件库会先创建所在目录
func OpenDatabase(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	if err := ensureSQLiteDir(cfg.Driver, cfg.DSN); err != nil {
		return nil, err
	}
	return models.OpenDB(models.DBOptions{
		Driver:      cfg.Driver,
		DSN:         cfg.DSN,
		Debug:       debug,
		SlowQueryMS: cfg.SlowQueryMS,
		Pool: models.DBPoolConfig{
			MaxOpenConns:           cfg.Pool.MaxOpenConns,
			MaxIdleConns:           cfg.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: cfg.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: cfg.Pool.ConnMaxIdleTimeSeconds,
		},
	})
}

func ensureSQLiteDir(driver, dsn string) error {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
	default:
		return nil
	}
	path := strings.TrimPrefix(strings.SplitN(dsn, "?", 2)[0], "file:")
	if path == "" || strings.Contains(dsn, "mode=memory") || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// SeedCategories 将配置中的默认分类转换为模型
func SeedCategories(seeds []config.SeedCategory) []models.Category {
	categories := make([]models.Category, 0, len(seeds))
	for _, seed := range seeds {
		name := strings.TrimSpace(seed.Name)
		slug := strings.TrimSpace(seed.Slug)
		if slug == "" {
			slug = models.Slugify(name)
		}
		if name == "" || slug == "" {
			continue
		}
		categories = append(categories, models.Category{Name: name, Slug: slug, Description: seed.Description})
	}
	return categories
}

// Migrate 执行表结构迁移与默认分类补齐
func Migrate(ctx context.Context, db *gorm.DB, cfg *config.Config) ([]schema.Applied, error) {
	applied, err := schema.NewManager(db, SeedCategories(cfg.Catalog.SeedCategories)).EnsureSchema(ctx)
	if err != nil {
		return applied, fmt.Errorf("ensure schema: %w", err)
	}
	return applied, nil
}

// BuildRunner 构建服务运行器；数据库由运行器在停止后关闭
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	db, err := OpenDatabase(cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	runner, err := buildRunner(cfg, mode, db)
	if err != nil {
		_ = models.CloseDB(db)
		return nil, err
	}
	runner.OnShutdown(func() error { return models.CloseDB(db) })
	return runner, nil
}

func buildRunner(cfg *config.Config, mode string, db *gorm.DB) (*Runner, error) {
	ctx := context.Background()
	if _, err := Migrate(ctx, db, cfg); err != nil {
		return nil, err
	}

	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		return nil, err
	}
	if admin, err := container.AuthService.EnsureBootstrapAdmin(ctx, cfg.Bootstrap); err != nil {
		logger.Warnw("bootstrap_admin_failed", "error", err)
	} else if admin != nil {
		logger.Infow("bootstrap_admin_created", "admin_id", admin.ID, "username", admin.Username)
	}

	var services []Service

	// HTTP 服务
	if runsAPI(mode) {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 队列消费与周期汇总；队列未启用时汇总同步执行
	if runsWorker(mode) {
		if container.QueueClient.Enabled() {
			consumer := worker.NewConsumer(container.AnalyticsService)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				_ = container.Close()
				return nil, err
			}
			services = append(services, workerService)
		}
		services = append(services, worker.NewRollupScheduler(container.AnalyticsService, container.QueueClient, cfg.Analytics))
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode, "services", runner.Services())
	return RunWithOptions(runner, opts)
}
