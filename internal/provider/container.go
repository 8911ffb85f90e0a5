package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cabinstay/internal/authz"
	"github.com/cabinstay/internal/cache"
	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/queue"
	"github.com/cabinstay/internal/repository"
	"github.com/cabinstay/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器；数据库句柄由调用方打开并显式传入
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	Cache       *cache.Store
	QueueClient *queue.Client

	// Repositories
	AdminRepo       repository.AdminRepository
	AuditLogRepo    repository.AuditLogRepository
	CategoryRepo    repository.CategoryRepository
	ProductRepo     repository.ProductRepository
	RoomRepo        repository.RoomRepository
	ReservationRepo repository.ReservationRepository
	AnalyticsRepo   repository.AnalyticsRepository

	// Services
	AuthzService     *authz.Service
	AuthService      *service.AuthService
	AuditService     *service.AuditService
	CaptchaService   *service.CaptchaService
	UploadService    *service.UploadService
	CategoryService  *service.CategoryService
	ProductService   *service.ProductService
	BookingService   *service.BookingService
	AnalyticsService *service.AnalyticsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if db == nil {
		return nil, errors.New("db is nil")
	}

	store := cache.New(&cfg.Redis)
	if store.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := store.Ping(ctx)
		cancel()
		if err != nil {
			logger.Warnw("provider_redis_ping_failed", "error", err)
		}
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		Cache:       store,
		QueueClient: queue.NewClient(&cfg.Queue),
	}
	c.initRepositories()
	if err := c.initServices(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.AdminRepo = repository.NewAdminRepository(c.DB)
	c.AuditLogRepo = repository.NewAuditLogRepository(c.DB)
	c.CategoryRepo = repository.NewCategoryRepository(c.DB)
	c.ProductRepo = repository.NewProductRepository(c.DB)
	c.RoomRepo = repository.NewRoomRepository(c.DB)
	c.ReservationRepo = repository.NewReservationRepository(c.DB)
	c.AnalyticsRepo = repository.NewAnalyticsRepository(c.DB)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		return fmt.Errorf("init authz: %w", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap builtin roles: %w", err)
	}
	c.AuthzService = authzService

	productOpts, err := service.ProductOptionsFromConfig(c.Config.Catalog)
	if err != nil {
		return fmt.Errorf("catalog rules: %w", err)
	}
	bookingOpts, err := service.BookingOptionsFromConfig(c.Config.Booking)
	if err != nil {
		return fmt.Errorf("booking rules: %w", err)
	}

	c.AuthService = service.NewAuthService(c.Config.JWT, c.AdminRepo, c.Cache)
	c.AuditService = service.NewAuditService(c.AuditLogRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.UploadService = service.NewUploadService(c.Config.Upload)
	c.CategoryService = service.NewCategoryService(c.CategoryRepo, c.Cache)
	c.ProductService = service.NewProductService(c.ProductRepo, c.CategoryRepo, c.Cache, productOpts)
	c.BookingService = service.NewBookingService(c.RoomRepo, c.ReservationRepo, c.Cache, bookingOpts)
	c.AnalyticsService = service.NewAnalyticsService(c.AnalyticsRepo, c.ReservationRepo)

	logger.Infow("provider_services_ready",
		"product_rules", productOpts.Rules.Len(),
		"reservation_rules", bookingOpts.Rules.Len(),
		"redis", c.Cache.Enabled(),
		"queue", c.QueueClient.Enabled(),
	)
	return nil
}

// Close 释放缓存与队列连接；数据库由打开方关闭
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	return errors.Join(c.QueueClient.Close(), c.Cache.Close())
}
