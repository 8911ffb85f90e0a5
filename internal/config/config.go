package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cabinstay/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Upload    UploadConfig    `mapstructure:"upload"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Security  SecurityConfig  `mapstructure:"security"`
	Captcha   CaptchaConfig   `mapstructure:"captcha"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Booking   BookingConfig   `mapstructure:"booking"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Timeouts  TimeoutConfig   `mapstructure:"timeouts"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver      string             `mapstructure:"driver"` // sqlite / postgres / mysql
	DSN         string             `mapstructure:"dsn"`
	SlowQueryMS int                `mapstructure:"slow_query_ms"`
	Pool        DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 后台令牌配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
	Issuer      string `mapstructure:"issuer"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CaptchaConfig 图片验证码配置
type CaptchaConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Length        int  `mapstructure:"length"`
	Width         int  `mapstructure:"width"`
	Height        int  `mapstructure:"height"`
	NoiseCount    int  `mapstructure:"noise_count"`
	ShowLine      int  `mapstructure:"show_line"`
	ExpireSeconds int  `mapstructure:"expire_seconds"`
	MaxStore      int  `mapstructure:"max_store"`
}

// UploadConfig 文件上传配置
type UploadConfig struct {
	Dir               string   `mapstructure:"dir"`
	MaxSize           int64    `mapstructure:"max_size"`
	AllowedTypes      []string `mapstructure:"allowed_types"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	MaxWidth          int      `mapstructure:"max_width"`
	MaxHeight         int      `mapstructure:"max_height"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit       RateLimitConfig `mapstructure:"login_rate_limit"`
	ReservationRateLimit RateLimitConfig `mapstructure:"reservation_rate_limit"`
	PageViewRateLimit    RateLimitConfig `mapstructure:"page_view_rate_limit"`
}

// RateLimitConfig 固定窗口限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// SeedCategory 默认分类
type SeedCategory struct {
	Name        string `mapstructure:"name"`
	Slug        string `mapstructure:"slug"`
	Description string `mapstructure:"description"`
}

// CatalogConfig 商品目录配置
type CatalogConfig struct {
	SeedCategories      []SeedCategory    `mapstructure:"seed_categories"`
	SpecificationSchema map[string]string `mapstructure:"specification_schema"` // key -> string/number/bool/object
	RequiredSpecKeys    []string          `mapstructure:"required_spec_keys"`
	RulesVersion        int               `mapstructure:"rules_version"`
	ProductRules        []string          `mapstructure:"product_rules"`
	ListCacheTTLSeconds int               `mapstructure:"list_cache_ttl_seconds"`
}

// BookingConfig 预订配置
type BookingConfig struct {
	MaxNights        int      `mapstructure:"max_nights"`
	RulesVersion     int      `mapstructure:"rules_version"`
	ReservationRules []string `mapstructure:"reservation_rules"`
}

// AnalyticsConfig 访问统计配置
type AnalyticsConfig struct {
	RollupIntervalSeconds int `mapstructure:"rollup_interval_seconds"`
}

// TimeoutConfig 请求超时配置（秒）
type TimeoutConfig struct {
	CatalogReadSeconds int `mapstructure:"catalog_read_seconds"`
	MutationSeconds    int `mapstructure:"mutation_seconds"`
}

// CatalogRead 目录读取超时
func (c TimeoutConfig) CatalogRead() time.Duration {
	return secondsOr(c.CatalogReadSeconds, 10)
}

// Mutation 写操作超时
func (c TimeoutConfig) Mutation() time.Duration {
	return secondsOr(c.MutationSeconds, 15)
}

// BootstrapConfig 初始管理员配置
type BootstrapConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

// Load 从 config.yml 加载配置，失败时 panic
func Load() *Config {
	cfg, err := LoadFile("")
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// LoadFile 从指定文件加载配置，path 为空时按默认路径查找
func LoadFile(path string) (*Config, error) {
	// .env 仅用于本地覆盖，缺失不是错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnw("dotenv_load_failed", "error", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./etc")
		v.AddConfigPath("../")
	}
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/cabinstay.db")
	v.SetDefault("database.slow_query_ms", 200)
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("jwt.issuer", "cabinstay")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "cs")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.queues", map[string]int{
		"default":  5,
		"critical": 3,
	})
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_size", 10485760)
	v.SetDefault("upload.allowed_types", []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	})
	v.SetDefault("upload.allowed_extensions", []string{
		".jpg",
		".jpeg",
		".png",
		".gif",
		".webp",
	})
	v.SetDefault("upload.max_width", 4096)
	v.SetDefault("upload.max_height", 4096)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.login_rate_limit.block_seconds", 900)
	v.SetDefault("security.reservation_rate_limit.window_seconds", 600)
	v.SetDefault("security.reservation_rate_limit.max_attempts", 10)
	v.SetDefault("security.reservation_rate_limit.block_seconds", 600)
	v.SetDefault("security.page_view_rate_limit.window_seconds", 60)
	v.SetDefault("security.page_view_rate_limit.max_attempts", 120)
	v.SetDefault("security.page_view_rate_limit.block_seconds", 60)
	v.SetDefault("captcha.enabled", false)
	v.SetDefault("captcha.length", 5)
	v.SetDefault("captcha.width", 240)
	v.SetDefault("captcha.height", 80)
	v.SetDefault("captcha.noise_count", 2)
	v.SetDefault("captcha.show_line", 2)
	v.SetDefault("captcha.expire_seconds", 300)
	v.SetDefault("captcha.max_store", 10240)
	v.SetDefault("catalog.seed_categories", []map[string]string{
		{"name": "Shower Cabins", "slug": "shower-cabins", "description": "Complete shower cabin units"},
		{"name": "Accessories", "slug": "accessories", "description": "Shower accessories"},
		{"name": "Parts", "slug": "parts", "description": "Replacement parts"},
	})
	v.SetDefault("catalog.specification_schema", map[string]string{})
	v.SetDefault("catalog.required_spec_keys", []string{})
	v.SetDefault("catalog.rules_version", 1)
	v.SetDefault("catalog.product_rules", []string{
		"Price > 0",
		"len(Name) <= 200",
	})
	v.SetDefault("catalog.list_cache_ttl_seconds", 60)
	v.SetDefault("booking.max_nights", 30)
	v.SetDefault("booking.rules_version", 1)
	v.SetDefault("booking.reservation_rules", []string{
		"len(ContactName) > 0",
		"ContactEmail contains \"@\" || len(ContactPhone) > 0",
	})
	v.SetDefault("analytics.rollup_interval_seconds", 900)
	v.SetDefault("timeouts.catalog_read_seconds", 10)
	v.SetDefault("timeouts.mutation_seconds", 15)
	v.SetDefault("bootstrap.admin_username", "admin")
	v.SetDefault("bootstrap.admin_password", "")
}
