package service

import (
	"context"
	"time"

	"github.com/cabinstay/internal/logger"
)

// CatalogCache 公开目录列表缓存，写操作通过递增版本号整体失效
type CatalogCache interface {
	BumpCatalogVersion(ctx context.Context) error
	GetCatalogList(ctx context.Context, kind, filter string, dest interface{}) (bool, error)
	SetCatalogList(ctx context.Context, kind, filter string, value interface{}, ttl time.Duration) error
}

func bumpCatalog(ctx context.Context, cache CatalogCache) {
	if cache == nil {
		return
	}
	if err := cache.BumpCatalogVersion(context.WithoutCancel(ctx)); err != nil {
		logger.Warnw("catalog_cache_bump_failed", "error", err)
	}
}
