package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const catalogVersionKey = "catalog:version"

// CatalogVersion 当前目录版本号，未写入时为 0
func (s *Store) CatalogVersion(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	raw, err := s.client.Get(ctx, s.Key(catalogVersionKey)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// BumpCatalogVersion 递增目录版本，旧版本的列表缓存随之失效
func (s *Store) BumpCatalogVersion(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Incr(ctx, s.Key(catalogVersionKey)).Err()
}

// CatalogListKey 由版本号与过滤条件生成列表缓存 key
func CatalogListKey(kind string, version int64, filter string) string {
	sum := sha1.Sum([]byte(filter))
	return fmt.Sprintf("catalog:%s:v%d:%s", kind, version, hex.EncodeToString(sum[:8]))
}

// GetCatalogList 读取当前版本的列表缓存
func (s *Store) GetCatalogList(ctx context.Context, kind, filter string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	version, err := s.CatalogVersion(ctx)
	if err != nil {
		return false, err
	}
	return s.GetJSON(ctx, CatalogListKey(kind, version, filter), dest)
}

// SetCatalogList 写入当前版本的列表缓存
func (s *Store) SetCatalogList(ctx context.Context, kind, filter string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	version, err := s.CatalogVersion(ctx)
	if err != nil {
		return err
	}
	return s.SetJSON(ctx, CatalogListKey(kind, version, filter), value, ttl)
}
