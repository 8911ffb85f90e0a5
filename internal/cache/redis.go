package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cabinstay/internal/config"

	"github.com/redis/go-redis/v9"
)

// Store Redis 缓存；未启用时所有操作为空操作
type Store struct {
	client *redis.Client
	prefix string
}

// New 根据配置创建缓存，未启用时返回空操作的 Store
func New(cfg *config.RedisConfig) *Store {
	if cfg == nil || !cfg.Enabled {
		return &Store{}
	}
	addr := strings.TrimSpace(cfg.Host)
	if addr == "" {
		addr = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "cs"
	}
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", addr, port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: prefix,
	}
}

// Enabled 判断缓存是否启用
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Client 获取 Redis 客户端
func (s *Store) Client() *redis.Client {
	if !s.Enabled() {
		return nil
	}
	return s.client
}

// Ping 检查连通性
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close 关闭连接
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Close()
}

// GetJSON 获取 JSON 缓存
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	val, err := s.client.Get(ctx, s.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.Key(key), payload, ttl).Err()
}

// Del 删除缓存
func (s *Store) Del(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Del(ctx, s.Key(key)).Err()
}

// Key 拼接带前缀的完整 key
func (s *Store) Key(key string) string {
	prefix := "cs"
	if s != nil && s.prefix != "" {
		prefix = s.prefix
	}
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return prefix
	}
	return fmt.Sprintf("%s:%s", prefix, trimmed)
}
