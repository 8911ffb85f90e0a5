package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/i18n"
	"github.com/cabinstay/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int // 超限后整体封禁时长，0 表示等窗口自然过期
	MessageKey    string
}

// NewRateLimitRule 由配置构建限流规则
func NewRateLimitRule(prefix string, cfg config.RateLimitConfig) RateLimitRule {
	return RateLimitRule{
		Prefix:        prefix,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		BlockSeconds:  cfg.BlockSeconds,
	}
}

func (r RateLimitRule) active() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(subject string) string {
	if r.Prefix == "" {
		return subject
	}
	return r.Prefix + ":" + subject
}

func (r RateLimitRule) messageKey() string {
	if key := strings.TrimSpace(r.MessageKey); key != "" {
		return key
	}
	return "error.rate_limited"
}

// retryAfter 超限后的等待秒数，TTL 异常时退回窗口长度
func (r RateLimitRule) retryAfter(ttl int64) int {
	if ttl >= 1 {
		return int(ttl)
	}
	if r.WindowSeconds >= 1 {
		return r.WindowSeconds
	}
	return 1
}

// 第一次超限时把 key 的过期时间延长为封禁时长
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
if tonumber(ARGV[3]) > 0 and current == tonumber(ARGV[2]) + 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[3])
end
return {current, redis.call("TTL", KEYS[1])}
`)

// hit 计数一次，返回窗口内累计次数与剩余秒数
func hit(ctx context.Context, client *redis.Client, key string, rule RateLimitRule) (int64, int64, error) {
	values, err := rateLimitScript.Run(ctx, client, []string{key}, rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit reply: %v", values)
	}
	return values[0], values[1], nil
}

// RateLimitMiddleware Redis 频率限制中间件；未配置 Redis 时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !rule.active() {
			c.Next()
			return
		}

		subject := ""
		if keyFunc != nil {
			subject = strings.TrimSpace(keyFunc(c))
		}
		if subject == "" {
			subject = c.ClientIP()
		}

		count, ttl, err := hit(c.Request.Context(), client, rule.key(subject), rule)
		if err != nil {
			logger.Warnw("rate_limit_script_failed", "prefix", rule.Prefix, "error", err)
			response.Abort(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			return
		}
		if count > int64(rule.MaxRequests) {
			wait := rule.retryAfter(ttl)
			c.Header("Retry-After", strconv.Itoa(wait))
			response.Abort(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), rule.messageKey(), wait))
			return
		}
		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 JSON 字段 + IP 作为限流 key，读取后恢复请求体
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var payload map[string]interface{}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	text, _ := payload[field].(string)
	return strings.TrimSpace(text)
}
