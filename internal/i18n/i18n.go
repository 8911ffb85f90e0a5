// Package i18n 提供错误提示等接口文案的多语言查找。
package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	LocaleEN = "en-US"
	LocaleZH = "zh-CN"

	DefaultLocale = LocaleEN
)

// T 按语言查找文案，缺失时回退默认语言，最终回退为 key 本身
func T(locale, key string) string {
	if msg, ok := catalog[normalize(locale)][key]; ok {
		return msg
	}
	if msg, ok := catalog[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 查找文案并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// ResolveLocale 依次读取 lang 查询参数与 Accept-Language 请求头
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return normalize(lang)
	}
	header := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		if locale := normalize(tag); locale != "" {
			return locale
		}
	}
	return DefaultLocale
}

func normalize(locale string) string {
	lower := strings.ToLower(strings.TrimSpace(locale))
	switch {
	case strings.HasPrefix(lower, "zh"):
		return LocaleZH
	case strings.HasPrefix(lower, "en"):
		return LocaleEN
	default:
		return DefaultLocale
	}
}
