package shared

import (
	"strconv"
	"strings"

	"github.com/cabinstay/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 中间件写入 gin.Context 的身份字段
const (
	ContextRequestID    = "request_id"
	ContextAdminID      = "admin_id"
	ContextAdminName    = "username"
	ContextAdminIsSuper = "admin_is_super"
)

// ParseIDParam 解析路径中的正整数 ID，失败时直接返回 400。
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(id), true
}

// GetContextUint 从上下文读取 uint 值，缺失时返回 401。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v >= 0 {
			return uint(v), true
		}
	case float64:
		if v >= 0 {
			return uint(v), true
		}
	}
	RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
	return 0, false
}

// GetAdminID 读取鉴权中间件写入的管理员 ID
func GetAdminID(c *gin.Context) (uint, bool) {
	return GetContextUint(c, ContextAdminID)
}
