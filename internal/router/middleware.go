package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cabinstay/internal/config"
	handlershared "github.com/cabinstay/internal/http/handlers/shared"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// Authorizer 后台路由权限判定
type Authorizer interface {
	Authorize(adminID uint, isSuper bool, route, method string) (bool, error)
}

// AuditRecorder 后台写操作审计
type AuditRecorder interface {
	Record(ctx context.Context, input service.AuditRecordInput) error
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{"Content-Type", "Authorization", requestIDHeader}
	}
	corsCfg := cors.Config{
		AllowMethods:     allowedMethods,
		AllowHeaders:     allowedHeaders,
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg.AllowOriginFunc = func(origin string) bool {
		return resolveAllowedOrigin(origin, origins, cfg.AllowCredentials) != ""
	}
	return cors.New(corsCfg)
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(handlershared.ContextRequestID, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			entry.Errorw("request", "errors", c.Errors.String())
			return
		}
		entry.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(handlershared.ContextRequestID)
}

// TimeoutMiddleware 为请求上下文设置截止时间，超时的存储调用返回 504
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminAuthMiddleware 校验 Bearer 令牌，失败时在访问任何业务数据前返回 401
func AdminAuthMiddleware(verifier service.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			logger.Errorw("admin_auth_verifier_unavailable")
			handlershared.RespondServiceError(c, service.ErrTokenInvalid)
			c.Abort()
			return
		}
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			handlershared.RespondServiceError(c, service.ErrTokenMissing)
			c.Abort()
			return
		}
		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil || identity == nil || identity.AdminID == 0 {
			if err == nil {
				err = service.ErrTokenInvalid
			}
			handlershared.RespondServiceError(c, err)
			c.Abort()
			return
		}

		c.Set(handlershared.ContextAdminID, identity.AdminID)
		c.Set(handlershared.ContextAdminName, identity.Username)
		c.Set(handlershared.ContextAdminIsSuper, identity.IsSuper)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// AdminRBACMiddleware 管理端 RBAC 鉴权中间件，按路由模板判定
func AdminRBACMiddleware(authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authorizer == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			handlershared.RespondServiceError(c, service.ErrAuthorization)
			c.Abort()
			return
		}
		adminID := c.GetUint(handlershared.ContextAdminID)
		if adminID == 0 {
			handlershared.RespondServiceError(c, service.ErrTokenMissing)
			c.Abort()
			return
		}

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = c.Request.URL.Path
		}
		allowed, err := authorizer.Authorize(adminID, c.GetBool(handlershared.ContextAdminIsSuper), route, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"route", route,
				"error", err,
			)
			handlershared.RespondServiceError(c, err)
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"route", route,
			)
			handlershared.RespondServiceError(c, service.ErrAuthorization)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuditMiddleware 记录已通过鉴权并交给处理器的后台写操作
func AuditMiddleware(recorder AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if recorder == nil || !isMutation(c.Request.Method) {
			return
		}
		adminID := c.GetUint(handlershared.ContextAdminID)
		if adminID == 0 {
			return
		}
		resourceID := c.Param("id")
		if resourceID == "" {
			resourceID = c.Param("date")
		}
		input := service.AuditRecordInput{
			AdminID:    adminID,
			Username:   c.GetString(handlershared.ContextAdminName),
			Method:     c.Request.Method,
			Route:      c.FullPath(),
			ResourceID: resourceID,
			StatusCode: c.Writer.Status(),
			RequestID:  getRequestID(c),
		}
		if err := recorder.Record(context.WithoutCancel(c.Request.Context()), input); err != nil {
			logger.Warnw("admin_audit_record_failed",
				"admin_id", adminID,
				"route", input.Route,
				"error", err,
			)
		}
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
