package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cabinstay/internal/config"
	adminhandlers "github.com/cabinstay/internal/http/handlers/admin"
	publichandlers "github.com/cabinstay/internal/http/handlers/public"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "cs"
	}
	redisClient := c.Cache.Client()
	reservationRule := NewRateLimitRule(fmt.Sprintf("%s:rate:reservation", redisPrefix), cfg.Security.ReservationRateLimit)
	pageViewRule := NewRateLimitRule(fmt.Sprintf("%s:rate:page_view", redisPrefix), cfg.Security.PageViewRateLimit)
	adminLoginRule := NewRateLimitRule(fmt.Sprintf("%s:rate:admin_login", redisPrefix), cfg.Security.LoginRateLimit)
	adminLoginRule.MessageKey = "error.login_too_many"

	readTimeout := TimeoutMiddleware(cfg.Timeouts.CatalogRead())
	mutationTimeout := TimeoutMiddleware(cfg.Timeouts.Mutation())

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))

	// 上传文件静态访问
	r.Static("/uploads", c.UploadService.Dir())

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/categories", readTimeout, publicHandler.GetCategories)
			public.GET("/products", readTimeout, publicHandler.GetProducts)
			public.GET("/products/:id", readTimeout, publicHandler.GetProduct)
			public.GET("/room-types", readTimeout, publicHandler.GetRoomTypes)
			public.GET("/room-types/:id/rooms", readTimeout, publicHandler.GetRoomsByType)
			public.POST("/reservations", RateLimitMiddleware(redisClient, reservationRule, KeyByIP), mutationTimeout, publicHandler.CreateReservation)
			public.POST("/page-views", RateLimitMiddleware(redisClient, pageViewRule, KeyByIP), mutationTimeout, publicHandler.RecordPageView)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), mutationTimeout, adminHandler.AdminLogin)

			// 需要鉴权的接口：令牌校验先于一切数据访问，审计只记录交给处理器的写操作
			authorized := admin.Group("")
			authorized.Use(
				AdminAuthMiddleware(c.AuthService),
				AdminRBACMiddleware(c.AuthzService),
				methodTimeout(cfg.Timeouts),
				AuditMiddleware(c.AuditService),
			)
			{
				// 分类与商品
				authorized.GET("/categories", adminHandler.GetAdminCategories)
				authorized.POST("/categories", adminHandler.CreateCategory)
				authorized.PUT("/categories/:id", adminHandler.UpdateCategory)
				authorized.DELETE("/categories/:id", adminHandler.DeleteCategory)
				authorized.GET("/products", adminHandler.GetAdminProducts)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.DELETE("/products/:id", adminHandler.DeleteProduct)

				// 房型、房间与预订
				authorized.GET("/room-types", adminHandler.GetAdminRoomTypes)
				authorized.POST("/room-types", adminHandler.CreateRoomType)
				authorized.PUT("/room-types/:id", adminHandler.UpdateRoomType)
				authorized.DELETE("/room-types/:id", adminHandler.DeleteRoomType)
				authorized.POST("/rooms", adminHandler.CreateRoom)
				authorized.PUT("/rooms/:id", adminHandler.UpdateRoom)
				authorized.DELETE("/rooms/:id", adminHandler.DeleteRoom)
				authorized.GET("/reservations", adminHandler.GetAdminReservations)
				authorized.PUT("/reservations/:id/status", adminHandler.UpdateReservationStatus)

				// 文件上传
				authorized.POST("/upload", adminHandler.UploadFile)

				// 访问统计
				authorized.GET("/analytics/daily", adminHandler.GetDailyStats)
				authorized.PUT("/analytics/daily/:date", adminHandler.PutDailyStat)
				authorized.POST("/analytics/rollup", adminHandler.TriggerRollup)
				authorized.GET("/analytics/overview", adminHandler.GetAnalyticsOverview)

				// 审计与管理员
				authorized.GET("/audit-logs", adminHandler.GetAuditLogs)
				authorized.POST("/admins", adminHandler.CreateAdmin)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

// methodTimeout 读请求使用目录读取超时，其余使用写操作超时
func methodTimeout(cfg config.TimeoutConfig) gin.HandlerFunc {
	read := TimeoutMiddleware(cfg.CatalogRead())
	write := TimeoutMiddleware(cfg.Mutation())
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			read(c)
			return
		}
		write(c)
	}
}
