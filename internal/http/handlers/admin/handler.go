package admin

import "github.com/cabinstay/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：该处理器仅用于管理端 API，鉴权与 RBAC 由路由中间件完成。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
