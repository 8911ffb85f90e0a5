package admin

import (
	"time"

	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string      `json:"token"`
	User      interface{} `json:"user"`
	ExpiresAt string      `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.CaptchaService.Verify(req.CaptchaID, req.CaptchaCode); err != nil {
		respondServiceError(c, err)
		return
	}

	admin, token, expiresAt, err := h.AuthService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, LoginResponse{
		Token:     token,
		User:      admin,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// CreateAdminRequest 创建管理员请求
type CreateAdminRequest struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required"`
	IsSuper  bool     `json:"is_super"`
	Roles    []string `json:"roles"`
}

// CreateAdmin 创建管理员并分配角色
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	for _, role := range req.Roles {
		exists, err := h.AuthzService.HasRole(role)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if !exists {
			respondServiceError(c, service.ErrAdminInvalid)
			return
		}
	}

	admin, err := h.AuthService.CreateAdmin(c.Request.Context(), req.Username, req.Password, req.IsSuper)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if len(req.Roles) > 0 {
		if err := h.AuthzService.SetAdminRoles(admin.ID, req.Roles); err != nil {
			respondServiceError(c, err)
			return
		}
	}
	roles, err := h.AuthzService.GetAdminRoles(admin.ID)
	if err != nil {
		requestLog(c).Warnw("admin_roles_fetch_failed", "admin_id", admin.ID, "error", err)
	}
	response.Created(c, gin.H{"admin": admin, "roles": roles})
}
