package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cabinstay/internal/cache"
	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minAdminPasswordLength = 8

// Identity 已通过校验的调用方身份
type Identity struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	IsSuper  bool   `json:"is_super"`
}

// TokenVerifier 令牌校验协作方，校验失败返回 ErrAuthentication 类错误
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// AuthStateCache 管理员鉴权快照缓存
type AuthStateCache interface {
	GetAdminAuthState(ctx context.Context, adminID uint) (*cache.AdminAuthState, bool, error)
	SetAdminAuthState(ctx context.Context, state *cache.AdminAuthState) error
	DelAdminAuthState(ctx context.Context, adminID uint) error
}

// AuthService 管理员认证服务，同时是默认的 TokenVerifier
type AuthService struct {
	cfg       config.JWTConfig
	adminRepo repository.AdminRepository
	states    AuthStateCache
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg config.JWTConfig, adminRepo repository.AdminRepository, states AuthStateCache) *AuthService {
	return &AuthService{cfg: cfg, adminRepo: adminRepo, states: states}
}

// JWTClaims JWT 声明
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.AdminID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Verify 校验令牌签名、版本与吊销时间
func (s *AuthService) Verify(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMissing
	}
	claims, err := s.ParseJWT(token)
	if err != nil {
		return nil, err
	}
	state, err := s.authState(ctx, claims.AdminID)
	if err != nil {
		return nil, err
	}
	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	if !state.Accepts(claims.TokenVersion, issuedAt) {
		return nil, ErrTokenInvalid
	}
	return &Identity{AdminID: state.AdminID, Username: state.Username, IsSuper: state.IsSuper}, nil
}

// authState 优先读缓存，未命中时回源数据库
func (s *AuthService) authState(ctx context.Context, adminID uint) (*cache.AdminAuthState, error) {
	if s.states != nil {
		state, hit, err := s.states.GetAdminAuthState(ctx, adminID)
		if err != nil {
			logger.Warnw("admin_auth_state_cache_read_failed", "admin_id", adminID, "error", err)
		} else if hit {
			return state, nil
		}
	}
	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, nil
	}
	state := cache.BuildAdminAuthState(admin)
	s.storeState(ctx, state)
	return state, nil
}

// Login 管理员登录
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Admin, string, time.Time, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if admin == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	now := time.Now().UTC()
	if err := s.adminRepo.TouchLogin(ctx, admin.ID, now); err != nil {
		return nil, "", time.Time{}, err
	}
	admin.LastLoginAt = &now
	s.storeState(ctx, cache.BuildAdminAuthState(admin))
	logger.Infow("admin_login", "admin_id", admin.ID, "username", admin.Username)
	return admin, token, expiresAt, nil
}

// CreateAdmin 创建管理员
func (s *AuthService) CreateAdmin(ctx context.Context, username, password string, isSuper bool) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 100 {
		return nil, fmt.Errorf("%w: username is required", ErrAdminInvalid)
	}
	if len([]rune(password)) < minAdminPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrAdminInvalid, minAdminPasswordLength)
	}
	existing, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAdminExists
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{Username: username, PasswordHash: hash, IsSuper: isSuper}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAdminExists
		}
		return nil, ClassifyDBError(err)
	}
	logger.Infow("admin_created", "admin_id", admin.ID, "username", admin.Username, "is_super", admin.IsSuper)
	return admin, nil
}

// EnsureBootstrapAdmin 无任何管理员时按配置创建超级管理员
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (*models.Admin, error) {
	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	if strings.TrimSpace(cfg.AdminUsername) == "" || cfg.AdminPassword == "" {
		logger.Warnw("admin_bootstrap_skipped", "reason", "bootstrap credentials not configured")
		return nil, nil
	}
	return s.CreateAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword, true)
}

// RevokeTokens 使管理员已签发的令牌全部失效
func (s *AuthService) RevokeTokens(ctx context.Context, adminID uint) error {
	if err := s.adminRepo.RevokeTokens(ctx, adminID, time.Now().UTC()); err != nil {
		return err
	}
	if s.states != nil {
		if err := s.states.DelAdminAuthState(ctx, adminID); err != nil {
			logger.Warnw("admin_auth_state_cache_delete_failed", "admin_id", adminID, "error", err)
		}
	}
	return nil
}

// ListAdmins 管理员列表
func (s *AuthService) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	return s.adminRepo.List(ctx)
}

func (s *AuthService) storeState(ctx context.Context, state *cache.AdminAuthState) {
	if s.states == nil || state == nil {
		return
	}
	if err := s.states.SetAdminAuthState(ctx, state); err != nil {
		logger.Warnw("admin_auth_state_cache_write_failed", "admin_id", state.AdminID, "error", err)
	}
}
