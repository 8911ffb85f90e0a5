package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/cabinstay/internal/models"
)

const authStateTTL = 10 * time.Minute

// AdminAuthState 令牌校验所需的管理员快照，避免每个后台请求都查管理员表
type AdminAuthState struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	IsSuper      bool   `json:"is_super"`
	TokenVersion uint64 `json:"token_version"`
	RevokedAt    int64  `json:"revoked_at"` // 该时间之前签发的令牌失效，Unix 秒，0 为未吊销
	CachedAt     int64  `json:"cached_at"`
}

// BuildAdminAuthState 由管理员记录生成快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		Username:     admin.Username,
		IsSuper:      admin.IsSuper,
		TokenVersion: admin.TokenVersion,
		CachedAt:     time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.RevokedAt = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// Accepts 判断某版本、某时刻签发的令牌是否仍然有效
func (s *AdminAuthState) Accepts(tokenVersion uint64, issuedAt time.Time) bool {
	if s == nil || s.TokenVersion != tokenVersion {
		return false
	}
	return s.RevokedAt == 0 || issuedAt.IsZero() || issuedAt.Unix() >= s.RevokedAt
}

func authStateKey(adminID uint) string {
	return "auth:admin:" + strconv.FormatUint(uint64(adminID), 10)
}

// GetAdminAuthState 读取快照
func (s *Store) GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	state := &AdminAuthState{}
	hit, err := s.GetJSON(ctx, authStateKey(adminID), state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return state, true, nil
}

// SetAdminAuthState 写入快照
func (s *Store) SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return s.SetJSON(ctx, authStateKey(state.AdminID), state, authStateTTL)
}

// DelAdminAuthState 吊销或改密后删除快照
func (s *Store) DelAdminAuthState(ctx context.Context, adminID uint) error {
	if adminID == 0 {
		return nil
	}
	return s.Del(ctx, authStateKey(adminID))
}
