package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 管理员表
type Admin struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	Username           string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash       string         `gorm:"not null" json:"-"`
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"` // 递增即令已签发 Token 全部失效
	TokenInvalidBefore *time.Time     `json:"-"`
	IsSuper            bool           `gorm:"not null;default:false" json:"is_super"` // 超级管理员免权限校验
	LastLoginAt        *time.Time     `json:"last_login_at"`
	CreatedAt          time.Time      `json:"created_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}

// AdminAuditLog 后台写操作审计
type AdminAuditLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	AdminID    uint      `gorm:"index;not null" json:"admin_id"`
	Username   string    `gorm:"type:varchar(100);not null;default:''" json:"username"`
	Method     string    `gorm:"type:varchar(10);not null" json:"method"`
	Route      string    `gorm:"type:varchar(255);not null;index" json:"route"`
	ResourceID string    `gorm:"type:varchar(64);not null;default:''" json:"resource_id"`
	StatusCode int       `gorm:"not null" json:"status_code"`
	RequestID  string    `gorm:"type:varchar(64);not null;default:''" json:"request_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}
