package models

import (
	"time"

	"gorm.io/datatypes"
)

// VisitorStat 每日访问汇总，date 唯一
type VisitorStat struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	Date           datatypes.Date `gorm:"not null;uniqueIndex" json:"date"`
	Visitors       int64          `gorm:"not null;default:0" json:"visitors"`
	PageViews      int64          `gorm:"not null;default:0" json:"page_views"`
	UniqueVisitors int64          `gorm:"not null;default:0" json:"unique_visitors"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (VisitorStat) TableName() string {
	return "visitor_stats"
}

// PageView 页面访问事件，仅追加
type PageView struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	IPAddress string    `gorm:"type:varchar(64);index" json:"ip_address"`
	UserAgent string    `gorm:"type:varchar(500)" json:"user_agent"`
	PageURL   string    `gorm:"type:varchar(1000);not null" json:"page_url"`
	Referrer  string    `gorm:"type:varchar(1000)" json:"referrer"`
	SessionID string    `gorm:"type:varchar(128);index" json:"session_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (PageView) TableName() string {
	return "page_views"
}
