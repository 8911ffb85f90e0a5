package models

import (
	"time"

	"gorm.io/gorm"
)

// RoomType 房型模板
type RoomType struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(200);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	NightlyRate Money          `gorm:"type:decimal(20,2);not null" json:"nightly_rate"`
	Capacity    int            `gorm:"not null;default:1" json:"capacity"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (RoomType) TableName() string {
	return "room_types"
}

// Room 可预订的房间实例，始终引用有效房型。
// IsActive 无 gorm 默认值，插入时按实际值写入。
type Room struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	RoomTypeID uint           `gorm:"not null;index" json:"room_type_id"`
	Number     string         `gorm:"type:varchar(50);not null;uniqueIndex" json:"number"`
	Floor      int            `gorm:"not null;default:0" json:"floor"`
	IsActive   bool           `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	RoomType *RoomType `gorm:"foreignKey:RoomTypeID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"room_type,omitempty"`
}

// TableName 指定表名
func (Room) TableName() string {
	return "rooms"
}
