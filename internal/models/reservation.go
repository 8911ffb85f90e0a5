package models

import (
	"time"

	"github.com/cabinstay/internal/constants"

	"gorm.io/datatypes"
)

// Reservation 预订记录；不做物理删除，取消即状态变更
type Reservation struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	RoomID       uint           `gorm:"not null;index:idx_reservations_room_range,priority:1" json:"room_id"`
	StartDate    datatypes.Date `gorm:"not null;index:idx_reservations_room_range,priority:2" json:"start_date"`
	EndDate      datatypes.Date `gorm:"not null;index:idx_reservations_room_range,priority:3" json:"end_date"`
	Guests       int            `gorm:"not null;default:1" json:"guests"`
	ContactName  string         `gorm:"type:varchar(200);not null" json:"contact_name"`
	ContactEmail string         `gorm:"type:varchar(200)" json:"contact_email"`
	ContactPhone string         `gorm:"type:varchar(50)" json:"contact_phone"`
	Note         string         `gorm:"type:text" json:"note"`
	Status       string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ConfirmedAt  *time.Time     `json:"confirmed_at"`
	CancelledAt  *time.Time     `json:"cancelled_at"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Room *Room `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"room,omitempty"`
}

// TableName 指定表名
func (Reservation) TableName() string {
	return "reservations"
}

// IsTerminal 是否终态
func (r Reservation) IsTerminal() bool {
	return r.Status == constants.ReservationStatusCancelled
}

// Start 入住日期
func (r Reservation) Start() time.Time { return time.Time(r.StartDate) }

// End 离店日期（不含）
func (r Reservation) End() time.Time { return time.Time(r.EndDate) }

// Nights 入住晚数
func (r Reservation) Nights() int {
	return int(r.End().Sub(r.Start()).Hours() / 24)
}
