package schema

import (
	"time"

	"github.com/cabinstay/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 迁移使用的表结构快照：每个版本固定自己的列定义，后续模型演进不影响已发布的迁移。

type categoryV1 struct {
	ID          uint   `gorm:"primarykey"`
	Name        string `gorm:"type:varchar(200);not null"`
	Slug        string `gorm:"type:varchar(200);uniqueIndex:idx_categories_slug;not null"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (categoryV1) TableName() string { return "categories" }

type productV2 struct {
	ID             uint                  `gorm:"primarykey"`
	Name           string                `gorm:"type:varchar(200);not null;index:idx_products_name"`
	Description    string                `gorm:"type:text"`
	Price          models.Money          `gorm:"type:decimal(20,2);not null;check:chk_products_price,price > 0"`
	CategoryID     *uint                 `gorm:"index:idx_products_category_id"`
	Stock          int                   `gorm:"not null;default:0;check:chk_products_stock,stock >= 0"`
	MainImage      string                `gorm:"type:varchar(500)"`
	Images         models.StringArray    `gorm:"type:text"`
	Specifications models.Specifications `gorm:"type:text"`
	CreatedAt      time.Time             `gorm:"index:idx_products_created_at"`
	UpdatedAt      time.Time

	Category *categoryV1 `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (productV2) TableName() string { return "products" }

type roomTypeV3 struct {
	ID          uint         `gorm:"primarykey"`
	Name        string       `gorm:"type:varchar(200);not null"`
	Description string       `gorm:"type:text"`
	NightlyRate models.Money `gorm:"type:decimal(20,2);not null"`
	Capacity    int          `gorm:"not null;default:1;check:chk_room_types_capacity,capacity > 0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index:idx_room_types_deleted_at"`
}

func (roomTypeV3) TableName() string { return "room_types" }

type roomV3 struct {
	ID         uint   `gorm:"primarykey"`
	RoomTypeID uint   `gorm:"not null;index:idx_rooms_room_type_id"`
	Number     string `gorm:"type:varchar(50);not null;uniqueIndex:idx_rooms_number"`
	Floor      int    `gorm:"not null;default:0"`
	IsActive   bool   `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index:idx_rooms_deleted_at"`

	RoomType *roomTypeV3 `gorm:"foreignKey:RoomTypeID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (roomV3) TableName() string { return "rooms" }

type reservationV3 struct {
	ID           uint           `gorm:"primarykey"`
	RoomID       uint           `gorm:"not null;index:idx_reservations_room_range,priority:1"`
	StartDate    datatypes.Date `gorm:"not null;index:idx_reservations_room_range,priority:2"`
	EndDate      datatypes.Date `gorm:"not null;index:idx_reservations_room_range,priority:3;check:chk_reservations_range,start_date < end_date"`
	Guests       int            `gorm:"not null;default:1"`
	ContactName  string         `gorm:"type:varchar(200);not null"`
	ContactEmail string         `gorm:"type:varchar(200)"`
	ContactPhone string         `gorm:"type:varchar(50)"`
	Note         string         `gorm:"type:text"`
	Status       string         `gorm:"type:varchar(20);not null;default:'pending';index:idx_reservations_status"`
	ConfirmedAt  *time.Time
	CancelledAt  *time.Time
	CreatedAt    time.Time `gorm:"index:idx_reservations_created_at"`
	UpdatedAt    time.Time

	Room *roomV3 `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (reservationV3) TableName() string { return "reservations" }

type visitorStatV4 struct {
	ID             uint           `gorm:"primarykey"`
	Date           datatypes.Date `gorm:"not null;uniqueIndex:idx_visitor_stats_date"`
	Visitors       int64          `gorm:"not null;default:0"`
	PageViews      int64          `gorm:"not null;default:0"`
	UniqueVisitors int64          `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (visitorStatV4) TableName() string { return "visitor_stats" }

type pageViewV4 struct {
	ID        uint      `gorm:"primarykey"`
	IPAddress string    `gorm:"type:varchar(64);index:idx_page_views_ip_address"`
	UserAgent string    `gorm:"type:varchar(500)"`
	PageURL   string    `gorm:"type:varchar(1000);not null"`
	Referrer  string    `gorm:"type:varchar(1000)"`
	SessionID string    `gorm:"type:varchar(128);index:idx_page_views_session_id"`
	CreatedAt time.Time `gorm:"index:idx_page_views_created_at"`
}

func (pageViewV4) TableName() string { return "page_views" }

type adminV5 struct {
	ID                 uint   `gorm:"primarykey"`
	Username           string `gorm:"type:varchar(100);uniqueIndex:idx_admins_username;not null"`
	PasswordHash       string `gorm:"not null"`
	TokenVersion       uint64 `gorm:"not null;default:0"`
	TokenInvalidBefore *time.Time
	IsSuper            bool `gorm:"not null;default:false"`
	LastLoginAt        *time.Time
	CreatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index:idx_admins_deleted_at"`
}

func (adminV5) TableName() string { return "admins" }

type adminAuditLogV5 struct {
	ID         uint      `gorm:"primarykey"`
	AdminID    uint      `gorm:"index:idx_admin_audit_logs_admin_id;not null"`
	Username   string    `gorm:"type:varchar(100);not null;default:''"`
	Method     string    `gorm:"type:varchar(10);not null"`
	Route      string    `gorm:"type:varchar(255);not null;index:idx_admin_audit_logs_route"`
	ResourceID string    `gorm:"type:varchar(64);not null;default:''"`
	StatusCode int       `gorm:"not null"`
	RequestID  string    `gorm:"type:varchar(64);not null;default:''"`
	CreatedAt  time.Time `gorm:"index:idx_admin_audit_logs_created_at"`
}

func (adminAuditLogV5) TableName() string { return "admin_audit_logs" }
