package models

import "time"

// Product 商品表；分类删除时 category_id 置空，商品保留
type Product struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	Name           string         `gorm:"type:varchar(200);not null;index" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	Price          Money          `gorm:"type:decimal(20,2);not null" json:"price"`
	CategoryID     *uint          `gorm:"index" json:"category_id"`
	Stock          int            `gorm:"not null;default:0" json:"stock"`
	MainImage      string         `gorm:"type:varchar(500)" json:"main_image"`
	Images         StringArray    `gorm:"type:text" json:"images"`
	Specifications Specifications `gorm:"type:text" json:"specifications"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"category,omitempty"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// ProductListItem 商品列表读模型（附带分类名）
type ProductListItem struct {
	Product
	CategoryName *string `json:"category_name"`
	CategorySlug *string `json:"category_slug"`
}
