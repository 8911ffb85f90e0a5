package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page         int
	PageSize     int
	CategoryID   *uint
	CategorySlug string
	Search       string
}

// ReservationListFilter 查询预订列表的过滤条件
type ReservationListFilter struct {
	Page     int
	PageSize int
	Status   string
	RoomID   uint
	From     *time.Time // 与 [From, To) 有交集的预订
	To       *time.Time
}

// AuditLogListFilter 查询审计日志的过滤条件
type AuditLogListFilter struct {
	Page        int
	PageSize    int
	AdminID     uint
	Method      string
	Route       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
