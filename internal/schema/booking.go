package schema

import (
	"fmt"

	"github.com/cabinstay/internal/models"

	"gorm.io/gorm"
)

// ReservationOverlapConstraint PostgreSQL 下同一房间已确认预订不得重叠
const ReservationOverlapConstraint = "reservations_no_overlap"

func createBooking(tx *gorm.DB) error {
	specs := []tableSpec{
		{
			model:    &roomTypeV3{},
			additive: []string{"Description", "DeletedAt"},
			indexes:  []string{"idx_room_types_deleted_at"},
		},
		{
			model:    &roomV3{},
			additive: []string{"Floor", "IsActive", "DeletedAt"},
			indexes:  []string{"idx_rooms_room_type_id", "idx_rooms_number", "idx_rooms_deleted_at"},
		},
		{
			model:    &reservationV3{},
			additive: []string{"Guests", "ContactEmail", "ContactPhone", "Note", "ConfirmedAt", "CancelledAt"},
			indexes:  []string{"idx_reservations_room_range", "idx_reservations_status", "idx_reservations_created_at"},
		},
	}
	for _, spec := range specs {
		if err := ensureTable(tx, spec); err != nil {
			return err
		}
	}
	if models.DialectName(tx) == "postgres" {
		return ensureOverlapConstraint(tx)
	}
	return nil
}

// ensureOverlapConstraint 以排他约束兜底并发预订：半开区间 [start, end) 重叠即冲突
func ensureOverlapConstraint(tx *gorm.DB) error {
	if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		return fmt.Errorf("create btree_gist extension: %w", err)
	}
	var count int64
	if err := tx.Raw("SELECT COUNT(*) FROM pg_constraint WHERE conname = ?", ReservationOverlapConstraint).Scan(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	sql := fmt.Sprintf(`ALTER TABLE reservations ADD CONSTRAINT %s
		EXCLUDE USING gist (room_id WITH =, daterange(start_date, end_date, '[)') WITH &&)
		WHERE (status = 'confirmed')`, ReservationOverlapConstraint)
	if err := tx.Exec(sql).Error; err != nil {
		return fmt.Errorf("create reservation overlap constraint: %w", err)
	}
	return nil
}

func createAnalytics(tx *gorm.DB) error {
	specs := []tableSpec{
		{
			model:    &visitorStatV4{},
			additive: []string{"UniqueVisitors", "CreatedAt", "UpdatedAt"},
			indexes:  []string{"idx_visitor_stats_date"},
		},
		{
			model:    &pageViewV4{},
			additive: []string{"Referrer", "SessionID"},
			indexes:  []string{"idx_page_views_ip_address", "idx_page_views_session_id", "idx_page_views_created_at"},
		},
	}
	for _, spec := range specs {
		if err := ensureTable(tx, spec); err != nil {
			return err
		}
	}
	return nil
}

func createAdmin(tx *gorm.DB) error {
	specs := []tableSpec{
		{
			model:    &adminV5{},
			additive: []string{"TokenInvalidBefore", "LastLoginAt", "DeletedAt"},
			indexes:  []string{"idx_admins_username", "idx_admins_deleted_at"},
		},
		{
			model:   &adminAuditLogV5{},
			indexes: []string{"idx_admin_audit_logs_admin_id", "idx_admin_audit_logs_route", "idx_admin_audit_logs_created_at"},
		},
	}
	for _, spec := range specs {
		if err := ensureTable(tx, spec); err != nil {
			return err
		}
	}
	return nil
}
