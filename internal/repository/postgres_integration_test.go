//go:build integration
// +build integration

package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/cabinstay/internal/constants"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/schema"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := models.OpenDB(models.DBOptions{Driver: "postgres", DSN: dsn})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	dropAll := func() {
		_ = db.Exec("DROP TABLE IF EXISTS admin_audit_logs, admins, page_views, visitor_stats, reservations, rooms, room_types, products, categories, goose_db_version CASCADE").Error
	}
	dropAll()
	if _, err := schema.NewManager(db, nil).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure postgres schema failed: %v", err)
	}

	t.Cleanup(func() {
		dropAll()
		_ = models.CloseDB(db)
	})
	return db
}

func TestPostgresExclusionConstraintRejectsOverlap(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()
	room := createTestRoom(t, db, "pg-101")

	confirmed := func(start, end string) *models.Reservation {
		return &models.Reservation{
			RoomID:      room.ID,
			StartDate:   datatypes.Date(day(start)),
			EndDate:     datatypes.Date(day(end)),
			Guests:      1,
			ContactName: "Guest",
			Status:      constants.ReservationStatusConfirmed,
		}
	}

	if err := repo.Create(ctx, confirmed("2026-09-01", "2026-09-05")); err != nil {
		t.Fatalf("create first reservation failed: %v", err)
	}
	if err := repo.Create(ctx, confirmed("2026-09-05", "2026-09-07")); err != nil {
		t.Fatalf("adjacent reservation should be accepted: %v", err)
	}

	err := repo.Create(ctx, confirmed("2026-09-04", "2026-09-06"))
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23P01" {
		t.Fatalf("expected exclusion violation, got %v", err)
	}
	if pgErr.ConstraintName != schema.ReservationOverlapConstraint {
		t.Fatalf("unexpected constraint: %s", pgErr.ConstraintName)
	}

	pending := confirmed("2026-09-04", "2026-09-06")
	pending.Status = constants.ReservationStatusPending
	if err := repo.Create(ctx, pending); err != nil {
		t.Fatalf("pending overlap should be accepted: %v", err)
	}
}

func TestPostgresProductSearchIsCaseInsensitive(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewProductRepository(db)
	category := createTestCategory(t, db, "Cabins")
	createTestProduct(t, db, "Quadrant Cabin", &category.ID)

	items, total, err := repo.List(context.Background(), ProductListFilter{Search: "quadrant"})
	if err != nil {
		t.Fatalf("search products failed: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected ILIKE match, got total=%d", total)
	}
}
