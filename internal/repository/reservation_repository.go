package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cabinstay/internal/constants"
	"github.com/cabinstay/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationRepository 预订数据访问接口
type ReservationRepository interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	GetByID(ctx context.Context, id uint) (*models.Reservation, error)
	LockByID(ctx context.Context, id uint) (*models.Reservation, error)
	List(ctx context.Context, filter ReservationListFilter) ([]models.Reservation, int64, error)
	CountOverlapping(ctx context.Context, roomID uint, start, end time.Time, excludeID uint) (int64, error)
	TransitionStatus(ctx context.Context, id uint, from []string, to string, at time.Time) (int64, error)
	CancelActiveByRooms(ctx context.Context, roomIDs []uint, at time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ReservationRepository
}

// GormReservationRepository GORM 实现
type GormReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预订仓库
func NewReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReservationRepository) WithTx(tx *gorm.DB) ReservationRepository {
	if tx == nil {
		return r
	}
	return &GormReservationRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReservationRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// Create 创建预订
func (r *GormReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(reservation).Error
}

// GetByID 获取预订（附带房间），不存在返回 nil
func (r *GormReservationRepository) GetByID(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).Preload("Room").First(&reservation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// LockByID 在当前事务内锁定预订行
func (r *GormReservationRepository) LockByID(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := lockForUpdate(r.db.WithContext(ctx)).First(&reservation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// List 预订列表
func (r *GormReservationRepository) List(ctx context.Context, filter ReservationListFilter) ([]models.Reservation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Reservation{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.RoomID != 0 {
		query = query.Where("room_id = ?", filter.RoomID)
	}
	if filter.To != nil {
		query = query.Where("start_date < ?", datatypes.Date(*filter.To))
	}
	if filter.From != nil {
		query = query.Where("end_date > ?", datatypes.Date(*filter.From))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	reservations := make([]models.Reservation, 0)
	err := applyPagination(query, filter.Page, filter.PageSize).
		Preload("Room").
		Order("start_date ASC, id ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// CountOverlapping 统计与 [start, end) 重叠的已确认预订：s1 < e2 且 s2 < e1
func (r *GormReservationRepository) CountOverlapping(ctx context.Context, roomID uint, start, end time.Time, excludeID uint) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("room_id = ? AND status = ?", roomID, constants.ReservationStatusConfirmed).
		Where("start_date < ? AND end_date > ?", datatypes.Date(end), datatypes.Date(start))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TransitionStatus 仅当当前状态属于 from 时更新为 to，返回受影响行数
func (r *GormReservationRepository) TransitionStatus(ctx context.Context, id uint, from []string, to string, at time.Time) (int64, error) {
	updates := map[string]interface{}{"status": to, "updated_at": at}
	switch to {
	case constants.ReservationStatusConfirmed:
		updates["confirmed_at"] = at
	case constants.ReservationStatusCancelled:
		updates["cancelled_at"] = at
	}
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// CancelActiveByRooms 取消指定房间上所有非终态预订
func (r *GormReservationRepository) CancelActiveByRooms(ctx context.Context, roomIDs []uint, at time.Time) (int64, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("room_id IN ? AND status IN ?", roomIDs, []string{
			constants.ReservationStatusPending,
			constants.ReservationStatusConfirmed,
		}).
		Updates(map[string]interface{}{
			"status":       constants.ReservationStatusCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

// CountByStatus 按状态统计预订数
func (r *GormReservationRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := map[string]int64{
		constants.ReservationStatusPending:   0,
		constants.ReservationStatusConfirmed: 0,
		constants.ReservationStatusCancelled: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
