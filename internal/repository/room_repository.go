package repository

import (
	"context"
	"errors"

	"github.com/cabinstay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomRepository 房型与房间数据访问接口
type RoomRepository interface {
	ListRoomTypes(ctx context.Context) ([]models.RoomType, error)
	GetRoomType(ctx context.Context, id uint) (*models.RoomType, error)
	CreateRoomType(ctx context.Context, roomType *models.RoomType) error
	UpdateRoomType(ctx context.Context, roomType *models.RoomType) error
	DeleteRoomType(ctx context.Context, id uint) (int64, error)
	ListRoomsByType(ctx context.Context, roomTypeID uint, onlyActive bool) ([]models.Room, error)
	RoomIDsByType(ctx context.Context, roomTypeID uint) ([]uint, error)
	CountRoomsByType(ctx context.Context, roomTypeID uint) (int64, error)
	GetRoom(ctx context.Context, id uint) (*models.Room, error)
	LockRoom(ctx context.Context, id uint) (*models.Room, error)
	CountByNumber(ctx context.Context, number string, excludeID uint) (int64, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	UpdateRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, id uint) (int64, error)
	DeleteRoomsByType(ctx context.Context, roomTypeID uint) (int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) RoomRepository
}

// GormRoomRepository GORM 实现
type GormRoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建房间仓库
func NewRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRoomRepository) WithTx(tx *gorm.DB) RoomRepository {
	if tx == nil {
		return r
	}
	return &GormRoomRepository{db: tx}
}

// Transaction 执行事务
func (r *GormRoomRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// ListRoomTypes 房型列表
func (r *GormRoomRepository) ListRoomTypes(ctx context.Context) ([]models.RoomType, error) {
	roomTypes := make([]models.RoomType, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&roomTypes).Error; err != nil {
		return nil, err
	}
	return roomTypes, nil
}

// GetRoomType 获取房型，不存在返回 nil
func (r *GormRoomRepository) GetRoomType(ctx context.Context, id uint) (*models.RoomType, error) {
	var roomType models.RoomType
	if err := r.db.WithContext(ctx).First(&roomType, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &roomType, nil
}

// CreateRoomType 创建房型
func (r *GormRoomRepository) CreateRoomType(ctx context.Context, roomType *models.RoomType) error {
	return r.db.WithContext(ctx).Create(roomType).Error
}

// UpdateRoomType 更新房型
func (r *GormRoomRepository) UpdateRoomType(ctx context.Context, roomType *models.RoomType) error {
	return r.db.WithContext(ctx).Save(roomType).Error
}

// DeleteRoomType 删除房型（软删除）
func (r *GormRoomRepository) DeleteRoomType(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.RoomType{}, id)
	return result.RowsAffected, result.Error
}

// ListRoomsByType 房型下的房间
func (r *GormRoomRepository) ListRoomsByType(ctx context.Context, roomTypeID uint, onlyActive bool) ([]models.Room, error) {
	rooms := make([]models.Room, 0)
	query := r.db.WithContext(ctx).Where("room_type_id = ?", roomTypeID)
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("number ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// RoomIDsByType 房型下的房间 ID
func (r *GormRoomRepository) RoomIDsByType(ctx context.Context, roomTypeID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Room{}).Where("room_type_id = ?", roomTypeID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountRoomsByType 统计房型下未删除的房间数
func (r *GormRoomRepository) CountRoomsByType(ctx context.Context, roomTypeID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Room{}).Where("room_type_id = ?", roomTypeID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetRoom 获取房间（附带房型），不存在返回 nil
func (r *GormRoomRepository) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Preload("RoomType").First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// LockRoom 在当前事务内锁定房间行，串行化同一房间的预订检查与写入。
// postgres/mysql 使用 FOR UPDATE；sqlite 通过一次空更新提前获取写锁。
func (r *GormRoomRepository) LockRoom(ctx context.Context, id uint) (*models.Room, error) {
	db := r.db.WithContext(ctx)
	if !supportsRowLock(dbDialectName(db)) {
		if err := db.Exec("UPDATE rooms SET updated_at = updated_at WHERE id = ?", id).Error; err != nil {
			return nil, err
		}
	}
	var room models.Room
	if err := lockForUpdate(db).Preload("RoomType").First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// CountByNumber 统计房间号数量（含已删除，房间号唯一索引覆盖全部行）
func (r *GormRoomRepository) CountByNumber(ctx context.Context, number string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Unscoped().Model(&models.Room{}).Where("number = ?", number)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CreateRoom 创建房间
func (r *GormRoomRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(room).Error
}

// UpdateRoom 更新房间
func (r *GormRoomRepository) UpdateRoom(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(room).Error
}

// DeleteRoom 删除房间（软删除）
func (r *GormRoomRepository) DeleteRoom(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Room{}, id)
	return result.RowsAffected, result.Error
}

// DeleteRoomsByType 软删除房型下全部房间
func (r *GormRoomRepository) DeleteRoomsByType(ctx context.Context, roomTypeID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("room_type_id = ?", roomTypeID).Delete(&models.Room{})
	return result.RowsAffected, result.Error
}
