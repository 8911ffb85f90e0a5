package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/constants"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 允许的状态迁移；cancelled 为终态
var reservationTransitions = map[string]map[string]bool{
	constants.ReservationStatusPending: {
		constants.ReservationStatusConfirmed: true,
		constants.ReservationStatusCancelled: true,
	},
	constants.ReservationStatusConfirmed: {
		constants.ReservationStatusCancelled: true,
	},
}

// BookingOptions 预订校验参数
type BookingOptions struct {
	MaxNights int
	Rules     *RuleSet
}

// BookingOptionsFromConfig 编译预订规则
func BookingOptionsFromConfig(cfg config.BookingConfig) (BookingOptions, error) {
	rules, err := CompileRuleSet(cfg.RulesVersion, cfg.ReservationRules, ReservationRuleEnv{})
	if err != nil {
		return BookingOptions{}, err
	}
	return BookingOptions{MaxNights: cfg.MaxNights, Rules: rules}, nil
}

// BookingService 房型、房间与预订服务
type BookingService struct {
	roomRepo        repository.RoomRepository
	reservationRepo repository.ReservationRepository
	cache           CatalogCache
	opts            BookingOptions
}

// NewBookingService 创建预订服务
func NewBookingService(roomRepo repository.RoomRepository, reservationRepo repository.ReservationRepository, cache CatalogCache, opts BookingOptions) *BookingService {
	return &BookingService{roomRepo: roomRepo, reservationRepo: reservationRepo, cache: cache, opts: opts}
}

// RoomTypeInput 房型输入
type RoomTypeInput struct {
	Name        string
	Description string
	NightlyRate decimal.Decimal
	Capacity    int
}

// RoomInput 房间输入
type RoomInput struct {
	RoomTypeID uint
	Number     string
	Floor      int
	IsActive   *bool
}

// ReservationInput 预订输入，日期区间为 [StartDate, EndDate)
type ReservationInput struct {
	RoomID       uint
	StartDate    time.Time
	EndDate      time.Time
	Guests       int
	ContactName  string
	ContactEmail string
	ContactPhone string
	Note         string
}

// DeleteRoomTypeResult 强制删除房型的级联结果
type DeleteRoomTypeResult struct {
	RoomsDeleted          int64 `json:"rooms_deleted"`
	ReservationsCancelled int64 `json:"reservations_cancelled"`
}

// ListRoomTypes 房型列表
func (s *BookingService) ListRoomTypes(ctx context.Context) ([]models.RoomType, error) {
	return s.roomRepo.ListRoomTypes(ctx)
}

// CreateRoomType 创建房型
func (s *BookingService) CreateRoomType(ctx context.Context, input RoomTypeInput) (*models.RoomType, error) {
	roomType := &models.RoomType{}
	if err := applyRoomType(roomType, input); err != nil {
		return nil, err
	}
	if err := s.roomRepo.CreateRoomType(ctx, roomType); err != nil {
		return nil, ClassifyDBError(err)
	}
	bumpCatalog(ctx, s.cache)
	logger.Infow("room_type_created", "room_type_id", roomType.ID)
	return roomType, nil
}

// UpdateRoomType 更新房型
func (s *BookingService) UpdateRoomType(ctx context.Context, id uint, input RoomTypeInput) (*models.RoomType, error) {
	roomType, err := s.roomRepo.GetRoomType(ctx, id)
	if err != nil {
		return nil, err
	}
	if roomType == nil {
		return nil, ErrRoomTypeNotFound
	}
	if err := applyRoomType(roomType, input); err != nil {
		return nil, err
	}
	if err := s.roomRepo.UpdateRoomType(ctx, roomType); err != nil {
		return nil, ClassifyDBError(err)
	}
	bumpCatalog(ctx, s.cache)
	logger.Infow("room_type_updated", "room_type_id", roomType.ID)
	return roomType, nil
}

// DeleteRoomType 删除房型；存在房间时需 force，级联删除房间并取消其未结束预订
func (s *BookingService) DeleteRoomType(ctx context.Context, id uint, force bool) (*DeleteRoomTypeResult, error) {
	result := &DeleteRoomTypeResult{}
	err := s.roomRepo.Transaction(ctx, func(tx *gorm.DB) error {
		rooms := s.roomRepo.WithTx(tx)
		reservations := s.reservationRepo.WithTx(tx)

		roomType, err := rooms.GetRoomType(ctx, id)
		if err != nil {
			return err
		}
		if roomType == nil {
			return ErrRoomTypeNotFound
		}
		count, err := rooms.CountRoomsByType(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			if !force {
				return ErrRoomTypeInUse
			}
			roomIDs, err := rooms.RoomIDsByType(ctx, id)
			if err != nil {
				return err
			}
			if result.ReservationsCancelled, err = reservations.CancelActiveByRooms(ctx, roomIDs, time.Now().UTC()); err != nil {
				return err
			}
			if result.RoomsDeleted, err = rooms.DeleteRoomsByType(ctx, id); err != nil {
				return err
			}
		}
		affected, err := rooms.DeleteRoomType(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrRoomTypeNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	bumpCatalog(ctx, s.cache)
	logger.Infow("room_type_deleted",
		"room_type_id", id,
		"force", force,
		"rooms_deleted", result.RoomsDeleted,
		"reservations_cancelled", result.ReservationsCancelled,
	)
	return result, nil
}

// ListRoomsByType 房型下的房间，onlyActive 仅返回可预订房间
func (s *BookingService) ListRoomsByType(ctx context.Context, roomTypeID uint, onlyActive bool) ([]models.Room, error) {
	roomType, err := s.roomRepo.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}
	if roomType == nil {
		return nil, ErrRoomTypeNotFound
	}
	return s.roomRepo.ListRoomsByType(ctx, roomTypeID, onlyActive)
}

// CreateRoom 创建房间
func (s *BookingService) CreateRoom(ctx context.Context, input RoomInput) (*models.Room, error) {
	room := &models.Room{IsActive: true}
	if err := s.applyRoom(ctx, room, input); err != nil {
		return nil, err
	}
	if err := s.roomRepo.CreateRoom(ctx, room); err != nil {
		return nil, roomConflict(err)
	}
	bumpCatalog(ctx, s.cache)
	logger.Infow("room_created", "room_id", room.ID, "room_type_id", room.RoomTypeID, "number", room.Number)
	return room, nil
}

// UpdateRoom 更新房间
func (s *BookingService) UpdateRoom(ctx context.Context, id uint, input RoomInput) (*models.Room, error) {
	room, err := s.roomRepo.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	room.RoomType = nil
	if err := s.applyRoom(ctx, room, input); err != nil {
		return nil, err
	}
	if err := s.roomRepo.UpdateRoom(ctx, room); err != nil {
		return nil, roomConflict(err)
	}
	bumpCatalog(ctx, s.cache)
	logger.Infow("room_updated", "room_id", room.ID)
	return room, nil
}

// DeleteRoom 软删除房间并取消其未结束预订
func (s *BookingService) DeleteRoom(ctx context.Context, id uint) error {
	var cancelled int64
	err := s.roomRepo.Transaction(ctx, func(tx *gorm.DB) error {
		rooms := s.roomRepo.WithTx(tx)
		room, err := rooms.LockRoom(ctx, id)
		if err != nil {
			return err
		}
		if room == nil {
			return ErrRoomNotFound
		}
		if cancelled, err = s.reservationRepo.WithTx(tx).CancelActiveByRooms(ctx, []uint{id}, time.Now().UTC()); err != nil {
			return err
		}
		_, err = rooms.DeleteRoom(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	bumpCatalog(ctx, s.cache)
	logger.Infow("room_deleted", "room_id", id, "reservations_cancelled", cancelled)
	return nil
}

// CreateReservation 创建待确认预订。
// 在房间行锁内检查与已确认预订的重叠并写入，同一房间的并发预订被串行化。
func (s *BookingService) CreateReservation(ctx context.Context, input ReservationInput) (*models.Reservation, error) {
	start, end := truncateDay(input.StartDate), truncateDay(input.EndDate)
	if !start.Before(end) {
		return nil, ErrReservationRange
	}
	nights := int(end.Sub(start).Hours() / 24)
	if s.opts.MaxNights > 0 && nights > s.opts.MaxNights {
		return nil, ErrReservationTooLong
	}
	guests := input.Guests
	if guests <= 0 {
		guests = 1
	}
	contactName := strings.TrimSpace(input.ContactName)
	if contactName == "" {
		return nil, ErrReservationContact
	}

	reservation := &models.Reservation{
		RoomID:       input.RoomID,
		StartDate:    datatypes.Date(start),
		EndDate:      datatypes.Date(end),
		Guests:       guests,
		ContactName:  contactName,
		ContactEmail: strings.TrimSpace(input.ContactEmail),
		ContactPhone: strings.TrimSpace(input.ContactPhone),
		Note:         strings.TrimSpace(input.Note),
		Status:       constants.ReservationStatusPending,
	}

	err := s.reservationRepo.Transaction(ctx, func(tx *gorm.DB) error {
		room, err := s.roomRepo.WithTx(tx).LockRoom(ctx, input.RoomID)
		if err != nil {
			return err
		}
		if room == nil {
			return ErrRoomNotFound
		}
		if !room.IsActive || room.RoomType == nil {
			return ErrRoomUnavailable
		}
		if guests > room.RoomType.Capacity {
			return ErrReservationGuests
		}
		if err := s.opts.Rules.Check(ReservationRuleEnv{
			ContactName:  reservation.ContactName,
			ContactEmail: reservation.ContactEmail,
			ContactPhone: reservation.ContactPhone,
			Guests:       guests,
			Nights:       nights,
			Capacity:     room.RoomType.Capacity,
		}); err != nil {
			return err
		}

		repo := s.reservationRepo.WithTx(tx)
		overlapping, err := repo.CountOverlapping(ctx, room.ID, start, end, 0)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return ErrBookingConflict
		}
		return repo.Create(ctx, reservation)
	})
	if err != nil {
		if errors.Is(err, ErrBookingConflict) {
			logger.Infow("reservation_conflict", "room_id", input.RoomID, "start", start.Format(constants.DateLayout), "end", end.Format(constants.DateLayout))
		}
		return nil, ClassifyDBError(err)
	}
	logger.Infow("reservation_created", "reservation_id", reservation.ID, "room_id", reservation.RoomID, "nights", nights)
	return reservation, nil
}

// UpdateReservationStatus 变更预订状态；确认时在房间锁内复查重叠
func (s *BookingService) UpdateReservationStatus(ctx context.Context, id uint, status string) (*models.Reservation, error) {
	target := strings.ToLower(strings.TrimSpace(status))
	switch target {
	case constants.ReservationStatusPending, constants.ReservationStatusConfirmed, constants.ReservationStatusCancelled:
	default:
		return nil, ErrReservationStatusBad
	}

	current, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrReservationNotFound
	}

	var from string
	err = s.reservationRepo.Transaction(ctx, func(tx *gorm.DB) error {
		// 先锁房间再锁预订，与创建预订的加锁顺序一致
		if _, err := s.roomRepo.WithTx(tx).LockRoom(ctx, current.RoomID); err != nil {
			return err
		}
		repo := s.reservationRepo.WithTx(tx)
		reservation, err := repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if reservation == nil {
			return ErrReservationNotFound
		}
		from = reservation.Status
		if !reservationTransitions[from][target] {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
		}
		if target == constants.ReservationStatusConfirmed {
			overlapping, err := repo.CountOverlapping(ctx, reservation.RoomID, reservation.Start(), reservation.End(), reservation.ID)
			if err != nil {
				return err
			}
			if overlapping > 0 {
				return ErrBookingConflict
			}
		}
		affected, err := repo.TransitionStatus(ctx, id, []string{from}, target, time.Now().UTC())
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return nil, ClassifyDBError(err)
	}
	logger.Infow("reservation_status_changed", "reservation_id", id, "from", from, "to", target)

	updated, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrReservationNotFound
	}
	return updated, nil
}

// ListReservations 预订列表
func (s *BookingService) ListReservations(ctx context.Context, filter repository.ReservationListFilter) ([]models.Reservation, int64, error) {
	if filter.Status != "" {
		switch filter.Status {
		case constants.ReservationStatusPending, constants.ReservationStatusConfirmed, constants.ReservationStatusCancelled:
		default:
			return nil, 0, ErrReservationStatusBad
		}
	}
	return s.reservationRepo.List(ctx, filter)
}

// CountReservationsByStatus 按状态统计预订
func (s *BookingService) CountReservationsByStatus(ctx context.Context) (map[string]int64, error) {
	return s.reservationRepo.CountByStatus(ctx)
}

func applyRoomType(roomType *models.RoomType, input RoomTypeInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrRoomTypeInvalid)
	}
	rate := input.NightlyRate.Round(2)
	if !rate.IsPositive() {
		return fmt.Errorf("%w: nightly rate must be greater than 0", ErrRoomTypeInvalid)
	}
	if input.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be at least 1", ErrRoomTypeInvalid)
	}
	roomType.Name = name
	roomType.Description = strings.TrimSpace(input.Description)
	roomType.NightlyRate = models.NewMoneyFromDecimal(rate)
	roomType.Capacity = input.Capacity
	return nil
}

func (s *BookingService) applyRoom(ctx context.Context, room *models.Room, input RoomInput) error {
	number := strings.TrimSpace(input.Number)
	if number == "" || len(number) > 50 {
		return fmt.Errorf("%w: number is required", ErrRoomInvalid)
	}
	if input.RoomTypeID == 0 {
		return fmt.Errorf("%w: room type is required", ErrRoomInvalid)
	}
	roomType, err := s.roomRepo.GetRoomType(ctx, input.RoomTypeID)
	if err != nil {
		return err
	}
	if roomType == nil {
		return ErrRoomTypeNotFound
	}
	count, err := s.roomRepo.CountByNumber(ctx, number, room.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRoomNumberExists
	}
	room.RoomTypeID = roomType.ID
	room.Number = number
	room.Floor = input.Floor
	if input.IsActive != nil {
		room.IsActive = *input.IsActive
	}
	return nil
}

func roomConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrRoomNumberExists
	}
	return ClassifyDBError(err)
}
