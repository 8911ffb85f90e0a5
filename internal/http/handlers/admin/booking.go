package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/cabinstay/internal/http/handlers/shared"
	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/repository"
	"github.com/cabinstay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RoomTypeRequest 房型请求
type RoomTypeRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	NightlyRate decimal.Decimal `json:"nightly_rate"`
	Capacity    int             `json:"capacity"`
}

func (r RoomTypeRequest) toInput() service.RoomTypeInput {
	return service.RoomTypeInput{
		Name:        r.Name,
		Description: r.Description,
		NightlyRate: r.NightlyRate,
		Capacity:    r.Capacity,
	}
}

// GetAdminRoomTypes 房型列表
func (h *Handler) GetAdminRoomTypes(c *gin.Context) {
	roomTypes, err := h.BookingService.ListRoomTypes(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, roomTypes)
}

// CreateRoomType 创建房型
func (h *Handler) CreateRoomType(c *gin.Context) {
	var req RoomTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	roomType, err := h.BookingService.CreateRoomType(c.Request.Context(), req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, roomType)
}

// UpdateRoomType 更新房型
func (h *Handler) UpdateRoomType(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req RoomTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	roomType, err := h.BookingService.UpdateRoomType(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, roomType)
}

// DeleteRoomType 删除房型；force=true 时级联删除房间并取消其预订
func (h *Handler) DeleteRoomType(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	force := false
	if raw := strings.TrimSpace(c.Query("force")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		force = parsed
	}
	result, err := h.BookingService.DeleteRoomType(c.Request.Context(), id, force)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// RoomRequest 房间请求
type RoomRequest struct {
	RoomTypeID uint   `json:"room_type_id"`
	Number     string `json:"number"`
	Floor      int    `json:"floor"`
	IsActive   *bool  `json:"is_active"`
}

func (r RoomRequest) toInput() service.RoomInput {
	return service.RoomInput{
		RoomTypeID: r.RoomTypeID,
		Number:     r.Number,
		Floor:      r.Floor,
		IsActive:   r.IsActive,
	}
}

// CreateRoom 创建房间
func (h *Handler) CreateRoom(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	room, err := h.BookingService.CreateRoom(c.Request.Context(), req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, room)
}

// UpdateRoom 更新房间
func (h *Handler) UpdateRoom(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	room, err := h.BookingService.UpdateRoom(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, room)
}

// DeleteRoom 删除房间（软删除）
func (h *Handler) DeleteRoom(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.BookingService.DeleteRoom(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// GetAdminReservations 预订列表，支持 status、room_id、from、to 过滤
func (h *Handler) GetAdminReservations(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	filter := repository.ReservationListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if raw := strings.TrimSpace(c.Query("room_id")); raw != "" {
		roomID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		filter.RoomID = uint(roomID)
	}
	var ok bool
	if filter.From, ok = handlershared.QueryDate(c, "from"); !ok {
		return
	}
	if filter.To, ok = handlershared.QueryDate(c, "to"); !ok {
		return
	}

	reservations, total, err := h.BookingService.ListReservations(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, reservations, response.NewPagination(page, pageSize, total))
}

// ReservationStatusRequest 预订状态变更请求
type ReservationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateReservationStatus 变更预订状态；确认时重新检查日期冲突
func (h *Handler) UpdateReservationStatus(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReservationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	reservation, err := h.BookingService.UpdateReservationStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, reservation)
}
