package public

import (
	handlershared "github.com/cabinstay/internal/http/handlers/shared"
	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/service"

	"github.com/gin-gonic/gin"
)

// GetRoomTypes 房型列表
func (h *Handler) GetRoomTypes(c *gin.Context) {
	roomTypes, err := h.BookingService.ListRoomTypes(c.Request.Context())
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Success(c, roomTypes)
}

// GetRoomsByType 房型下可预订的房间
func (h *Handler) GetRoomsByType(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	rooms, err := h.BookingService.ListRoomsByType(c.Request.Context(), id, true)
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Success(c, rooms)
}

// CreateReservationRequest 前台预订请求，日期为 YYYY-MM-DD，区间 [start_date, end_date)
type CreateReservationRequest struct {
	RoomID       uint   `json:"room_id" binding:"required"`
	StartDate    string `json:"start_date" binding:"required"`
	EndDate      string `json:"end_date" binding:"required"`
	Guests       int    `json:"guests"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Note         string `json:"note"`
	CaptchaID    string `json:"captcha_id"`
	CaptchaCode  string `json:"captcha_code"`
}

// CreateReservation 创建待确认预订
func (h *Handler) CreateReservation(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.CaptchaService.Verify(req.CaptchaID, req.CaptchaCode); err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	start, err := service.ParseDate(req.StartDate)
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	end, err := service.ParseDate(req.EndDate)
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}

	reservation, err := h.BookingService.CreateReservation(c.Request.Context(), service.ReservationInput{
		RoomID:       req.RoomID,
		StartDate:    start,
		EndDate:      end,
		Guests:       req.Guests,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Note:         req.Note,
	})
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Created(c, reservation)
}
