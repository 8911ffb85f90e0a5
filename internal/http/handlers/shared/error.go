package shared

import (
	"context"
	"errors"

	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/i18n"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应；err 只写日志，不返回给调用方。
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		log := RequestLog(c)
		// 客户端断开不算服务端故障
		if code >= response.CodeInternal && !errors.Is(err, context.Canceled) {
			log.Errorw("handler_error", "code", appErr.Code, "message", appErr.Message, "error", err)
		} else {
			log.Infow("handler_rejected", "code", appErr.Code, "message", appErr.Message, "error", err)
		}
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// 具体错误到文案 key 的映射，按顺序匹配
var errorKeys = []struct {
	err error
	key string
}{
	{service.ErrSlugExists, "error.slug_exists"},
	{service.ErrSlugInvalid, "error.slug_invalid"},
	{service.ErrCategoryNameRequired, "error.category_name_required"},
	{service.ErrCategoryNotFound, "error.category_not_found"},
	{service.ErrProductNotFound, "error.product_not_found"},
	{service.ErrProductNameRequired, "error.product_name_required"},
	{service.ErrProductPriceInvalid, "error.product_price_invalid"},
	{service.ErrProductStockInvalid, "error.product_stock_invalid"},
	{service.ErrProductCategoryAbsent, "error.product_category_absent"},
	{service.ErrSpecificationInvalid, "error.specification_invalid"},
	{service.ErrRuleViolation, "error.rule_violation"},
	{service.ErrRoomTypeNotFound, "error.room_type_not_found"},
	{service.ErrRoomTypeInvalid, "error.room_type_invalid"},
	{service.ErrRoomTypeInUse, "error.room_type_in_use"},
	{service.ErrRoomNotFound, "error.room_not_found"},
	{service.ErrRoomInvalid, "error.room_invalid"},
	{service.ErrRoomNumberExists, "error.room_number_exists"},
	{service.ErrRoomUnavailable, "error.room_unavailable"},
	{service.ErrReservationNotFound, "error.reservation_not_found"},
	{service.ErrReservationRange, "error.reservation_range"},
	{service.ErrReservationTooLong, "error.reservation_too_long"},
	{service.ErrReservationGuests, "error.reservation_guests"},
	{service.ErrReservationContact, "error.reservation_contact"},
	{service.ErrReservationStatusBad, "error.reservation_status"},
	{service.ErrBookingConflict, "error.booking_conflict"},
	{service.ErrInvalidTransition, "error.invalid_transition"},
	{service.ErrStatDateInvalid, "error.stat_date_invalid"},
	{service.ErrStatCountsInvalid, "error.stat_counts_invalid"},
	{service.ErrPageViewInvalid, "error.page_view_invalid"},
	{service.ErrInvalidCredentials, "error.admin_login_invalid"},
	{service.ErrTokenInvalid, "error.token_invalid"},
	{service.ErrAdminExists, "error.admin_exists"},
	{service.ErrAdminInvalid, "error.admin_invalid"},
	{service.ErrCaptchaRequired, "error.captcha_required"},
	{service.ErrCaptchaInvalid, "error.captcha_invalid"},
	{service.ErrUploadInvalid, "error.upload_invalid"},
}

// 错误类别到 HTTP 状态码与通用文案
var kindStatus = map[error]struct {
	code int
	key  string
}{
	service.ErrValidation:        {response.CodeBadRequest, "error.validation"},
	service.ErrAuthentication:    {response.CodeUnauthorized, "error.unauthorized"},
	service.ErrAuthorization:     {response.CodeForbidden, "error.forbidden"},
	service.ErrNotFound:          {response.CodeNotFound, "error.not_found"},
	service.ErrConflict:          {response.CodeConflict, "error.conflict"},
	service.ErrBookingConflict:   {response.CodeConflict, "error.booking_conflict"},
	service.ErrInvalidTransition: {response.CodeConflict, "error.invalid_transition"},
	service.ErrTimeout:           {response.CodeGatewayTimeout, "error.timeout"},
	service.ErrInternal:          {response.CodeInternal, "error.internal"},
}

// MapError 返回错误对应的 HTTP 状态码与文案 key
func MapError(err error) (int, string) {
	kind := service.ErrorKind(service.ClassifyDBError(err))
	mapped := kindStatus[kind]
	if kind == service.ErrInternal {
		return mapped.code, mapped.key
	}
	for _, item := range errorKeys {
		if errors.Is(err, item.err) {
			return mapped.code, item.key
		}
	}
	return mapped.code, mapped.key
}

// RespondServiceError 按错误类别返回响应，内部错误细节仅记录日志。
func RespondServiceError(c *gin.Context, err error) {
	code, key := MapError(err)
	RespondError(c, code, key, err)
}
