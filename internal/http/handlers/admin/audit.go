package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/cabinstay/internal/http/handlers/shared"
	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAuditLogs 后台写操作审计日志
func (h *Handler) GetAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	filter := repository.AuditLogListFilter{
		Page:     page,
		PageSize: pageSize,
		Method:   strings.ToUpper(strings.TrimSpace(c.Query("method"))),
		Route:    strings.TrimSpace(c.Query("route")),
	}
	if raw := strings.TrimSpace(c.Query("admin_id")); raw != "" {
		adminID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		filter.AdminID = uint(adminID)
	}
	var ok bool
	if filter.CreatedFrom, ok = handlershared.QueryDate(c, "from"); !ok {
		return
	}
	if filter.CreatedTo, ok = handlershared.QueryDate(c, "to"); !ok {
		return
	}
	if filter.CreatedTo != nil {
		end := filter.CreatedTo.Add(24*time.Hour - time.Nanosecond)
		filter.CreatedTo = &end
	}

	logs, total, err := h.AuditService.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, logs, response.NewPagination(page, pageSize, total))
}
