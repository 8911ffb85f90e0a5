package admin

import (
	"strings"
	"time"

	"github.com/cabinstay/internal/constants"
	handlershared "github.com/cabinstay/internal/http/handlers/shared"
	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/service"

	"github.com/gin-gonic/gin"
)

// DailyStatRequest 日汇总写入请求
type DailyStatRequest struct {
	Visitors       int64 `json:"visitors"`
	PageViews      int64 `json:"page_views"`
	UniqueVisitors int64 `json:"unique_visitors"`
}

// statRange 解析 from/to，缺省值由统计服务补齐
func statRange(c *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	parsed, ok := handlershared.QueryDate(c, "from")
	if !ok {
		return from, to, false
	}
	if parsed != nil {
		from = *parsed
	}
	if parsed, ok = handlershared.QueryDate(c, "to"); !ok {
		return from, to, false
	}
	if parsed != nil {
		to = *parsed
	}
	return from, to, true
}

// GetDailyStats 按日期区间获取日汇总
func (h *Handler) GetDailyStats(c *gin.Context) {
	from, to, ok := statRange(c)
	if !ok {
		return
	}
	stats, err := h.AnalyticsService.ListDailyStats(c.Request.Context(), from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stats)
}

// PutDailyStat 直接写入某日汇总，重复写入以最后一次为准
func (h *Handler) PutDailyStat(c *gin.Context) {
	day, err := service.ParseDate(c.Param("date"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	var req DailyStatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	stat, err := h.AnalyticsService.UpsertDailyStat(c.Request.Context(), day, req.Visitors, req.PageViews, req.UniqueVisitors)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stat)
}

// TriggerRollup 触发某日汇总：队列可用时入队，否则同步执行
func (h *Handler) TriggerRollup(c *gin.Context) {
	day := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := service.ParseDate(raw)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		day = parsed
	}

	if h.QueueClient.Enabled() {
		queued, err := h.QueueClient.EnqueueAnalyticsRollup(c.Request.Context(), day)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		response.Success(c, gin.H{"date": day.Format(constants.DateLayout), "queued": queued})
		return
	}

	stat, err := h.AnalyticsService.RollupDay(c.Request.Context(), day)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"date": day.Format(constants.DateLayout), "queued": false, "stat": stat})
}

// GetAnalyticsOverview 区间汇总与预订状态统计
func (h *Handler) GetAnalyticsOverview(c *gin.Context) {
	from, to, ok := statRange(c)
	if !ok {
		return
	}
	overview, err := h.AnalyticsService.Overview(c.Request.Context(), from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, overview)
}
