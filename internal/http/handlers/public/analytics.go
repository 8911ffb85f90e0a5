package public

import (
	handlershared "github.com/cabinstay/internal/http/handlers/shared"
	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/service"

	"github.com/gin-gonic/gin"
)

// PageViewRequest 页面访问上报
type PageViewRequest struct {
	PageURL   string `json:"page_url"`
	Referrer  string `json:"referrer"`
	SessionID string `json:"session_id"`
}

// RecordPageView 追加一条访问事件，IP 与 UA 取自请求
func (h *Handler) RecordPageView(c *gin.Context) {
	var req PageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	err := h.AnalyticsService.RecordPageView(c.Request.Context(), service.PageViewInput{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		PageURL:   req.PageURL,
		Referrer:  req.Referrer,
		SessionID: req.SessionID,
	})
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Created(c, gin.H{"recorded": true})
}
