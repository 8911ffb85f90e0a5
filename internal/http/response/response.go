package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 成功响应结构
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// PageResponse 分页成功响应结构
type PageResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// ErrorResponse 失败响应结构，仅包含可对外展示的消息
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// NewPagination 根据总数计算分页信息
func NewPagination(page, pageSize int, total int64) Pagination {
	totalPage := int64(0)
	if pageSize > 0 {
		totalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPage: totalPage}
}

// Success 200 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Created 201 成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{Success: true, Data: data, Pagination: pagination})
}

// Error 失败响应，HTTP 状态码与 status 字段一致
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{
		Success:   false,
		Error:     msg,
		Status:    status,
		RequestID: requestID(c),
	})
}

// Abort 失败响应并终止后续处理器
func Abort(c *gin.Context, status int, msg string) {
	Error(c, status, msg)
	c.Abort()
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value, ok := c.Get("request_id"); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
