package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/repository"
	"github.com/cabinstay/internal/service"

	"github.com/gin-gonic/gin"
)

// ProductFilterFromQuery 解析商品列表查询参数，失败时直接返回 400。
func ProductFilterFromQuery(c *gin.Context) (repository.ProductListFilter, bool) {
	page, pageSize := QueryPagination(c)
	filter := repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Search:       strings.TrimSpace(c.Query("search")),
	}
	if raw := strings.TrimSpace(c.Query("category_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			RespondError(c, response.CodeBadRequest, "error.bad_request", err)
			return filter, false
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}
	return filter, true
}

// QueryDate 解析可选的 YYYY-MM-DD 查询参数
func QueryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	day, err := service.ParseDate(raw)
	if err != nil {
		RespondServiceError(c, err)
		return nil, false
	}
	return &day, true
}
