package public

import (
	handlershared "github.com/cabinstay/internal/http/handlers/shared"
	"github.com/cabinstay/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetCategories 分类列表（附带商品数）
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.CategoryService.List(c.Request.Context())
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Success(c, categories)
}

// GetProducts 商品列表，支持 category_id、category（slug）、search 与分页
func (h *Handler) GetProducts(c *gin.Context) {
	filter, ok := handlershared.ProductFilterFromQuery(c)
	if !ok {
		return
	}
	items, total, err := h.ProductService.ListPublic(c.Request.Context(), filter)
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(filter.Page, filter.PageSize, total))
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.ProductService.Get(c.Request.Context(), id)
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Success(c, product)
}
