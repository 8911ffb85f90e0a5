package admin

import (
	handlershared "github.com/cabinstay/internal/http/handlers/shared"
	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CategoryRequest 分类请求；更新时省略的字段保持不变
type CategoryRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
}

func (r CategoryRequest) toInput() service.CategoryInput {
	return service.CategoryInput{Name: r.Name, Slug: r.Slug, Description: r.Description}
}

// GetAdminCategories 获取分类列表 (Admin)
func (h *Handler) GetAdminCategories(c *gin.Context) {
	categories, err := h.CategoryService.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, categories)
}

// CreateCategory 创建分类
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	category, err := h.CategoryService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory 更新分类
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	category, err := h.CategoryService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, category)
}

// DeleteCategory 删除分类，其商品的分类引用被置空
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.CategoryService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// ProductRequest 商品请求（更新为整体替换）
type ProductRequest struct {
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Price          decimal.Decimal       `json:"price"`
	CategoryID     *uint                 `json:"category_id"`
	Stock          int                   `json:"stock"`
	MainImage      string                `json:"main_image"`
	Images         []string              `json:"images"`
	Specifications models.Specifications `json:"specifications"`
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:           r.Name,
		Description:    r.Description,
		Price:          r.Price,
		CategoryID:     r.CategoryID,
		Stock:          r.Stock,
		MainImage:      r.MainImage,
		Images:         r.Images,
		Specifications: r.Specifications,
	}
}

// GetAdminProducts 获取商品列表 (Admin)，直接读库不走列表缓存
func (h *Handler) GetAdminProducts(c *gin.Context) {
	filter, ok := handlershared.ProductFilterFromQuery(c)
	if !ok {
		return
	}
	items := make([]models.ProductListItem, 0, filter.PageSize)
	for item, err := range h.ProductService.Iterate(c.Request.Context(), filter) {
		if err != nil {
			respondServiceError(c, err)
			return
		}
		items = append(items, item)
	}
	response.Success(c, gin.H{"items": items, "page": filter.Page, "page_size": filter.PageSize})
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.ProductService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.ProductService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.ProductService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
