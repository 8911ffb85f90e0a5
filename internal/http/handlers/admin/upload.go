package admin

import (
	"strings"

	"github.com/cabinstay/internal/http/response"

	"github.com/gin-gonic/gin"
)

// UploadFile 上传图片，scene 取 product / category / room
func (h *Handler) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.file_missing", err)
		return
	}
	scene := strings.TrimSpace(c.PostForm("scene"))

	result, err := h.UploadService.Save(file, scene)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_file_uploaded", "scene", scene, "url", result.URL, "size", result.Size)
	response.Created(c, result)
}
