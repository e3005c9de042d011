package handler

import (
	"github.com/gin-gonic/gin"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/interfaces/http/dto"
)

// OptionsHandler 选项目录处理器
type OptionsHandler struct{}

// NewOptionsHandler 创建选项目录处理器
func NewOptionsHandler() *OptionsHandler {
	return &OptionsHandler{}
}

// GetOptions 返回风格、比例、语言等可选项
// @Summary 选项目录
// @Tags Options
// @Produce json
// @Success 200 {object} dto.Response[entity.Catalog]
// @Router /v1/options [get]
func (h *OptionsHandler) GetOptions(c *gin.Context) {
	dto.Success(c, entity.Options())
}
