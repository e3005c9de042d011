package handler

import (
	"github.com/gin-gonic/gin"

	"ultra-prompt-ai-api/internal/application/refine"
	"ultra-prompt-ai-api/internal/interfaces/http/dto"
)

// RewriteHandler 独立文本改写处理器，不依赖会话
type RewriteHandler struct {
	engine *refine.Engine
}

// NewRewriteHandler 创建改写处理器
func NewRewriteHandler(engine *refine.Engine) *RewriteHandler {
	return &RewriteHandler{engine: engine}
}

// RewriteText 按指令改写一段文本
// @Summary 文本改写
// @Tags Rewrite
// @Accept json
// @Produce json
// @Param body body dto.RewriteTextRequest true "原文与指令"
// @Success 200 {object} dto.Response[dto.RewriteTextResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/rewrite [post]
func (h *RewriteHandler) RewriteText(c *gin.Context) {
	var req dto.RewriteTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	text, err := h.engine.RewriteText(c.Request.Context(), req.CurrentText, req.Instruction)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.RewriteTextResponse{Text: text})
}
