package handler

import (
	"github.com/gin-gonic/gin"

	"ultra-prompt-ai-api/internal/application/project"
	"ultra-prompt-ai-api/internal/application/session"
	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
	"ultra-prompt-ai-api/internal/interfaces/http/dto"
	"ultra-prompt-ai-api/internal/interfaces/http/middleware"
	"ultra-prompt-ai-api/pkg/logger"
)

// ProjectHandler 已保存项目处理器
type ProjectHandler struct {
	projects *project.Service
	sessions *session.Manager
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(projects *project.Service, sessions *session.Manager) *ProjectHandler {
	return &ProjectHandler{projects: projects, sessions: sessions}
}

// ListProjects 获取项目列表
// @Summary 获取项目列表
// @Description 列出调用方指纹下的项目，按更新时间倒序
// @Tags Projects
// @Produce json
// @Param content_type query string false "内容类型"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ct := entity.ContentType(c.Query("content_type"))
	if ct != "" && !ct.Valid() {
		dto.BadRequest(c, "unknown content_type")
		return
	}
	pageReq := dto.BindPage(c)

	result, err := h.projects.List(c.Request.Context(), middleware.OwnerFromGin(c), ct,
		repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		dto.FromError(c, err)
		return
	}

	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToProjectListResponse(result.Items), meta)
}

// GetProject 获取项目详情
// @Summary 获取项目详情
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), c.Param("pid"), middleware.OwnerFromGin(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToProjectResponse(p))
}

// DeleteProject 删除项目，本实例上打开该项目的会话回到 idle
// @Summary 删除项目
// @Tags Projects
// @Param pid path string true "项目 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("pid")
	if err := h.projects.Delete(ctx, id, middleware.OwnerFromGin(c)); err != nil {
		dto.FromError(c, err)
		return
	}
	if n := h.sessions.ForgetProject(ctx, id); n > 0 {
		logger.Info(ctx, "sessions released deleted project", "project_id", id, "sessions", n)
	}
	dto.NoContent(c)
}
