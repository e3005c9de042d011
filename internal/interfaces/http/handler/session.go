package handler

import (
	"github.com/gin-gonic/gin"

	"ultra-prompt-ai-api/internal/application/project"
	"ultra-prompt-ai-api/internal/application/refine"
	"ultra-prompt-ai-api/internal/application/session"
	"ultra-prompt-ai-api/internal/interfaces/http/dto"
	"ultra-prompt-ai-api/internal/interfaces/http/middleware"
)

// SessionHandler 生成会话处理器
type SessionHandler struct {
	sessions *session.Manager
	projects *project.Service
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(sessions *session.Manager, projects *project.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions, projects: projects}
}

// machine 按路径 id 与调用方指纹取会话，失败时已写出响应
func (h *SessionHandler) machine(c *gin.Context) (*session.Machine, bool) {
	sm, err := h.sessions.Get(c.Param("sid"), middleware.OwnerFromGin(c))
	if err != nil {
		dto.FromError(c, err)
		return nil, false
	}
	return sm, true
}

func (h *SessionHandler) respond(c *gin.Context, sm *session.Machine, err error) {
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(sm.Snapshot()))
}

// CreateSession 创建会话
// @Summary 创建生成会话
// @Tags Sessions
// @Produce json
// @Success 201 {object} dto.Response[dto.SessionResponse]
// @Router /v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sm := h.sessions.Create(middleware.OwnerFromGin(c))
	dto.Created(c, dto.ToSessionResponse(sm.Snapshot()))
}

// GetSession 获取会话快照
// @Summary 获取会话
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	h.respond(c, sm, nil)
}

// DeleteSession 删除会话
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("sid"), middleware.OwnerFromGin(c)); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.NoContent(c)
}

// SetInputs 设置概念、参考图与生成选项
// @Summary 设置输入
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.SetInputsRequest true "输入"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/inputs [put]
func (h *SessionHandler) SetInputs(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	var req dto.SetInputsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	images, err := dto.ToReferenceImages(req.Images)
	if err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	h.respond(c, sm, sm.SetInputs(session.Inputs{Concept: req.Concept, Images: images, Options: req.Options}))
}

// ProposeQuestions 请求澄清问题
// @Summary 生成澄清问题
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/questions [post]
func (h *SessionHandler) ProposeQuestions(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	h.respond(c, sm, sm.ProposeQuestions(c.Request.Context()))
}

// SetAnswers 记录作答
func (h *SessionHandler) SetAnswers(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	var req dto.AnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.respond(c, sm, sm.SetAnswers(req.Answers))
}

// Generate 生成文档
// @Summary 生成文档
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/generate [post]
func (h *SessionHandler) Generate(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	h.respond(c, sm, sm.Generate(c.Request.Context()))
}

// Refine 整体精修：指令或视觉滑块二选一
// @Summary 整体精修
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.RefineRequest true "指令"
// @Success 200 {object} dto.Response[dto.RefineResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/refine [post]
func (h *SessionHandler) Refine(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	var req dto.RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	images, err := dto.ToReferenceImages(req.Images)
	if err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	before := sm.Snapshot().Document
	if req.Tweaks != nil && req.Instruction == "" {
		err = sm.RefineWithTweaks(c.Request.Context(), *req.Tweaks)
	} else {
		err = sm.Refine(c.Request.Context(), req.Instruction, images)
	}
	if err != nil {
		dto.FromError(c, err)
		return
	}

	snap := sm.Snapshot()
	resp := dto.RefineResponse{ChangedSections: []string{}, Session: dto.ToSessionResponse(snap)}
	if before != nil && snap.Document != nil {
		if s, err := refine.Summarize(before, snap.Document); err == nil {
			resp.ChangedSections = s.ChangedSections
		}
	}
	dto.Success(c, resp)
}

// RewriteField 单字段改写
// @Summary 单字段改写
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.FieldRewriteRequest true "字段与指令"
// @Success 200 {object} dto.Response[dto.FieldRewriteResponse]
// @Router /v1/sessions/{sid}/rewrite [post]
func (h *SessionHandler) RewriteField(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	var req dto.FieldRewriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	instruction := req.Instruction
	if req.Preset == "narration" {
		instruction = refine.NarrationPreset(sm.Snapshot().Inputs.Options.Language)
	}

	text, err := sm.Rewrite(c.Request.Context(), req.Ref(), instruction)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.FieldRewriteResponse{Text: text, Session: dto.ToSessionResponse(sm.Snapshot())})
}

// EditDocument 本地修改单个字段，无法应用时返回 applied=false
func (h *SessionHandler) EditDocument(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	var req dto.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	applied := sm.ApplyEdit(c.Request.Context(), req.ToEdit())
	dto.Success(c, dto.EditResponse{Applied: applied, Session: dto.ToSessionResponse(sm.Snapshot())})
}

// Reset 回到 idle
func (h *SessionHandler) Reset(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	sm.Reset(c.Request.Context())
	h.respond(c, sm, nil)
}

// EditInputs 回到 questionsReady 以修改输入后重新生成
func (h *SessionHandler) EditInputs(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	h.respond(c, sm, sm.EditInputs(c.Request.Context()))
}

// LoadProject 在会话中打开已保存项目
// @Summary 打开项目
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.LoadProjectRequest true "项目"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/load [post]
func (h *SessionHandler) LoadProject(c *gin.Context) {
	sm, ok := h.machine(c)
	if !ok {
		return
	}
	var req dto.LoadProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	p, err := h.projects.Get(c.Request.Context(), req.ProjectID, middleware.OwnerFromGin(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	h.respond(c, sm, sm.LoadProject(c.Request.Context(), p))
}
