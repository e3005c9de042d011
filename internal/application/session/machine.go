package session

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"ultra-prompt-ai-api/internal/application/edit"
	"ultra-prompt-ai-api/internal/application/qa"
	"ultra-prompt-ai-api/internal/application/refine"
	"ultra-prompt-ai-api/internal/domain/entity"
	workflowport "ultra-prompt-ai-api/internal/workflow/port"
	apperrors "ultra-prompt-ai-api/pkg/errors"
	"ultra-prompt-ai-api/pkg/logger"
	"ultra-prompt-ai-api/pkg/metrics"
)

// ProjectSink 持久化协作方，每次文档替换后以同一项目 id 写入
type ProjectSink interface {
	Save(ctx context.Context, p *entity.SavedProject) error
}

// Options 状态机的可调参数
type Options struct {
	ConceptMaxChars int
	MaxImages       int
	Sentinel        string
	Now             func() time.Time
	NewProjectID    func() string
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewProjectID == nil {
		o.NewProjectID = func() string { return uuid.NewString() }
	}
	return o
}

// Machine 单个会话的状态机，持有唯一的当前文档
//
// 同一时刻只允许一个远端调用在途；第二次触发返回 ErrSessionBusy。
// 每次在途调用携带 generation 令牌，Reset 等放弃操作会递增令牌，
// 迟到的响应因令牌不匹配被丢弃。
// 文档每次替换递增 revision，持久化按 revision 单调写入，旧版本不会覆盖新版本。
type Machine struct {
	id     string
	owner  entity.OwnerFingerprint
	client workflowport.GenerationClient
	engine *refine.Engine
	sink   ProjectSink
	opts   Options

	mu         sync.Mutex
	stage      Stage
	generation uint64
	inputs     Inputs
	questions  []entity.Question
	answers    map[int]string
	doc        *entity.GenerationDocument
	request    entity.GenerationRequest
	projectID  string
	createdAt  time.Time
	lastErr    error
	updatedAt  time.Time
	revision   uint64

	// persistMu 串行化同一会话的写入，persisted 为已写入的最新 revision
	persistMu sync.Mutex
	persisted uint64
}

// NewMachine 创建处于 idle 阶段的状态机
func NewMachine(id string, owner entity.OwnerFingerprint, client workflowport.GenerationClient, sink ProjectSink, opts Options) *Machine {
	opts = opts.withDefaults()
	return &Machine{
		id:        id,
		owner:     owner,
		client:    client,
		engine:    refine.NewEngine(client),
		sink:      sink,
		opts:      opts,
		stage:     StageIdle,
		answers:   map[int]string{},
		updatedAt: opts.Now(),
	}
}

func (m *Machine) ID() string { return m.id }

// Snapshot 返回当前状态的副本
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		ID:         m.id,
		Stage:      m.stage,
		Owner:      m.owner,
		Inputs:     Inputs{Concept: m.inputs.Concept, Images: slices.Clone(m.inputs.Images), Options: m.inputs.Options},
		Questions:  slices.Clone(m.questions),
		Answers:    maps.Clone(m.answers),
		Document:   m.doc,
		ProjectID:  m.projectID,
		UpdatedAt:  m.updatedAt,
		Generation: m.generation,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// Stage 当前阶段
func (m *Machine) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

func (m *Machine) idleSince(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage.InFlight() {
		return 0
	}
	return now.Sub(m.updatedAt)
}

// SetInputs 设置概念、参考图与选项，仅在 idle 与 questionsReady 阶段允许
func (m *Machine) SetInputs(in Inputs) error {
	if entity.ConceptTooLong(in.Concept, m.opts.ConceptMaxChars) {
		return apperrors.PreconditionError(fmt.Sprintf("concept exceeds %d characters", m.opts.ConceptMaxChars))
	}
	if m.opts.MaxImages > 0 && len(in.Images) > m.opts.MaxImages {
		return apperrors.PreconditionError(fmt.Sprintf("at most %d reference images", m.opts.MaxImages))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireLocked(StageIdle, StageQuestionsReady); err != nil {
		return err
	}
	m.inputs = Inputs{Concept: in.Concept, Images: slices.Clone(in.Images), Options: in.Options.WithDefaults()}
	m.touchLocked()
	return nil
}

// ProposeQuestions idle → awaitingQuestions → questionsReady；失败回到 idle 且保留输入
func (m *Machine) ProposeQuestions(ctx context.Context) error {
	m.mu.Lock()
	if err := m.requireLocked(StageIdle); err != nil {
		m.mu.Unlock()
		return err
	}
	if !entity.HasInput(m.inputs.Concept, m.inputs.Images) {
		m.mu.Unlock()
		return apperrors.ErrEmptyInput
	}
	in := entity.QuestionsInput{
		Concept:     m.inputs.Concept,
		Images:      slices.Clone(m.inputs.Images),
		ContentType: m.inputs.Options.ContentType,
		Style:       m.inputs.Options.Style,
		Mode:        m.inputs.Options.Mode,
	}
	token := m.beginLocked(ctx, StageAwaitingQuestions)
	m.mu.Unlock()

	questions, err := m.client.ProposeQuestions(ctx, in)
	if err == nil {
		err = qa.Validate(questions)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(ctx, token, "questions") {
		return apperrors.ErrStaleResponse
	}
	if err != nil {
		m.failLocked(ctx, StageIdle, err)
		return err
	}
	m.questions = questions
	m.answers = map[int]string{}
	m.transitionLocked(ctx, StageQuestionsReady, "ok")
	return nil
}

// UseQuestions 采用已有的问题批次，idle → questionsReady，不调用远端
// 用于重放之前保存的问题，批次校验规则与 ProposeQuestions 相同。
func (m *Machine) UseQuestions(ctx context.Context, questions []entity.Question) error {
	if err := qa.Validate(questions); err != nil {
		return apperrors.PreconditionError("invalid question batch").WithError(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireLocked(StageIdle); err != nil {
		return err
	}
	if !entity.HasInput(m.inputs.Concept, m.inputs.Images) {
		return apperrors.ErrEmptyInput
	}
	m.questions = slices.Clone(questions)
	m.answers = map[int]string{}
	m.transitionLocked(ctx, StageQuestionsReady, "loaded")
	return nil
}

// SetAnswers 记录作答，不属于当前问题批次的 id 被忽略
func (m *Machine) SetAnswers(answers map[int]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireLocked(StageQuestionsReady); err != nil {
		return err
	}
	for id, a := range qa.KnownAnswers(m.questions, answers) {
		m.answers[id] = a
	}
	m.touchLocked()
	return nil
}

// Generate questionsReady → generating → documentReady；失败回到 questionsReady 且保留作答
func (m *Machine) Generate(ctx context.Context) error {
	m.mu.Lock()
	if err := m.requireLocked(StageQuestionsReady); err != nil {
		m.mu.Unlock()
		return err
	}
	if !entity.HasInput(m.inputs.Concept, m.inputs.Images) {
		m.mu.Unlock()
		return apperrors.ErrEmptyInput
	}
	req := entity.GenerationRequest{
		Concept:           m.inputs.Concept,
		ReferenceImages:   m.inputs.Images,
		AnsweredQuestions: qa.BuildAnswerMap(m.questions, m.answers, m.inputs.Options.ContentType, m.opts.Sentinel),
		GenerationOptions: m.inputs.Options,
	}.Clone()
	token := m.beginLocked(ctx, StageGenerating)
	m.mu.Unlock()

	doc, err := m.client.GenerateDocument(ctx, req)
	if err == nil && doc == nil {
		err = apperrors.ErrInvalidOutput.WithDetail("generation returned no document")
	}

	m.mu.Lock()
	if !m.currentLocked(ctx, token, "generate") {
		m.mu.Unlock()
		return apperrors.ErrStaleResponse
	}
	if err != nil {
		m.failLocked(ctx, StageQuestionsReady, err)
		m.mu.Unlock()
		return err
	}
	m.request = req
	if m.projectID == "" {
		m.projectID = m.opts.NewProjectID()
		m.createdAt = m.opts.Now()
	}
	m.setDocLocked(doc)
	m.transitionLocked(ctx, StageDocumentReady, "ok")
	project, rev := m.projectLocked()
	m.mu.Unlock()

	m.persist(ctx, project, rev)
	return nil
}

// Refine documentReady → refining → documentReady
// 附带的参考图只用于本次调用，无论成败调用结束后都会清空。
func (m *Machine) Refine(ctx context.Context, instruction string, images []entity.ReferenceImage) error {
	m.mu.Lock()
	if err := m.requireLocked(StageDocumentReady); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := workflowport.CheckRefine(m.doc, instruction); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.opts.MaxImages > 0 && len(images) > m.opts.MaxImages {
		m.mu.Unlock()
		return apperrors.PreconditionError(fmt.Sprintf("at most %d reference images", m.opts.MaxImages))
	}
	if len(images) > 0 {
		m.inputs.Images = slices.Clone(images)
	}
	current := m.doc
	ct := m.inputs.Options.ContentType
	attached := slices.Clone(m.inputs.Images)
	token := m.beginLocked(ctx, StageRefining)
	m.mu.Unlock()

	doc, err := m.engine.Global(ctx, current, ct, instruction, attached)

	m.mu.Lock()
	if !m.currentLocked(ctx, token, "refine") {
		m.mu.Unlock()
		return apperrors.ErrStaleResponse
	}
	m.inputs.Images = nil
	if err != nil {
		m.failLocked(ctx, StageDocumentReady, err)
		m.mu.Unlock()
		return err
	}
	m.setDocLocked(doc)
	m.transitionLocked(ctx, StageDocumentReady, "ok")
	project, rev := m.projectLocked()
	m.mu.Unlock()

	m.persist(ctx, project, rev)
	return nil
}

// RefineWithTweaks 以视觉滑块生成指令后整体精修
func (m *Machine) RefineWithTweaks(ctx context.Context, tweaks refine.VisualTweaks) error {
	return m.Refine(ctx, refine.TweakInstruction(tweaks), nil)
}

// Rewrite 单字段改写，结果拼接进完成时的当前文档
func (m *Machine) Rewrite(ctx context.Context, ref edit.FieldRef, instruction string) (string, error) {
	m.mu.Lock()
	if err := m.requireLocked(StageDocumentReady); err != nil {
		m.mu.Unlock()
		return "", err
	}
	if err := workflowport.CheckRewrite(instruction); err != nil {
		m.mu.Unlock()
		return "", err
	}
	if _, ok := edit.FieldValue(m.doc, ref); !ok {
		m.mu.Unlock()
		return "", apperrors.PreconditionError(fmt.Sprintf("field %s is not an editable text field", ref))
	}
	current := m.doc
	token := m.beginLocked(ctx, StageRefining)
	m.mu.Unlock()

	text, err := m.engine.Rewrite(ctx, current, ref, instruction)

	m.mu.Lock()
	if !m.currentLocked(ctx, token, "rewrite") {
		m.mu.Unlock()
		return "", apperrors.ErrStaleResponse
	}
	var doc *entity.GenerationDocument
	if err == nil {
		doc, err = refine.Splice(m.doc, ref, text)
	}
	if err != nil {
		m.failLocked(ctx, StageDocumentReady, err)
		m.mu.Unlock()
		return "", err
	}
	m.setDocLocked(doc)
	m.transitionLocked(ctx, StageDocumentReady, "ok")
	project, rev := m.projectLocked()
	m.mu.Unlock()

	m.persist(ctx, project, rev)
	return text, nil
}

// ApplyEdit 本地字段修改；没有文档、不在 documentReady、下标越界时静默忽略
func (m *Machine) ApplyEdit(ctx context.Context, e edit.Edit) bool {
	m.mu.Lock()
	if m.stage != StageDocumentReady || m.doc == nil {
		m.mu.Unlock()
		metrics.LocalEditsTotal.WithLabelValues(string(e.Kind), "noop").Inc()
		return false
	}
	doc, ok := edit.Apply(m.doc, e)
	if !ok {
		m.mu.Unlock()
		metrics.LocalEditsTotal.WithLabelValues(string(e.Kind), "noop").Inc()
		return false
	}
	m.setDocLocked(doc)
	m.touchLocked()
	project, rev := m.projectLocked()
	m.mu.Unlock()

	metrics.LocalEditsTotal.WithLabelValues(string(e.Kind), "applied").Inc()
	m.persist(ctx, project, rev)
	return true
}

// Reset 回到 idle 并清空全部状态，在途调用的响应将被丢弃
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	from := m.stage
	m.stage = StageIdle
	m.inputs = Inputs{}
	m.questions = nil
	m.answers = map[int]string{}
	m.setDocLocked(nil)
	m.request = entity.GenerationRequest{}
	m.projectID = ""
	m.createdAt = time.Time{}
	m.lastErr = nil
	m.touchLocked()
	metrics.SessionTransitions.WithLabelValues(string(from), string(StageIdle), "reset").Inc()
	logger.Info(m.logCtx(ctx), "session reset", "from", from)
}

// EditInputs documentReady → questionsReady，保留问题、作答与项目 id 以便重新生成
func (m *Machine) EditInputs(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireLocked(StageDocumentReady); err != nil {
		return err
	}
	m.transitionLocked(ctx, StageQuestionsReady, "ok")
	return nil
}

// LoadProject 打开已保存的项目，进入 documentReady
func (m *Machine) LoadProject(ctx context.Context, p *entity.SavedProject) error {
	if p == nil || p.Document == nil {
		return apperrors.ErrProjectNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireLocked(StageIdle, StageQuestionsReady, StageDocumentReady); err != nil {
		return err
	}
	m.generation++
	m.inputs = Inputs{
		Concept: p.ConceptExcerpt,
		Options: entity.GenerationOptions{ContentType: p.ContentType, Style: p.Style}.WithDefaults(),
	}
	m.questions = nil
	m.answers = map[int]string{}
	m.request = entity.GenerationRequest{Concept: p.ConceptExcerpt, GenerationOptions: m.inputs.Options}
	m.setDocLocked(p.Document)
	m.projectID = p.ID
	m.createdAt = p.CreatedAt
	m.lastErr = nil
	m.transitionLocked(ctx, StageDocumentReady, "loaded")
	return nil
}

// ForgetProject 项目被删除时调用：若正是当前项目则回到 idle
func (m *Machine) ForgetProject(ctx context.Context, projectID string) bool {
	m.mu.Lock()
	current := m.projectID
	m.mu.Unlock()
	if current == "" || current != projectID {
		return false
	}
	m.Reset(ctx)
	return true
}

func (m *Machine) requireLocked(allowed ...Stage) error {
	if m.stage.InFlight() {
		return apperrors.ErrSessionBusy.WithDetail(fmt.Sprintf("stage %s", m.stage))
	}
	if !slices.Contains(allowed, m.stage) {
		return apperrors.PreconditionError(fmt.Sprintf("operation not allowed in stage %s", m.stage))
	}
	return nil
}

func (m *Machine) beginLocked(ctx context.Context, to Stage) uint64 {
	m.lastErr = nil
	m.transitionLocked(ctx, to, "ok")
	return m.generation
}

// currentLocked 令牌过期时记录并丢弃响应
func (m *Machine) currentLocked(ctx context.Context, token uint64, op string) bool {
	if token == m.generation {
		return true
	}
	metrics.StaleResponsesDropped.WithLabelValues(op).Inc()
	logger.Warn(m.logCtx(ctx), "dropping stale response", "operation", op, "token", token, "current", m.generation)
	return false
}

func (m *Machine) failLocked(ctx context.Context, to Stage, err error) {
	m.lastErr = err
	from := m.stage
	m.stage = to
	m.touchLocked()
	metrics.SessionTransitions.WithLabelValues(string(from), string(to), "error").Inc()
	logger.Error(m.logCtx(ctx), "stage operation failed", err, "from", from, "to", to)
}

func (m *Machine) transitionLocked(ctx context.Context, to Stage, result string) {
	from := m.stage
	m.stage = to
	m.touchLocked()
	metrics.SessionTransitions.WithLabelValues(string(from), string(to), result).Inc()
	logger.Debug(m.logCtx(ctx), "stage transition", "from", from, "to", to)
}

func (m *Machine) touchLocked() {
	m.updatedAt = m.opts.Now()
}

func (m *Machine) setDocLocked(doc *entity.GenerationDocument) {
	m.doc = doc
	m.revision++
}

func (m *Machine) projectLocked() (*entity.SavedProject, uint64) {
	if m.sink == nil || m.doc == nil || m.projectID == "" {
		return nil, 0
	}
	p := entity.NewSavedProject(m.projectID, m.request, m.doc, m.owner, m.opts.Now())
	if !m.createdAt.IsZero() {
		p.CreatedAt = m.createdAt
	}
	return p, m.revision
}

// persist 持久化失败只记录日志，当前文档不受影响
// 等锁期间已有更新的 revision 写入时跳过本次写入。
func (m *Machine) persist(ctx context.Context, p *entity.SavedProject, rev uint64) {
	if p == nil {
		return
	}
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	if rev <= m.persisted {
		logger.Debug(m.logCtx(ctx), "skipping superseded save", "project_id", p.ID, "revision", rev, "persisted", m.persisted)
		return
	}
	if err := m.sink.Save(ctx, p); err != nil {
		logger.Error(m.logCtx(ctx), "failed to persist project", err, "project_id", p.ID)
		return
	}
	m.persisted = rev
}

func (m *Machine) logCtx(ctx context.Context) context.Context {
	return logger.WithContext(ctx, logger.SessionIDKey, m.id)
}
