// Package gemini 基于 google.golang.org/genai 的 GenerationClient
package gemini

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"ultra-prompt-ai-api/internal/config"
	"ultra-prompt-ai-api/internal/domain/entity"
	einoobs "ultra-prompt-ai-api/internal/observability/eino"
	"ultra-prompt-ai-api/internal/workflow/docschema"
	workflowport "ultra-prompt-ai-api/internal/workflow/port"
	workflowprompt "ultra-prompt-ai-api/internal/workflow/prompt"
	apperrors "ultra-prompt-ai-api/pkg/errors"
	"ultra-prompt-ai-api/pkg/logger"
)

const (
	defaultProModel  = "gemini-2.5-pro"
	defaultFastModel = "gemini-2.5-flash"
)

var _ workflowport.GenerationClient = (*Client)(nil)

// contentGenerator genai.Models 的最小子集
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client Gemini 生成客户端，底层 genai.Client 在首次调用时创建
type Client struct {
	provider string
	cfg      config.ProviderConfig
	prompts  *workflowprompt.Registry

	mu     sync.Mutex
	models contentGenerator
}

func NewClient(provider string, cfg config.ProviderConfig, prompts *workflowprompt.Registry) *Client {
	if prompts == nil {
		prompts = workflowprompt.Default()
	}
	return &Client{provider: provider, cfg: cfg, prompts: prompts}
}

func (c *Client) generator(ctx context.Context) (contentGenerator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models != nil {
		return c.models, nil
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, apperrors.ErrNoCredential.WithDetail("provider " + c.provider)
	}

	cc := &genai.ClientConfig{APIKey: c.cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigError, "failed to create gemini client")
	}
	c.models = client.Models
	return c.models, nil
}

func (c *Client) ProposeQuestions(ctx context.Context, in entity.QuestionsInput) ([]entity.Question, error) {
	gen, err := c.generator(ctx)
	if err != nil {
		return nil, err
	}
	if err := workflowport.CheckQuestionsInput(in); err != nil {
		return nil, err
	}

	out, err := c.call(ctx, gen, callSpec{
		workflow: "questions",
		prompt:   workflowprompt.PromptQuestionsV1,
		vars:     workflowprompt.QuestionsVars(in),
		images:   in.Images,
		model:    c.fastModel(),
		schema:   docschema.QuestionsSchema(),
	})
	if err != nil {
		return nil, err
	}
	return docschema.DecodeQuestions(out)
}

func (c *Client) GenerateDocument(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationDocument, error) {
	gen, err := c.generator(ctx)
	if err != nil {
		return nil, err
	}
	if err := workflowport.CheckGenerationRequest(req); err != nil {
		return nil, err
	}

	out, err := c.call(ctx, gen, callSpec{
		workflow:       "generate",
		prompt:         workflowprompt.PromptDocumentV1,
		vars:           workflowprompt.DocumentVars(req),
		images:         req.ReferenceImages,
		model:          c.proModel(),
		schema:         docschema.DocumentSchema(),
		temperature:    c.temperature(),
		thinkingBudget: c.cfg.ThinkingBudget,
	})
	if err != nil {
		return nil, err
	}
	return docschema.DecodeDocument(out, req.GenerationOptions.WithDefaults().ContentType)
}

func (c *Client) RefineDocument(ctx context.Context, doc *entity.GenerationDocument, instruction string, images []entity.ReferenceImage) (*entity.GenerationDocument, error) {
	gen, err := c.generator(ctx)
	if err != nil {
		return nil, err
	}
	if err := workflowport.CheckRefine(doc, instruction); err != nil {
		return nil, err
	}
	vars, err := workflowprompt.RefineVars(doc, instruction, len(images))
	if err != nil {
		return nil, err
	}

	out, err := c.call(ctx, gen, callSpec{
		workflow:       "refine",
		prompt:         workflowprompt.PromptRefineV1,
		vars:           vars,
		images:         images,
		model:          c.proModel(),
		schema:         docschema.DocumentSchema(),
		thinkingBudget: c.cfg.ThinkingBudget / 2,
	})
	if err != nil {
		return nil, err
	}
	return docschema.DecodeDocument(out, "")
}

func (c *Client) RewriteText(ctx context.Context, currentText, instruction string) (string, error) {
	gen, err := c.generator(ctx)
	if err != nil {
		return "", err
	}
	if err := workflowport.CheckRewrite(instruction); err != nil {
		return "", err
	}

	out, err := c.call(ctx, gen, callSpec{
		workflow: "rewrite",
		prompt:   workflowprompt.PromptRewriteV1,
		vars:     workflowprompt.RewriteVars(currentText, instruction),
		model:    c.fastModel(),
	})
	if err != nil {
		return "", err
	}
	if out == "" {
		return currentText, nil
	}
	return out, nil
}

type callSpec struct {
	workflow       string
	prompt         workflowprompt.PromptID
	vars           map[string]any
	images         []entity.ReferenceImage
	model          string
	schema         map[string]any
	temperature    *float32
	thinkingBudget int32
}

func (c *Client) call(ctx context.Context, gen contentGenerator, spec callSpec) (string, error) {
	system, user, err := c.prompts.Render(ctx, spec.prompt, spec.vars)
	if err != nil {
		return "", err
	}

	parts := []*genai.Part{genai.NewPartFromText(user)}
	for _, img := range spec.images {
		raw, err := img.Bytes()
		if err != nil {
			return "", apperrors.PreconditionError("reference image is not valid base64")
		}
		parts = append(parts, genai.NewPartFromBytes(raw, img.MimeType))
	}

	gcfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       spec.temperature,
	}
	if spec.schema != nil {
		gcfg.ResponseMIMEType = "application/json"
		gcfg.ResponseSchema = toSchema(spec.schema)
	}
	if spec.thinkingBudget > 0 {
		gcfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(spec.thinkingBudget)}
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	ctx = einoobs.WithWorkflowProvider(ctx, spec.workflow, c.provider)
	ctx, span := otel.Tracer("gemini").Start(ctx, "llm.generate")
	span.SetAttributes(
		attribute.String("eino.workflow", spec.workflow),
		attribute.String("llm.model", spec.model),
		attribute.Int("llm.images", len(spec.images)),
	)
	defer span.End()

	start := time.Now()
	resp, err := gen.GenerateContent(ctx, spec.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, gcfg)
	promptTokens, completionTokens := usage(resp)
	einoobs.RecordCall(ctx, spec.model, time.Since(start).Seconds(), promptTokens, completionTokens, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx, "gemini call failed", err, "workflow", spec.workflow, "model", spec.model)
		return "", apperrors.UpstreamError(spec.workflow+" failed", err)
	}
	if resp == nil {
		return "", apperrors.UpstreamError(spec.workflow+" failed", nil)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func usage(resp *genai.GenerateContentResponse) (int, int) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0
	}
	return int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount)
}

func (c *Client) proModel() string {
	if c.cfg.Model != "" {
		return c.cfg.Model
	}
	return defaultProModel
}

func (c *Client) fastModel() string {
	if c.cfg.FastModel != "" {
		return c.cfg.FastModel
	}
	return defaultFastModel
}

func (c *Client) temperature() *float32 {
	if c.cfg.Temperature <= 0 {
		return nil
	}
	return genai.Ptr(float32(c.cfg.Temperature))
}
