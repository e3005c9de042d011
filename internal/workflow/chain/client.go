package chain

import (
	"context"
	"strings"

	"ultra-prompt-ai-api/internal/config"
	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/workflow/docschema"
	workflowport "ultra-prompt-ai-api/internal/workflow/port"
	workflowprompt "ultra-prompt-ai-api/internal/workflow/prompt"
	apperrors "ultra-prompt-ai-api/pkg/errors"
)

var _ workflowport.GenerationClient = (*Client)(nil)

// Client 基于 Eino 链的 GenerationClient
type Client struct {
	chain    *GenerationChain
	factory  workflowport.ChatModelFactory
	provider string
	cfg      config.ProviderConfig
}

// NewClient 绑定到一个已配置的 OpenAI 兼容提供方
func NewClient(factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, provider string, cfg config.ProviderConfig) *Client {
	return &Client{
		chain:    NewGenerationChain(factory, prompts),
		factory:  factory,
		provider: provider,
		cfg:      cfg,
	}
}

func (c *Client) ProposeQuestions(ctx context.Context, in entity.QuestionsInput) ([]entity.Question, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	if err := workflowport.CheckQuestionsInput(in); err != nil {
		return nil, err
	}

	out, err := c.chain.invoke(ctx, &llmCall{
		Workflow:   "questions",
		Provider:   c.provider,
		Prompt:     workflowprompt.PromptQuestionsV1,
		Vars:       workflowprompt.QuestionsVars(in),
		Images:     in.Images,
		SchemaName: "clarifying_questions",
		Schema:     docschema.QuestionsSchema(),
		Model:      c.cfg.FastModel,
		MaxTokens:  c.maxTokens(),
	})
	if err != nil {
		return nil, upstream("propose questions", err)
	}
	return docschema.DecodeQuestions(out)
}

func (c *Client) GenerateDocument(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationDocument, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	if err := workflowport.CheckGenerationRequest(req); err != nil {
		return nil, err
	}

	out, err := c.chain.invoke(ctx, &llmCall{
		Workflow:   "generate",
		Provider:   c.provider,
		Prompt:     workflowprompt.PromptDocumentV1,
		Vars:       workflowprompt.DocumentVars(req),
		Images:     req.ReferenceImages,
		SchemaName: "generation_document",
		Schema:     docschema.DocumentSchema(),
		MaxTokens:  c.maxTokens(),
	})
	if err != nil {
		return nil, upstream("generate document", err)
	}
	return docschema.DecodeDocument(out, req.GenerationOptions.WithDefaults().ContentType)
}

func (c *Client) RefineDocument(ctx context.Context, doc *entity.GenerationDocument, instruction string, images []entity.ReferenceImage) (*entity.GenerationDocument, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	if err := workflowport.CheckRefine(doc, instruction); err != nil {
		return nil, err
	}
	vars, err := workflowprompt.RefineVars(doc, instruction, len(images))
	if err != nil {
		return nil, err
	}

	out, err := c.chain.invoke(ctx, &llmCall{
		Workflow:   "refine",
		Provider:   c.provider,
		Prompt:     workflowprompt.PromptRefineV1,
		Vars:       vars,
		Images:     images,
		SchemaName: "generation_document",
		Schema:     docschema.DocumentSchema(),
		MaxTokens:  c.maxTokens(),
	})
	if err != nil {
		return nil, upstream("refine document", err)
	}
	return docschema.DecodeDocument(out, "")
}

func (c *Client) RewriteText(ctx context.Context, currentText, instruction string) (string, error) {
	if err := c.ready(ctx); err != nil {
		return "", err
	}
	if err := workflowport.CheckRewrite(instruction); err != nil {
		return "", err
	}

	out, err := c.chain.invoke(ctx, &llmCall{
		Workflow:  "rewrite",
		Provider:  c.provider,
		Prompt:    workflowprompt.PromptRewriteV1,
		Vars:      workflowprompt.RewriteVars(currentText, instruction),
		Model:     c.cfg.FastModel,
		MaxTokens: c.maxTokens(),
	})
	if err != nil {
		return "", upstream("rewrite text", err)
	}
	if strings.TrimSpace(out) == "" {
		return currentText, nil
	}
	return out, nil
}

// ready 凭据检查，在任何网络调用前执行
func (c *Client) ready(ctx context.Context) error {
	if c == nil || c.factory == nil {
		return apperrors.ErrNoCredential
	}
	_, err := c.factory.Get(ctx, c.provider)
	return err
}

func (c *Client) maxTokens() *int {
	if c.cfg.MaxTokens <= 0 {
		return nil
	}
	n := c.cfg.MaxTokens
	return &n
}

func upstream(op string, err error) error {
	if apperrors.IsConfig(err) || apperrors.IsUpstream(err) {
		return err
	}
	return apperrors.UpstreamError(op+" failed", err)
}
