package llm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"ultra-prompt-ai-api/internal/config"
	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/infrastructure/llm/gemini"
	"ultra-prompt-ai-api/internal/workflow/chain"
	workflowport "ultra-prompt-ai-api/internal/workflow/port"
	workflowprompt "ultra-prompt-ai-api/internal/workflow/prompt"
	apperrors "ultra-prompt-ai-api/pkg/errors"
)

var _ workflowport.GenerationClient = (*Router)(nil)

// Router 按配置的默认提供方分派调用，并以加权信号量限制进程内的并发模型调用数
type Router struct {
	cfg     *config.LLMConfig
	factory workflowport.ChatModelFactory
	prompts *workflowprompt.Registry
	sem     *semaphore.Weighted

	mu      sync.Mutex
	clients map[string]workflowport.GenerationClient
}

func NewRouter(cfg *config.Config, factory *EinoFactory) *Router {
	limit := cfg.LLM.MaxConcurrentCalls
	if limit <= 0 {
		limit = 1
	}
	return &Router{
		cfg:     &cfg.LLM,
		factory: factory,
		prompts: workflowprompt.Default(),
		sem:     semaphore.NewWeighted(limit),
		clients: make(map[string]workflowport.GenerationClient),
	}
}

// Client 返回指定提供方的客户端，名称为空取默认提供方
func (r *Router) Client(name string) (workflowport.GenerationClient, error) {
	name, pc, ok := r.cfg.Provider(name)
	if !ok {
		return nil, apperrors.ConfigError(fmt.Sprintf("provider %s not found in LLM config", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[name]; ok {
		return c, nil
	}

	var c workflowport.GenerationClient
	switch pc.Kind {
	case config.ProviderKindGemini:
		c = gemini.NewClient(name, pc, r.prompts)
	case config.ProviderKindOpenAI, "":
		c = chain.NewClient(r.factory, r.prompts, name, pc)
	default:
		return nil, apperrors.ConfigError(fmt.Sprintf("provider %s has unknown kind %q", name, pc.Kind))
	}
	r.clients[name] = c
	return c, nil
}

func (r *Router) acquire(ctx context.Context) (workflowport.GenerationClient, func(), error) {
	c, err := r.Client("")
	if err != nil {
		return nil, nil, err
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, apperrors.UpstreamError("waiting for a model slot", err)
	}
	return c, func() { r.sem.Release(1) }, nil
}

func (r *Router) ProposeQuestions(ctx context.Context, in entity.QuestionsInput) ([]entity.Question, error) {
	c, release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.ProposeQuestions(ctx, in)
}

func (r *Router) GenerateDocument(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationDocument, error) {
	c, release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.GenerateDocument(ctx, req)
}

func (r *Router) RefineDocument(ctx context.Context, doc *entity.GenerationDocument, instruction string, images []entity.ReferenceImage) (*entity.GenerationDocument, error) {
	c, release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.RefineDocument(ctx, doc, instruction, images)
}

func (r *Router) RewriteText(ctx context.Context, currentText, instruction string) (string, error) {
	c, release, err := r.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return c.RewriteText(ctx, currentText, instruction)
}
