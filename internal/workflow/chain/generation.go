// Package chain 以 Eino compose.Chain 实现 OpenAI 兼容协议的生成客户端
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"ultra-prompt-ai-api/internal/domain/entity"
	einoobs "ultra-prompt-ai-api/internal/observability/eino"
	wfnode "ultra-prompt-ai-api/internal/workflow/node"
	workflowport "ultra-prompt-ai-api/internal/workflow/port"
	workflowprompt "ultra-prompt-ai-api/internal/workflow/prompt"
	"ultra-prompt-ai-api/pkg/logger"
)

// llmCall 一次模型调用的全部参数
type llmCall struct {
	Workflow   string
	Provider   string
	Prompt     workflowprompt.PromptID
	Vars       map[string]any
	Images     []entity.ReferenceImage
	SchemaName string
	Schema     map[string]any
	Model      string
	MaxTokens  *int
}

type generationChainState struct {
	Call     *llmCall
	Messages []*schema.Message
	OutMsg   *schema.Message
}

// GenerationChain 所有请求类型共用的 init → template → llm → finalize 链
type GenerationChain struct {
	factory workflowport.ChatModelFactory
	prompts *workflowprompt.Registry

	chainOnce sync.Once
	chain     compose.Runnable[*llmCall, string]
	chainErr  error
}

func NewGenerationChain(factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry) *GenerationChain {
	if prompts == nil {
		prompts = workflowprompt.Default()
	}
	return &GenerationChain{factory: factory, prompts: prompts}
}

func (c *GenerationChain) invoke(ctx context.Context, call *llmCall) (string, error) {
	chain, err := c.getChain()
	if err != nil {
		return "", err
	}
	ctx = einoobs.WithWorkflowProvider(ctx, call.Workflow, call.Provider)
	return chain.Invoke(ctx, call)
}

func (c *GenerationChain) getChain() (compose.Runnable[*llmCall, string], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *GenerationChain) buildChain(ctx context.Context) (compose.Runnable[*llmCall, string], error) {
	chain := compose.NewChain[*llmCall, string]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *llmCall) (*generationChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &generationChainState{Call: in}, nil
		}),
		compose.WithNodeName("generation.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generationChainState) (*generationChainState, error) {
			msgs, err := c.prompts.Format(ctx, st.Call.Prompt, st.Call.Vars)
			if err != nil {
				return nil, err
			}
			st.Messages = wfnode.AttachImages(msgs, st.Call.Images)
			return st, nil
		}),
		compose.WithNodeName("generation.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generationChainState) (*generationChainState, error) {
			if c.factory == nil {
				return nil, fmt.Errorf("llm factory not configured")
			}
			chatModel, err := c.factory.Get(ctx, st.Call.Provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildModelOptions(st.Call, true)...)
			if err != nil && st.Call.Schema != nil && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", st.Call.Provider,
					"workflow", st.Call.Workflow,
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildModelOptions(st.Call, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("generation.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *generationChainState) (string, error) {
			if st == nil || st.OutMsg == nil {
				return "", fmt.Errorf("state is nil")
			}
			return strings.TrimSpace(st.OutMsg.Content), nil
		}),
		compose.WithNodeName("generation.finalize"),
	)

	return chain.Compile(ctx)
}

func buildModelOptions(call *llmCall, enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 3)
	if call.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*call.MaxTokens))
	}
	if m := strings.TrimSpace(call.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}
	if enableSchema && call.Schema != nil {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   call.SchemaName,
					"strict": false,
					"schema": call.Schema,
				},
			},
		}))
	}
	return opts
}
