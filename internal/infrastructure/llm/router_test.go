package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra-prompt-ai-api/internal/config"
	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/infrastructure/llm/gemini"
	"ultra-prompt-ai-api/internal/workflow/chain"
	apperrors "ultra-prompt-ai-api/pkg/errors"
)

func testConfig() *config.Config {
	return &config.Config{LLM: config.LLMConfig{
		DefaultProvider:    "gemini",
		MaxConcurrentCalls: 1,
		Providers: map[string]config.ProviderConfig{
			"gemini": {Kind: config.ProviderKindGemini},
			"openai": {Kind: config.ProviderKindOpenAI, BaseURL: "http://localhost:1"},
			"weird":  {Kind: "carrier-pigeon"},
		},
	}}
}

func TestRouterSelectsByKind(t *testing.T) {
	cfg := testConfig()
	r := NewRouter(cfg, NewEinoFactory(cfg))

	c, err := r.Client("")
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, c)

	again, err := r.Client("gemini")
	require.NoError(t, err)
	assert.Same(t, c, again)

	oc, err := r.Client("openai")
	require.NoError(t, err)
	assert.IsType(t, &chain.Client{}, oc)

	_, err = r.Client("weird")
	assert.True(t, apperrors.IsConfig(err))
	_, err = r.Client("missing")
	assert.True(t, apperrors.IsConfig(err))
}

func TestRouterMissingCredential(t *testing.T) {
	cfg := testConfig()
	r := NewRouter(cfg, NewEinoFactory(cfg))

	_, err := r.RewriteText(context.Background(), "x", "y")
	assert.True(t, apperrors.IsConfig(err))

	cfg.LLM.DefaultProvider = "openai"
	_, err = r.GenerateDocument(context.Background(), entity.GenerationRequest{Concept: "c"})
	assert.True(t, apperrors.IsConfig(err))
}

func TestRouterSemaphoreHonoursContext(t *testing.T) {
	cfg := testConfig()
	r := NewRouter(cfg, NewEinoFactory(cfg))
	require.True(t, r.sem.TryAcquire(1))
	defer r.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.ProposeQuestions(ctx, entity.QuestionsInput{Concept: "c"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}
