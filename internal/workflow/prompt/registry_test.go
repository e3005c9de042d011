package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCachesTemplates(t *testing.T) {
	r := NewRegistry()
	a, err := r.ChatTemplate(PromptRewriteV1)
	require.NoError(t, err)
	b, err := r.ChatTemplate(PromptRewriteV1)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = r.ChatTemplate("nope")
	assert.Error(t, err)
}

func TestRenderRewrite(t *testing.T) {
	system, user, err := Default().Render(context.Background(), PromptRewriteV1, map[string]any{
		"current_text": "a {curly} prompt",
		"instruction":  "make it darker",
	})
	require.NoError(t, err)
	assert.Contains(t, system, "visual DNA")
	assert.Contains(t, user, `Prompt: "a {curly} prompt"`)
	assert.Contains(t, user, "make it darker")
}

func TestAllPromptsRender(t *testing.T) {
	vars := map[string]any{
		"concept": "c", "content_type": "story", "style": "s", "mode": "standard", "image_count": 0,
		"story_type": "t", "aspect_ratio": "16:9", "language": "ar", "dialect": "msa",
		"transition_style": "cut", "video_format": "standard", "video_resolution": "4K",
		"music_genre": "Automatic", "answers_block": "(none)",
		"instruction": "i", "document_json": "{}", "current_text": "x",
	}
	for _, id := range []PromptID{PromptQuestionsV1, PromptDocumentV1, PromptRefineV1, PromptRewriteV1} {
		t.Run(string(id), func(t *testing.T) {
			system, user, err := Default().Render(context.Background(), id, vars)
			require.NoError(t, err)
			assert.NotEmpty(t, system)
			assert.NotEmpty(t, user)
		})
	}
}
