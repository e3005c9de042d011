package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra-prompt-ai-api/internal/config"
	"ultra-prompt-ai-api/internal/domain/entity"
	apperrors "ultra-prompt-ai-api/pkg/errors"
)

type scriptedModel struct {
	mu      sync.Mutex
	replies []func() (*schema.Message, error)
	inputs  [][]*schema.Message
	models  []string
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	name := ""
	if o := model.GetCommonOptions(nil, opts...); o.Model != nil {
		name = *o.Model
	}
	m.models = append(m.models, name)
	if len(m.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next()
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

type fakeFactory struct {
	model model.BaseChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.model, f.err
}

func reply(content string) func() (*schema.Message, error) {
	return func() (*schema.Message, error) { return schema.AssistantMessage(content, nil), nil }
}

func newTestClient(m *scriptedModel) *Client {
	return NewClient(&fakeFactory{model: m}, nil, "test", config.ProviderConfig{FastModel: "fast-1", MaxTokens: 512})
}

const storyDoc = `{"analysis":{"concept_summary":"s","art_direction":"a","technical_breakdown":"t"},
"character_bible":{"characters":[{"name":"Lira","details_ar":"","details_en":"","character_prompt":"p","voice_profile":{"gender":"f","age_group":"adult","tone_description_en":"warm"}}]},
"location_assets":[],
"storybook":{"story_title":"Keeper","voiceover_tone_ar":"","voiceover_tone_en":"","scenes":[{"scene_number":1,"visual_prompt_en":"v","visual_prompt_ar":"v","animation_prompt_en":"a","animation_prompt_ar":"a","narration_ar":"n","narration_en":"n","transition_ar":"t"}]},
"video":{"scenes":[],"voiceover_tone_ar":"","voiceover_tone_en":"","full_video_prompt_ar":"","full_video_prompt_en":""},
"song":{"song_title":"","music_generation_prompt":"","lyrics_structure":[],"consistent_audio_vibe_ar":"","consistent_audio_vibe_en":""}}`

func TestProposeQuestionsUsesFastModelAndImages(t *testing.T) {
	m := &scriptedModel{replies: []func() (*schema.Message, error){
		reply(`{"questions":[{"id":0,"question_ar":"ما الجو؟","context_key":"mood","options":["هادئ"]}]}`),
	}}
	c := newTestClient(m)

	qs, err := c.ProposeQuestions(context.Background(), entity.QuestionsInput{
		Concept: "a lighthouse keeper",
		Images:  []entity.ReferenceImage{entity.NewReferenceImage("image/png", []byte{1})},
	})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "fast-1", m.models[0])

	last := m.inputs[0][len(m.inputs[0])-1]
	require.Len(t, last.MultiContent, 2)
	assert.Contains(t, last.MultiContent[0].Text, "a lighthouse keeper")
}

func TestGenerateDocumentFallsBackWhenSchemaUnsupported(t *testing.T) {
	m := &scriptedModel{replies: []func() (*schema.Message, error){
		func() (*schema.Message, error) { return nil, errors.New("400: unknown field response_format") },
		reply("```json\n" + storyDoc + "\n```"),
	}}
	c := newTestClient(m)

	doc, err := c.GenerateDocument(context.Background(), entity.GenerationRequest{
		Concept:           "a lighthouse keeper who befriends a sea dragon",
		AnsweredQuestions: map[string]string{"ما الجو؟": "هادئ"},
		GenerationOptions: entity.GenerationOptions{ContentType: entity.ContentTypeStory},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.calls())
	assert.Equal(t, "Lira", doc.CharacterBible.Characters[0].Name)
	assert.Contains(t, m.inputs[1][1].Content, "ما الجو؟")
}

func TestGenerateDocumentRejectsInvalidOutput(t *testing.T) {
	m := &scriptedModel{replies: []func() (*schema.Message, error){reply(`{"analysis":{}}`)}}
	_, err := newTestClient(m).GenerateDocument(context.Background(), entity.GenerationRequest{Concept: "c"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestUpstreamFailureIsWrapped(t *testing.T) {
	m := &scriptedModel{replies: []func() (*schema.Message, error){
		func() (*schema.Message, error) { return nil, errors.New("connection reset") },
	}}
	_, err := newTestClient(m).RewriteText(context.Background(), "old", "better")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	assert.Equal(t, 1, m.calls(), "no automatic retry")
}

func TestRefineEmptyInstructionNeverCallsModel(t *testing.T) {
	m := &scriptedModel{}
	_, err := newTestClient(m).RefineDocument(context.Background(), &entity.GenerationDocument{}, "   ", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
	assert.Equal(t, 0, m.calls())
}

func TestMissingCredentialIsConfigError(t *testing.T) {
	c := NewClient(&fakeFactory{err: apperrors.ErrNoCredential}, nil, "test", config.ProviderConfig{})
	_, err := c.ProposeQuestions(context.Background(), entity.QuestionsInput{Concept: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfig(err))
}

func TestRewriteEmptyAnswerKeepsText(t *testing.T) {
	m := &scriptedModel{replies: []func() (*schema.Message, error){reply("  ")}}
	out, err := newTestClient(m).RewriteText(context.Background(), "keep me", "change")
	require.NoError(t, err)
	assert.Equal(t, "keep me", out)
}
