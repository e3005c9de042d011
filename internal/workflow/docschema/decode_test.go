package docschema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"ultra-prompt-ai-api/internal/domain/entity"
	apperrors "ultra-prompt-ai-api/pkg/errors"
)

func storyDocument() *entity.GenerationDocument {
	return &entity.GenerationDocument{
		Analysis: entity.Analysis{ConceptSummary: "a lighthouse keeper befriends a dragon"},
		CharacterBible: entity.CharacterBible{Characters: []entity.CharacterProfile{
			{Name: "Lira", CharacterPrompt: "young keeper"},
		}},
		Storybook: entity.Storybook{StoryTitle: "The Keeper", Scenes: []entity.Scene{
			{SceneNumber: 1, VisualPromptEn: "stormy night"},
			{SceneNumber: 2, VisualPromptEn: "dragon rises"},
		}},
	}
}

func canonical(t *testing.T, doc *entity.GenerationDocument) string {
	t.Helper()
	raw, err := doc.MarshalCanonical()
	require.NoError(t, err)
	return string(raw)
}

func TestDecodeDocument(t *testing.T) {
	raw := canonical(t, storyDocument())

	doc, err := DecodeDocument("```json\n"+raw+"\n```", entity.ContentTypeStory)
	require.NoError(t, err)
	assert.Equal(t, "The Keeper", doc.Storybook.StoryTitle)
	assert.Len(t, doc.Storybook.Scenes, 2)

	again, err := doc.MarshalCanonical()
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(again))
}

func TestDecodeDocumentRejects(t *testing.T) {
	valid := canonical(t, storyDocument())

	tests := []struct {
		name    string
		text    string
		ct      entity.ContentType
		wantErr string
	}{
		{"empty output", "  ", entity.ContentTypeStory, "empty model output"},
		{"not json", "{not json", entity.ContentTypeStory, "not valid JSON"},
		{"missing branch", strings.Replace(valid, `"song":`, `"ignored":`, 1), entity.ContentTypeStory, `missing required field "song"`},
		{"wrong scene number type", strings.Replace(valid, `"scene_number":2`, `"scene_number":"2"`, 1), entity.ContentTypeStory, "expected integer"},
		{"numbering gap", strings.Replace(valid, `"scene_number":2`, `"scene_number":3`, 1), entity.ContentTypeStory, "scene numbering"},
		{"empty active branch", valid, entity.ContentTypeSong, "missing content"},
		{"blank character name", strings.Replace(valid, `"name":"Lira"`, `"name":""`, 1), entity.ContentTypeStory, "field validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDocument(tt.text, tt.ct)
			require.Error(t, err)
			assert.True(t, apperrors.IsUpstream(err), "schema failures are upstream errors")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeDocumentWithoutContentTypeSkipsBranchCheck(t *testing.T) {
	doc, err := DecodeDocument(canonical(t, storyDocument()), "")
	require.NoError(t, err)
	assert.Empty(t, doc.Song.LyricsStructure)
}

func TestDecodeQuestions(t *testing.T) {
	qs, err := DecodeQuestions(`{"questions":[
		{"id":0,"question_ar":"ما هو الجو العام؟","context_key":"mood","options":["هادئ","مظلم"]},
		{"id":1,"question_ar":"من البطل؟","context_key":"hero","options":[]}
	]}`)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "mood", qs[0].ContextKey)
	assert.Empty(t, qs[1].Options)

	_, err = DecodeQuestions(`{"questions":[
		{"id":1,"question_ar":"a","context_key":"x","options":[]},
		{"id":1,"question_ar":"b","context_key":"y","options":[]}
	]}`)
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))

	_, err = DecodeQuestions(`{"questions":[{"id":1,"context_key":"x","options":[]}]}`)
	require.Error(t, err)
}

func TestCheckRequiredNestedPath(t *testing.T) {
	schema := QuestionsSchema()
	err := CheckRequired(gjson.Parse(`{"questions":[{"id":1,"question_ar":"a","context_key":"k","options":[1]}]}`), schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$.questions[0].options[0]: expected string")
}
