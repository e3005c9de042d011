package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra-prompt-ai-api/internal/application/session"
	"ultra-prompt-ai-api/internal/domain/entity"
)

var sheetQuestions = []entity.Question{
	{ID: 1, QuestionAr: "ما هو المزاج العام؟", ContextKey: "mood", Options: []string{"هادئ", "مغامر"}},
	{ID: 2, QuestionAr: "كم عمر الحارس؟", ContextKey: "age"},
	{ID: 3, QuestionAr: "أين تدور الأحداث؟"},
}

func TestAnswerSheetRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeAnswerSheet(&buf, newAnswerSheet("a lighthouse", entity.ContentTypeStory, sheetQuestions)))
	assert.Contains(t, buf.String(), "context_key: mood")

	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	sheet, err := readAnswerSheet(path)
	require.NoError(t, err)
	assert.Equal(t, "a lighthouse", sheet.Concept)
	assert.Equal(t, "story", sheet.ContentType)
	require.Len(t, sheet.Questions, 3)
	assert.Equal(t, []string{"هادئ", "مغامر"}, sheet.Questions[0].Options)
}

func TestSheetReplaysQuestionsAndAnswers(t *testing.T) {
	sheet := newAnswerSheet("a lighthouse", entity.ContentTypeStory, sheetQuestions)
	sheet.Questions[0].Answer = "مغامر"
	sheet.Questions[1].Answer = "  "
	sheet.Questions[2].Answer = " على جزيرة "

	if diff := cmp.Diff(sheetQuestions, sheet.questions()); diff != "" {
		t.Errorf("questions mismatch (-want +got):\n%s", diff)
	}
	want := map[int]string{1: "مغامر", 3: "على جزيرة"}
	if diff := cmp.Diff(want, sheet.answers()); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, answerSheet{}.answers())
}

func TestApplySheetContentType(t *testing.T) {
	sheet := answerSheet{Concept: "a lighthouse", ContentType: "story"}
	flagged := session.Inputs{Options: entity.GenerationOptions{ContentType: entity.ContentTypeImage}}

	in, err := applySheet(flagged, sheet, false)
	require.NoError(t, err)
	assert.Equal(t, entity.ContentTypeStory, in.Options.ContentType)
	assert.Equal(t, "a lighthouse", in.Concept)

	in, err = applySheet(flagged, sheet, true)
	require.NoError(t, err)
	assert.Equal(t, entity.ContentTypeImage, in.Options.ContentType)

	withConcept := session.Inputs{Concept: "a desert caravan"}
	in, err = applySheet(withConcept, sheet, false)
	require.NoError(t, err)
	assert.Equal(t, "a desert caravan", in.Concept)

	_, err = applySheet(flagged, answerSheet{ContentType: "poem"}, false)
	assert.Error(t, err)
}

func TestLoadImagesSniffsType(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "ref.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o600))

	images, err := loadImages([]string{png})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "image/png", images[0].MimeType)
	raw, err := images[0].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG\r\n\x1a\n0000", string(raw))

	_, err = loadImages([]string{txt})
	assert.Error(t, err)
}
