package port

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ultra-prompt-ai-api/internal/domain/entity"
	apperrors "ultra-prompt-ai-api/pkg/errors"
)

func TestPreconditions(t *testing.T) {
	assert.True(t, apperrors.IsPrecondition(CheckQuestionsInput(entity.QuestionsInput{Concept: "  "})))
	assert.NoError(t, CheckQuestionsInput(entity.QuestionsInput{Images: []entity.ReferenceImage{{MimeType: "image/png"}}}))

	assert.True(t, apperrors.IsPrecondition(CheckGenerationRequest(entity.GenerationRequest{})))
	assert.NoError(t, CheckGenerationRequest(entity.GenerationRequest{Concept: "x"}))

	doc := &entity.GenerationDocument{}
	assert.ErrorIs(t, CheckRefine(doc, ""), apperrors.ErrEmptyInstruct)
	assert.ErrorIs(t, CheckRefine(nil, "warmer"), apperrors.ErrNoDocument)
	assert.NoError(t, CheckRefine(doc, "warmer"))

	assert.True(t, apperrors.IsPrecondition(CheckRewrite(" \n")))
}
