package port

import (
	"strings"

	"ultra-prompt-ai-api/internal/domain/entity"
	apperrors "ultra-prompt-ai-api/pkg/errors"
)

// 以下检查由各 GenerationClient 实现在网络调用前执行

func CheckQuestionsInput(in entity.QuestionsInput) error {
	if !entity.HasInput(in.Concept, in.Images) {
		return apperrors.ErrEmptyInput
	}
	return nil
}

func CheckGenerationRequest(req entity.GenerationRequest) error {
	if !entity.HasInput(req.Concept, req.ReferenceImages) {
		return apperrors.ErrEmptyInput
	}
	return nil
}

func CheckRefine(doc *entity.GenerationDocument, instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return apperrors.ErrEmptyInstruct
	}
	if doc == nil {
		return apperrors.ErrNoDocument
	}
	return nil
}

func CheckRewrite(instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return apperrors.ErrEmptyInstruct
	}
	return nil
}
