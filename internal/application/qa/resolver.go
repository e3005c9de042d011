// Package qa 将澄清问题与用户作答折叠为生成上下文
package qa

import (
	"fmt"
	"strings"

	"ultra-prompt-ai-api/internal/domain/entity"
	apperrors "ultra-prompt-ai-api/pkg/errors"
)

const (
	// DefaultSentinel 未作答问题的占位答案
	DefaultSentinel = "automatic"
	// ArabicSentinel 阿拉伯语界面使用的占位答案
	ArabicSentinel = "تلقائي"
	// ContentTypeKey 注入到答案表中的内容类型键
	ContentTypeKey = "content_type"
)

// BuildAnswerMap 以问题文本为键构造答案表
// 未作答或空白作答的问题取 sentinel，另外总是写入 content_type。
// answers 中不属于任何问题的 id 被忽略。
func BuildAnswerMap(questions []entity.Question, answers map[int]string, ct entity.ContentType, sentinel string) map[string]string {
	if strings.TrimSpace(sentinel) == "" {
		sentinel = DefaultSentinel
	}
	out := make(map[string]string, len(questions)+1)
	for _, q := range questions {
		a := strings.TrimSpace(answers[q.ID])
		if a == "" {
			a = sentinel
		}
		out[q.QuestionAr] = a
	}
	out[ContentTypeKey] = string(ct)
	return out
}

// Validate 校验模型返回的问题批次：id 唯一，问题文本非空且唯一
// 答案表以问题文本为键，重复文本或与 content_type 同名的问题会互相覆盖，因此一并拒绝。
func Validate(questions []entity.Question) error {
	seen := make(map[int]bool, len(questions))
	texts := make(map[string]bool, len(questions))
	for i, q := range questions {
		text := strings.TrimSpace(q.QuestionAr)
		if text == "" {
			return apperrors.SchemaError("invalid question batch", fmt.Errorf("question %d has empty text", i))
		}
		if seen[q.ID] {
			return apperrors.SchemaError("invalid question batch", fmt.Errorf("duplicate question id %d", q.ID))
		}
		if text == ContentTypeKey {
			return apperrors.SchemaError("invalid question batch", fmt.Errorf("question %d uses reserved text %q", q.ID, ContentTypeKey))
		}
		if texts[q.QuestionAr] {
			return apperrors.SchemaError("invalid question batch", fmt.Errorf("duplicate question text %q", q.QuestionAr))
		}
		seen[q.ID] = true
		texts[q.QuestionAr] = true
	}
	return nil
}

// KnownAnswers 过滤掉不属于当前问题批次的作答
func KnownAnswers(questions []entity.Question, answers map[int]string) map[int]string {
	out := make(map[int]string, len(answers))
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok {
			out[q.ID] = a
		}
	}
	return out
}
