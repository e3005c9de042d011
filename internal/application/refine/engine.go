// Package refine 实现整体精修与单字段改写
package refine

import (
	"context"
	"fmt"

	"ultra-prompt-ai-api/internal/application/edit"
	"ultra-prompt-ai-api/internal/domain/entity"
	workflowport "ultra-prompt-ai-api/internal/workflow/port"
	apperrors "ultra-prompt-ai-api/pkg/errors"
	"ultra-prompt-ai-api/pkg/logger"
	"ultra-prompt-ai-api/pkg/metrics"
)

// Engine 精修引擎，远端能力全部委托给 GenerationClient
type Engine struct {
	client workflowport.GenerationClient
}

func NewEngine(client workflowport.GenerationClient) *Engine {
	return &Engine{client: client}
}

// Global 整体精修，返回完整替换文档
// ct 非空时与生成一样要求该内容类型的分支至少保留一个条目。
func (e *Engine) Global(ctx context.Context, doc *entity.GenerationDocument, ct entity.ContentType, instruction string, images []entity.ReferenceImage) (*entity.GenerationDocument, error) {
	if err := workflowport.CheckRefine(doc, instruction); err != nil {
		return nil, err
	}
	out, err := e.client.RefineDocument(ctx, doc, instruction, images)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, apperrors.ErrInvalidOutput.WithDetail("refinement returned no document")
	}
	if ct != "" && out.ActiveBranchSize(ct) == 0 {
		metrics.LLMSchemaRejections.WithLabelValues("document").Inc()
		return nil, apperrors.SchemaError("refined document is missing content for the requested format",
			fmt.Errorf("content_type %s has no entries", ct))
	}

	if s, err := Summarize(doc, out); err == nil {
		logger.Info(ctx, "document refined", "changed_sections", s.ChangedSections)
	}
	return out, nil
}

// Rewrite 取出字段当前文本并请求改写，不修改文档
func (e *Engine) Rewrite(ctx context.Context, doc *entity.GenerationDocument, ref edit.FieldRef, instruction string) (string, error) {
	if err := workflowport.CheckRewrite(instruction); err != nil {
		return "", err
	}
	if doc == nil {
		return "", apperrors.ErrNoDocument
	}
	current, ok := edit.FieldValue(doc, ref)
	if !ok {
		return "", apperrors.PreconditionError(fmt.Sprintf("field %s is not an editable text field", ref))
	}
	return e.client.RewriteText(ctx, current, instruction)
}

// Splice 将改写结果写回 ref 指向的字段，保持集合长度与顺序
func Splice(doc *entity.GenerationDocument, ref edit.FieldRef, text string) (*entity.GenerationDocument, error) {
	out, ok := edit.Apply(doc, edit.Edit{FieldRef: ref, Value: text})
	if !ok {
		return nil, apperrors.PreconditionError(fmt.Sprintf("field %s no longer exists in the current document", ref))
	}
	return out, nil
}

// Scoped 单字段改写并拼接回文档
func (e *Engine) Scoped(ctx context.Context, doc *entity.GenerationDocument, ref edit.FieldRef, instruction string) (*entity.GenerationDocument, error) {
	text, err := e.Rewrite(ctx, doc, ref, instruction)
	if err != nil {
		return nil, err
	}
	return Splice(doc, ref, text)
}

// RewriteText 独立的文本改写，不关联任何文档
func (e *Engine) RewriteText(ctx context.Context, currentText, instruction string) (string, error) {
	if err := workflowport.CheckRewrite(instruction); err != nil {
		return "", err
	}
	return e.client.RewriteText(ctx, currentText, instruction)
}
