// Package port 定义工作流层对外部生成能力的依赖
package port

import (
	"context"

	"ultra-prompt-ai-api/internal/domain/entity"
)

// GenerationClient 无状态的生成客户端
//
// 实现须满足：
//   - 凭据缺失时在发起任何网络调用前返回 ConfigError
//   - 远端失败或输出未通过结构校验时返回 UpstreamError，绝不返回部分结果
//   - 参数不满足前提时在网络调用前返回 PreconditionError
//   - 不做自动重试
type GenerationClient interface {
	// ProposeQuestions 根据概念与参考图提出澄清问题
	ProposeQuestions(ctx context.Context, in entity.QuestionsInput) ([]entity.Question, error)

	// GenerateDocument 生成完整文档
	GenerateDocument(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationDocument, error)

	// RefineDocument 按自然语言指令整体精修文档
	RefineDocument(ctx context.Context, doc *entity.GenerationDocument, instruction string, images []entity.ReferenceImage) (*entity.GenerationDocument, error)

	// RewriteText 改写单个字段的文本
	RewriteText(ctx context.Context, currentText, instruction string) (string, error)
}
