package node

import (
	"slices"
	"strings"

	"github.com/cloudwego/eino/schema"

	"ultra-prompt-ai-api/internal/domain/entity"
)

// AttachImages 将参考图片附加到最后一条用户消息上（多模态）
func AttachImages(msgs []*schema.Message, images []entity.ReferenceImage) []*schema.Message {
	if len(images) == 0 {
		return msgs
	}
	idx := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i] != nil && msgs[i].Role == schema.User {
			idx = i
			break
		}
	}
	if idx < 0 {
		return msgs
	}

	user := msgs[idx]
	parts := make([]schema.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, schema.ChatMessagePart{Type: schema.ChatMessagePartTypeText, Text: user.Content})
	for _, img := range images {
		parts = append(parts, schema.ChatMessagePart{
			Type:     schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{URL: img.DataURI(), MIMEType: img.MimeType},
		})
	}

	out := slices.Clone(msgs)
	out[idx] = &schema.Message{Role: schema.User, MultiContent: parts}
	return out
}

// BuildAnswersBlock 以稳定顺序渲染问答对
func BuildAnswersBlock(answers map[string]string) string {
	if len(answers) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString("- Q: ")
		b.WriteString(k)
		b.WriteString("\n  A: ")
		b.WriteString(answers[k])
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
