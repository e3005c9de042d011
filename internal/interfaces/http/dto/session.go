package dto

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"ultra-prompt-ai-api/internal/application/edit"
	"ultra-prompt-ai-api/internal/application/refine"
	"ultra-prompt-ai-api/internal/application/session"
	"ultra-prompt-ai-api/internal/domain/entity"
)

// ImagePayload 以 base64 传输的参考图
type ImagePayload struct {
	MimeType string `json:"mime_type" binding:"required,oneof=image/png image/jpeg image/webp image/gif"`
	Data     string `json:"data" binding:"required"`
}

// ToReferenceImages 校验 base64 并转换
func ToReferenceImages(in []ImagePayload) ([]entity.ReferenceImage, error) {
	out := make([]entity.ReferenceImage, 0, len(in))
	for i, img := range in {
		data := img.Data
		if idx := strings.Index(data, ";base64,"); strings.HasPrefix(data, "data:") && idx > 0 {
			data = data[idx+len(";base64,"):]
		}
		if _, err := base64.StdEncoding.DecodeString(data); err != nil {
			return nil, fmt.Errorf("image %d is not valid base64", i)
		}
		out = append(out, entity.ReferenceImage{MimeType: img.MimeType, Base64Data: data})
	}
	return out, nil
}

// SetInputsRequest 设置概念、参考图与选项
type SetInputsRequest struct {
	Concept string                   `json:"concept"`
	Images  []ImagePayload           `json:"images" binding:"dive"`
	Options entity.GenerationOptions `json:"options"`
}

// AnswersRequest 问题 id 到作答
type AnswersRequest struct {
	Answers map[int]string `json:"answers" binding:"required"`
}

// RefineRequest 整体精修：instruction 与 tweaks 二选一
type RefineRequest struct {
	Instruction string               `json:"instruction"`
	Tweaks      *refine.VisualTweaks `json:"tweaks"`
	Images      []ImagePayload       `json:"images" binding:"dive"`
}

// FieldRewriteRequest 单字段改写；preset=narration 时按会话语言使用旁白预设指令
type FieldRewriteRequest struct {
	EntityKind  edit.EntityKind `json:"entity_kind" binding:"required"`
	Index       int             `json:"index" binding:"min=0"`
	Field       string          `json:"field" binding:"required"`
	Instruction string          `json:"instruction"`
	Preset      string          `json:"preset" binding:"omitempty,oneof=narration"`
}

// Ref 转换为字段定位
func (r FieldRewriteRequest) Ref() edit.FieldRef {
	return edit.FieldRef{Kind: r.EntityKind, Index: r.Index, Field: r.Field}
}

// LoadProjectRequest 在会话中打开已保存项目
type LoadProjectRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
}

// EditRequest 本地字段修改
type EditRequest struct {
	EntityKind edit.EntityKind `json:"entity_kind" binding:"required"`
	Index      int             `json:"index"`
	Field      string          `json:"field" binding:"required"`
	Value      string          `json:"value"`
}

// ToEdit 转换为编辑
func (r EditRequest) ToEdit() edit.Edit {
	return edit.Edit{FieldRef: edit.FieldRef{Kind: r.EntityKind, Index: r.Index, Field: r.Field}, Value: r.Value}
}

// EditResponse 本地修改结果，applied=false 表示被静默忽略
type EditResponse struct {
	Applied bool             `json:"applied"`
	Session *SessionResponse `json:"session"`
}

// RewriteTextRequest 独立文本改写
type RewriteTextRequest struct {
	CurrentText string `json:"current_text"`
	Instruction string `json:"instruction"`
}

// RewriteTextResponse 改写结果
type RewriteTextResponse struct {
	Text string `json:"text"`
}

// FieldRewriteResponse 单字段改写结果
type FieldRewriteResponse struct {
	Text    string           `json:"text"`
	Session *SessionResponse `json:"session"`
}

// RefineResponse 精修结果与变化的顶层分区
type RefineResponse struct {
	ChangedSections []string         `json:"changed_sections"`
	Session         *SessionResponse `json:"session"`
}

// ImageSummary 会话中参考图的摘要，不回传图片数据
type ImageSummary struct {
	MimeType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
}

// SessionResponse 会话快照
type SessionResponse struct {
	ID        string                     `json:"id"`
	Stage     session.Stage              `json:"stage"`
	Concept   string                     `json:"concept"`
	Images    []ImageSummary             `json:"images"`
	Options   entity.GenerationOptions   `json:"options"`
	Questions []entity.Question          `json:"questions"`
	Answers   map[int]string             `json:"answers"`
	Document  *entity.GenerationDocument `json:"document,omitempty"`
	ProjectID string                     `json:"project_id,omitempty"`
	LastError string                     `json:"last_error,omitempty"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// ToSessionResponse 由快照构造响应
func ToSessionResponse(s session.Snapshot) *SessionResponse {
	images := make([]ImageSummary, 0, len(s.Inputs.Images))
	for _, img := range s.Inputs.Images {
		images = append(images, ImageSummary{MimeType: img.MimeType, Bytes: base64.StdEncoding.DecodedLen(len(img.Base64Data))})
	}
	questions := s.Questions
	if questions == nil {
		questions = []entity.Question{}
	}
	return &SessionResponse{
		ID:        s.ID,
		Stage:     s.Stage,
		Concept:   s.Inputs.Concept,
		Images:    images,
		Options:   s.Inputs.Options,
		Questions: questions,
		Answers:   s.Answers,
		Document:  s.Document,
		ProjectID: s.ProjectID,
		LastError: s.LastError,
		UpdatedAt: s.UpdatedAt,
	}
}
