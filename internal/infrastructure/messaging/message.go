// Package messaging 基于 Redis Streams 的项目事件发布与订阅
package messaging

import (
	"encoding/json"
	"time"
)

// Stream 流定义
type Stream string

const (
	StreamProjectEvents Stream = "stream:projects:events"
)

// 事件类型
const (
	EventProjectSaved   = "project.saved"
	EventProjectDeleted = "project.deleted"
)

// Message 消息结构
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ProjectID string            `json:"project_id"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建新消息
func NewMessage(id, msgType, projectID string, payload any) (*Message, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Message{
		ID:        id,
		Type:      msgType,
		ProjectID: projectID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// ProjectEvent 项目事件载荷
type ProjectEvent struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	OwnerIP     string `json:"owner_ip,omitempty"`
	BrowserID   string `json:"browser_id,omitempty"`
}
