// Package session 实现生成流程的阶段状态机
package session

import (
	"time"

	"ultra-prompt-ai-api/internal/domain/entity"
)

// Stage 用户可见的流程阶段
type Stage string

const (
	StageIdle              Stage = "idle"
	StageAwaitingQuestions Stage = "awaitingQuestions"
	StageQuestionsReady    Stage = "questionsReady"
	StageGenerating        Stage = "generating"
	StageDocumentReady     Stage = "documentReady"
	StageRefining          Stage = "refining"
)

// InFlight 该阶段是否有远端调用未返回
func (s Stage) InFlight() bool {
	switch s {
	case StageAwaitingQuestions, StageGenerating, StageRefining:
		return true
	}
	return false
}

// Inputs 用户输入：概念、参考图与生成选项
type Inputs struct {
	Concept string                   `json:"concept"`
	Images  []entity.ReferenceImage  `json:"images"`
	Options entity.GenerationOptions `json:"options"`
}

// Snapshot 状态机某一时刻的只读视图
// Document 与其他快照共享底层数据，持有者不得修改
type Snapshot struct {
	ID         string                     `json:"id"`
	Stage      Stage                      `json:"stage"`
	Owner      entity.OwnerFingerprint    `json:"owner"`
	Inputs     Inputs                     `json:"inputs"`
	Questions  []entity.Question          `json:"questions"`
	Answers    map[int]string             `json:"answers"`
	Document   *entity.GenerationDocument `json:"document,omitempty"`
	ProjectID  string                     `json:"project_id,omitempty"`
	LastError  string                     `json:"last_error,omitempty"`
	UpdatedAt  time.Time                  `json:"updated_at"`
	Generation uint64                     `json:"generation"`
}
