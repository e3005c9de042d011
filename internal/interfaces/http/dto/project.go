package dto

import (
	"time"

	"ultra-prompt-ai-api/internal/domain/entity"
)

// ProjectSummary 项目列表条目
type ProjectSummary struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	ConceptExcerpt string             `json:"concept_excerpt"`
	ContentType    entity.ContentType `json:"content_type"`
	Style          string             `json:"style"`
	CharacterNames []string           `json:"character_names"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ProjectResponse 项目详情
type ProjectResponse struct {
	ProjectSummary
	Document *entity.GenerationDocument `json:"document"`
}

// ProjectListResponse 项目列表
type ProjectListResponse struct {
	Projects []*ProjectSummary `json:"projects"`
}

// ToProjectSummary 转换项目摘要
func ToProjectSummary(p *entity.SavedProject) *ProjectSummary {
	names := p.CharacterNames
	if names == nil {
		names = []string{}
	}
	return &ProjectSummary{
		ID:             p.ID,
		Title:          p.Title,
		ConceptExcerpt: p.ConceptExcerpt,
		ContentType:    p.ContentType,
		Style:          p.Style,
		CharacterNames: names,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToProjectResponse 转换项目详情
func ToProjectResponse(p *entity.SavedProject) *ProjectResponse {
	return &ProjectResponse{ProjectSummary: *ToProjectSummary(p), Document: p.Document}
}

// ToProjectListResponse 转换项目列表
func ToProjectListResponse(items []*entity.SavedProject) *ProjectListResponse {
	out := make([]*ProjectSummary, 0, len(items))
	for _, p := range items {
		out = append(out, ToProjectSummary(p))
	}
	return &ProjectListResponse{Projects: out}
}
