package repository

import (
	"context"

	"ultra-prompt-ai-api/internal/domain/entity"
)

// ProjectFilter 项目过滤条件，空字段不参与过滤
// BrowserID 非空时同时匹配浏览器标识为空的旧记录
type ProjectFilter struct {
	OwnerIP     string
	BrowserID   string
	ContentType entity.ContentType
}

// SavedProjectRepository 已保存项目的存储契约
// 文档按原样存取，存储层不校验其结构
type SavedProjectRepository interface {
	// Upsert 按 ID 插入或覆盖，覆盖时保留 CreatedAt
	Upsert(ctx context.Context, project *entity.SavedProject) error

	// Get 根据 ID 获取项目，不存在时返回 nil, nil
	Get(ctx context.Context, id string) (*entity.SavedProject, error)

	// List 按更新时间倒序列出项目
	List(ctx context.Context, filter ProjectFilter, pagination Pagination) (*PagedResult[*entity.SavedProject], error)

	// Delete 删除项目，不存在时不报错
	Delete(ctx context.Context, id string) error
}
