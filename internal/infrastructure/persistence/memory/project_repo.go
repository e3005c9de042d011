// Package memory 提供进程内的项目存储，未配置数据库时使用
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
)

// SavedProjectRepository 基于 map 的项目仓储
// 文档按不可变值共享，记录本身按值拷贝
type SavedProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]entity.SavedProject
}

var _ repository.SavedProjectRepository = (*SavedProjectRepository)(nil)

func NewSavedProjectRepository() *SavedProjectRepository {
	return &SavedProjectRepository{projects: make(map[string]entity.SavedProject)}
}

func (r *SavedProjectRepository) Upsert(_ context.Context, p *entity.SavedProject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	cp.CharacterNames = slices.Clone(p.CharacterNames)
	if existing, ok := r.projects[p.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
		p.CreatedAt = existing.CreatedAt
	}
	r.projects[p.ID] = cp
	return nil
}

func (r *SavedProjectRepository) Get(_ context.Context, id string) (*entity.SavedProject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

func (r *SavedProjectRepository) List(_ context.Context, filter repository.ProjectFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.SavedProject], error) {
	r.mu.RLock()
	matched := make([]entity.SavedProject, 0, len(r.projects))
	for _, p := range r.projects {
		if matches(p, filter) {
			matched = append(matched, p)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b entity.SavedProject) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	start := min(pagination.Offset(), len(matched))
	end := min(start+pagination.Limit(), len(matched))
	items := make([]*entity.SavedProject, 0, end-start)
	for _, p := range matched[start:end] {
		items = append(items, clone(p))
	}
	return repository.NewPagedResult(items, int64(len(matched)), pagination), nil
}

func (r *SavedProjectRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
	return nil
}

func matches(p entity.SavedProject, f repository.ProjectFilter) bool {
	if f.OwnerIP != "" && p.Owner.OwnerIP != f.OwnerIP {
		return false
	}
	if f.BrowserID != "" && p.Owner.BrowserID != "" && p.Owner.BrowserID != f.BrowserID {
		return false
	}
	if f.ContentType != "" && p.ContentType != f.ContentType {
		return false
	}
	return true
}

func clone(p entity.SavedProject) *entity.SavedProject {
	p.CharacterNames = slices.Clone(p.CharacterNames)
	return &p
}
