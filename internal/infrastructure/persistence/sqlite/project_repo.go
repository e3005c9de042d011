package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
)

const projectColumns = `id, created_at, updated_at, title, concept_excerpt, content_type, style,
	document, owner_ip, browser_id, character_names`

// SavedProjectRepository 项目仓储的 SQLite 实现
type SavedProjectRepository struct {
	client *Client
}

var _ repository.SavedProjectRepository = (*SavedProjectRepository)(nil)

// NewSavedProjectRepository 创建项目仓储
func NewSavedProjectRepository(client *Client) *SavedProjectRepository {
	return &SavedProjectRepository{client: client}
}

// Upsert 插入或覆盖，冲突时不更新 created_at
func (r *SavedProjectRepository) Upsert(ctx context.Context, p *entity.SavedProject) error {
	ctx, span := tracer.Start(ctx, "sqlite.SavedProjectRepository.Upsert")
	defer span.End()

	doc, err := json.Marshal(p.Document)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	names, err := json.Marshal(nonNil(p.CharacterNames))
	if err != nil {
		return fmt.Errorf("failed to encode character names: %w", err)
	}

	query := `
		INSERT INTO saved_projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			title = excluded.title,
			concept_excerpt = excluded.concept_excerpt,
			content_type = excluded.content_type,
			style = excluded.style,
			document = excluded.document,
			owner_ip = excluded.owner_ip,
			browser_id = excluded.browser_id,
			character_names = excluded.character_names
		RETURNING created_at
	`
	var created int64
	err = r.client.db.QueryRowContext(ctx, query,
		p.ID, p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano(), p.Title, p.ConceptExcerpt,
		string(p.ContentType), p.Style, string(doc), p.Owner.OwnerIP, p.Owner.BrowserID, string(names),
	).Scan(&created)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	return nil
}

// Get 根据 ID 获取项目
func (r *SavedProjectRepository) Get(ctx context.Context, id string) (*entity.SavedProject, error) {
	ctx, span := tracer.Start(ctx, "sqlite.SavedProjectRepository.Get")
	defer span.End()

	row := r.client.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM saved_projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// List 按更新时间倒序分页列出
func (r *SavedProjectRepository) List(ctx context.Context, filter repository.ProjectFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.SavedProject], error) {
	ctx, span := tracer.Start(ctx, "sqlite.SavedProjectRepository.List")
	defer span.End()

	var (
		conds []string
		args  []any
	)
	if filter.OwnerIP != "" {
		conds = append(conds, "owner_ip = ?")
		args = append(args, filter.OwnerIP)
	}
	if filter.BrowserID != "" {
		conds = append(conds, "(browser_id = ? OR browser_id = '')")
		args = append(args, filter.BrowserID)
	}
	if filter.ContentType != "" {
		conds = append(conds, "content_type = ?")
		args = append(args, string(filter.ContentType))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.client.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_projects`+where, args...).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	query := `SELECT ` + projectColumns + ` FROM saved_projects` + where + ` ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`
	rows, err := r.client.db.QueryContext(ctx, query, append(args, pagination.Limit(), pagination.Offset())...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	items := make([]*entity.SavedProject, 0, pagination.Limit())
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return repository.NewPagedResult(items, total, pagination), nil
}

// Delete 删除项目
func (r *SavedProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "sqlite.SavedProjectRepository.Delete")
	defer span.End()

	if _, err := r.client.db.ExecContext(ctx, `DELETE FROM saved_projects WHERE id = ?`, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*entity.SavedProject, error) {
	var (
		p                   entity.SavedProject
		created, updated    int64
		contentType         string
		document, namesJSON string
	)
	if err := s.Scan(&p.ID, &created, &updated, &p.Title, &p.ConceptExcerpt, &contentType, &p.Style,
		&document, &p.Owner.OwnerIP, &p.Owner.BrowserID, &namesJSON); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	p.ContentType = entity.ContentType(contentType)

	var doc entity.GenerationDocument
	if err := json.Unmarshal([]byte(document), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document for project %s: %w", p.ID, err)
	}
	p.Document = &doc
	if err := json.Unmarshal([]byte(namesJSON), &p.CharacterNames); err != nil {
		return nil, fmt.Errorf("failed to decode character names for project %s: %w", p.ID, err)
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
