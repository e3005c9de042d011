package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
)

// savedProjectRow saved_projects 表的行结构，文档以 jsonb 原样存储
type savedProjectRow struct {
	ID             string         `gorm:"primaryKey;type:text"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null;index"`
	Title          string         `gorm:"not null"`
	ConceptExcerpt string         `gorm:"not null"`
	ContentType    string         `gorm:"not null;index"`
	Style          string         `gorm:"not null"`
	Document       []byte         `gorm:"type:jsonb;not null"`
	OwnerIP        string         `gorm:"index:idx_saved_projects_owner"`
	BrowserID      string         `gorm:"index:idx_saved_projects_owner"`
	CharacterNames pq.StringArray `gorm:"type:text[]"`
}

func (savedProjectRow) TableName() string { return "saved_projects" }

func toRow(p *entity.SavedProject) (*savedProjectRow, error) {
	doc, err := json.Marshal(p.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return &savedProjectRow{
		ID:             p.ID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Title:          p.Title,
		ConceptExcerpt: p.ConceptExcerpt,
		ContentType:    string(p.ContentType),
		Style:          p.Style,
		Document:       doc,
		OwnerIP:        p.Owner.OwnerIP,
		BrowserID:      p.Owner.BrowserID,
		CharacterNames: pq.StringArray(p.CharacterNames),
	}, nil
}

func (r *savedProjectRow) toEntity() (*entity.SavedProject, error) {
	var doc entity.GenerationDocument
	if err := json.Unmarshal(r.Document, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document for project %s: %w", r.ID, err)
	}
	return &entity.SavedProject{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Title:          r.Title,
		ConceptExcerpt: r.ConceptExcerpt,
		ContentType:    entity.ContentType(r.ContentType),
		Style:          r.Style,
		Document:       &doc,
		Owner:          entity.OwnerFingerprint{OwnerIP: r.OwnerIP, BrowserID: r.BrowserID},
		CharacterNames: []string(r.CharacterNames),
	}, nil
}

// SavedProjectRepository 项目仓储实现
type SavedProjectRepository struct {
	client *Client
	tx     *TxManager
}

var _ repository.SavedProjectRepository = (*SavedProjectRepository)(nil)

// NewSavedProjectRepository 创建项目仓储
func NewSavedProjectRepository(client *Client) *SavedProjectRepository {
	return &SavedProjectRepository{client: client, tx: NewTxManager(client)}
}

// Upsert 行锁读取已有记录以保留 created_at，再整体覆盖
func (r *SavedProjectRepository) Upsert(ctx context.Context, p *entity.SavedProject) error {
	ctx, span := tracer.Start(ctx, "postgres.SavedProjectRepository.Upsert")
	defer span.End()

	row, err := toRow(p)
	if err != nil {
		return err
	}

	err = r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		db := getDB(ctx, r.client.db)

		var existing savedProjectRow
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "created_at").
			Where("id = ?", row.ID).
			Take(&existing).Error
		switch {
		case err == nil:
			row.CreatedAt = existing.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		return db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"updated_at", "title", "concept_excerpt", "content_type", "style",
				"document", "owner_ip", "browser_id", "character_names",
			}),
		}).Create(row).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	p.CreatedAt = row.CreatedAt
	return nil
}

// Get 根据 ID 获取项目
func (r *SavedProjectRepository) Get(ctx context.Context, id string) (*entity.SavedProject, error) {
	ctx, span := tracer.Start(ctx, "postgres.SavedProjectRepository.Get")
	defer span.End()

	var row savedProjectRow
	if err := getDB(ctx, r.client.db).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return row.toEntity()
}

// List 按更新时间倒序分页列出
func (r *SavedProjectRepository) List(ctx context.Context, filter repository.ProjectFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.SavedProject], error) {
	ctx, span := tracer.Start(ctx, "postgres.SavedProjectRepository.List")
	defer span.End()

	scoped := func() *gorm.DB {
		q := getDB(ctx, r.client.db).Model(&savedProjectRow{})
		if filter.OwnerIP != "" {
			q = q.Where("owner_ip = ?", filter.OwnerIP)
		}
		if filter.BrowserID != "" {
			q = q.Where("(browser_id = ? OR browser_id = '')", filter.BrowserID)
		}
		if filter.ContentType != "" {
			q = q.Where("content_type = ?", string(filter.ContentType))
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	var rows []savedProjectRow
	if err := scoped().Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	items := make([]*entity.SavedProject, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return repository.NewPagedResult(items, total, pagination), nil
}

// Delete 删除项目
func (r *SavedProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.SavedProjectRepository.Delete")
	defer span.End()

	if err := getDB(ctx, r.client.db).Where("id = ?", id).Delete(&savedProjectRow{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}
