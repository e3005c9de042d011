// Package project 管理已保存项目的存取、缓存与事件通知
package project

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
	"ultra-prompt-ai-api/internal/infrastructure/messaging"
	apperrors "ultra-prompt-ai-api/pkg/errors"
	"ultra-prompt-ai-api/pkg/logger"
	"ultra-prompt-ai-api/pkg/metrics"
)

type pageLoader = func(ctx context.Context) (*repository.PagedResult[*entity.SavedProject], error)

// ListCache 项目列表缓存
type ListCache interface {
	GetOrLoad(ctx context.Context, f repository.ProjectFilter, p repository.Pagination, loader pageLoader) (*repository.PagedResult[*entity.SavedProject], error)
	InvalidateOwner(ctx context.Context, owner entity.OwnerFingerprint) error
}

// EventPublisher 项目事件发布
type EventPublisher interface {
	PublishProjectEvent(ctx context.Context, eventType string, ev messaging.ProjectEvent) (string, error)
}

// Options 服务参数
type Options struct {
	// UpsertTries 写入的最大尝试次数
	UpsertTries  uint
	RetryInitial time.Duration
}

// Service 项目服务；cache 与 events 可为空
type Service struct {
	repo   repository.SavedProjectRepository
	cache  ListCache
	events EventPublisher
	opts   Options
}

// NewService 创建项目服务
func NewService(repo repository.SavedProjectRepository, cache ListCache, events EventPublisher, opts Options) *Service {
	if opts.UpsertTries == 0 {
		opts.UpsertTries = 3
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = 200 * time.Millisecond
	}
	return &Service{repo: repo, cache: cache, events: events, opts: opts}
}

// Save 以项目 id 覆盖写入，瞬时失败按指数退避重试
func (s *Service) Save(ctx context.Context, p *entity.SavedProject) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RetryInitial

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := s.repo.Upsert(ctx, p); err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(err)
			}
			logger.Warn(ctx, "project upsert failed", "project_id", p.ID, "attempt", attempt, "error", err.Error())
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.opts.UpsertTries))
	if err != nil {
		metrics.ProjectUpserts.WithLabelValues("error").Inc()
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save project")
	}
	metrics.ProjectUpserts.WithLabelValues("ok").Inc()

	s.invalidate(ctx, p.Owner)
	s.publish(ctx, messaging.EventProjectSaved, p)
	return nil
}

// Get 获取项目；指纹不匹配时按不存在处理
func (s *Service) Get(ctx context.Context, id string, owner entity.OwnerFingerprint) (*entity.SavedProject, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if p == nil || !ownedBy(p, owner) {
		return nil, apperrors.ErrProjectNotFound
	}
	return p, nil
}

// List 列出归属于 owner 的项目，按更新时间倒序
func (s *Service) List(ctx context.Context, owner entity.OwnerFingerprint, ct entity.ContentType, page repository.Pagination) (*repository.PagedResult[*entity.SavedProject], error) {
	filter := repository.ProjectFilter{OwnerIP: owner.OwnerIP, BrowserID: owner.BrowserID, ContentType: ct}
	load := func(ctx context.Context) (*repository.PagedResult[*entity.SavedProject], error) {
		return s.repo.List(ctx, filter, page)
	}

	var (
		out *repository.PagedResult[*entity.SavedProject]
		err error
	)
	if s.cache != nil {
		out, err = s.cache.GetOrLoad(ctx, filter, page, load)
	} else {
		out, err = load(ctx)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list projects")
	}
	return out, nil
}

// Delete 删除项目并广播，其他会话据此放弃该项目
func (s *Service) Delete(ctx context.Context, id string, owner entity.OwnerFingerprint) error {
	p, err := s.Get(ctx, id, owner)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to delete project")
	}
	s.invalidate(ctx, p.Owner)
	s.publish(ctx, messaging.EventProjectDeleted, p)
	return nil
}

// ownedBy 浏览器标识为空的旧记录只按 IP 匹配
func ownedBy(p *entity.SavedProject, owner entity.OwnerFingerprint) bool {
	if p.Owner.OwnerIP != owner.OwnerIP {
		return false
	}
	return p.Owner.BrowserID == "" || p.Owner.BrowserID == owner.BrowserID
}

func (s *Service) invalidate(ctx context.Context, owner entity.OwnerFingerprint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOwner(ctx, owner); err != nil {
		logger.Warn(ctx, "project cache invalidation failed", "owner_ip", owner.OwnerIP, "error", err.Error())
	}
}

func (s *Service) publish(ctx context.Context, eventType string, p *entity.SavedProject) {
	if s.events == nil {
		return
	}
	ev := messaging.ProjectEvent{
		ProjectID:   p.ID,
		Title:       p.Title,
		ContentType: string(p.ContentType),
		OwnerIP:     p.Owner.OwnerIP,
		BrowserID:   p.Owner.BrowserID,
	}
	if _, err := s.events.PublishProjectEvent(ctx, eventType, ev); err != nil {
		logger.Warn(ctx, "project event publish failed", "type", eventType, "project_id", p.ID, "error", err.Error())
	}
}
