package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
	"ultra-prompt-ai-api/pkg/logger"
	"ultra-prompt-ai-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

const (
	listKeyPrefix = "projects:list:"

	defaultLoadTimeout = 10 * time.Second
)

// ProjectPage 缓存中的项目分页
type ProjectPage = repository.PagedResult[*entity.SavedProject]

// ProjectListCache 项目列表的 Read-Through 缓存
type ProjectListCache struct {
	client      *Client
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
}

// NewProjectListCache 创建项目列表缓存
func NewProjectListCache(client *Client, ttl time.Duration) *ProjectListCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ProjectListCache{client: client, ttl: ttl, loadTimeout: defaultLoadTimeout}
}

// ListKey 列表缓存键：按归属分组，便于整体失效
func ListKey(f repository.ProjectFilter, p repository.Pagination) string {
	return fmt.Sprintf("%s%s:%s:%s:%d:%d", listKeyPrefix, keyPart(f.OwnerIP), keyPart(f.BrowserID),
		keyPart(string(f.ContentType)), p.Page, p.PageSize)
}

func ownerPattern(owner entity.OwnerFingerprint) string {
	return fmt.Sprintf("%s%s:*", listKeyPrefix, keyPart(owner.OwnerIP))
}

func keyPart(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(":", "_", "*", "_").Replace(s)
}

// GetOrLoad 命中直接返回；未命中时合并并发加载并回填
// 缓存读写失败只记录，不影响返回结果
func (c *ProjectListCache) GetOrLoad(ctx context.Context, f repository.ProjectFilter, p repository.Pagination, loader func(ctx context.Context) (*ProjectPage, error)) (*ProjectPage, error) {
	key := ListKey(f, p)
	ctx, span := cacheTracer.Start(ctx, "cache.ProjectList.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var page ProjectPage
		if jsonErr := json.Unmarshal(raw, &page); jsonErr == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &page, nil
		}
		metrics.CacheLookups.WithLabelValues("error").Inc()
	case IsNil(err):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		span.RecordError(err)
		logger.Warn(ctx, "project cache read failed", "key", key, "error", err.Error())
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	page, shared, err := c.loadShared(ctx, key, loader)
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return page, nil
}

// loadShared 合并同一键的并发加载
// 加载脱离发起者的取消，只受 loadTimeout 约束；调用方取消时自行返回，不影响其他等待者。
func (c *ProjectListCache) loadShared(ctx context.Context, key string, loader func(ctx context.Context) (*ProjectPage, error)) (*ProjectPage, bool, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		timeout := c.loadTimeout
		if timeout <= 0 {
			timeout = defaultLoadTimeout
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		page, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		c.store(loadCtx, key, page)
		return page, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.(*ProjectPage), res.Shared, nil
	}
}

func (c *ProjectListCache) store(ctx context.Context, key string, page *ProjectPage) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := c.client.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "project cache write failed", "key", key, "error", err.Error())
	}
}

// InvalidateOwner 使某一归属 IP 下的全部列表缓存失效
// 未按归属过滤的全局列表也一并失效
func (c *ProjectListCache) InvalidateOwner(ctx context.Context, owner entity.OwnerFingerprint) error {
	ctx, span := cacheTracer.Start(ctx, "cache.ProjectList.InvalidateOwner")
	defer span.End()

	for _, pattern := range []string{ownerPattern(owner), listKeyPrefix + "_:*"} {
		if err := c.invalidatePattern(ctx, pattern); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

func (c *ProjectListCache) invalidatePattern(ctx context.Context, pattern string) error {
	iter := c.client.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.rdb.Del(ctx, keys...).Err()
}
