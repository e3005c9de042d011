package wire

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/google/wire"

	"ultra-prompt-ai-api/internal/application/project"
	"ultra-prompt-ai-api/internal/application/refine"
	"ultra-prompt-ai-api/internal/application/session"
	"ultra-prompt-ai-api/internal/config"
	"ultra-prompt-ai-api/internal/domain/repository"
	"ultra-prompt-ai-api/internal/infrastructure/llm"
	"ultra-prompt-ai-api/internal/infrastructure/messaging"
	"ultra-prompt-ai-api/internal/infrastructure/persistence/memory"
	"ultra-prompt-ai-api/internal/infrastructure/persistence/postgres"
	"ultra-prompt-ai-api/internal/infrastructure/persistence/redis"
	"ultra-prompt-ai-api/internal/infrastructure/persistence/sqlite"
	"ultra-prompt-ai-api/internal/interfaces/http/handler"
	"ultra-prompt-ai-api/internal/interfaces/http/middleware"
	"ultra-prompt-ai-api/internal/interfaces/http/router"
	workflowport "ultra-prompt-ai-api/internal/workflow/port"
	"ultra-prompt-ai-api/pkg/logger"
)

// 持久化驱动
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// App API 网关运行所需的顶层对象
type App struct {
	Router     *router.Router
	Sessions   *session.Manager
	Subscriber *messaging.Subscriber
}

// Toolkit CLI 使用的依赖，不含 HTTP 层
type Toolkit struct {
	Sessions *session.Manager
	Projects *project.Service
	Refine   *refine.Engine
}

// Store 选定驱动的项目仓储及其探活对象
type Store struct {
	Driver string
	Repo   repository.SavedProjectRepository
	Health handler.HealthChecker
}

// LLMSet 生成客户端提供者集合
var LLMSet = wire.NewSet(
	llm.NewEinoFactory,
	llm.NewRouter,
	wire.Bind(new(workflowport.GenerationClient), new(*llm.Router)),
	refine.NewEngine,
)

// RedisSet 可选 Redis 及其上的缓存、限流、事件
var RedisSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideListCache,
	ProvideEventPublisher,
	ProvideRateLimiter,
)

// DomainSet 项目服务与会话管理
var DomainSet = wire.NewSet(
	ProvideProjectService,
	ProvideSessionManager,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewOptionsHandler,
	handler.NewSessionHandler,
	handler.NewProjectHandler,
	handler.NewRewriteHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvideStore 按 persistence.driver 构造项目仓储
func ProvideStore(ctx context.Context, cfg *config.Config) (*Store, func(), error) {
	switch cfg.Persistence.Driver {
	case DriverPostgres, "":
		client, err := postgres.NewClient(&cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := client.Migrate(ctx); err != nil {
				_ = client.Close()
				return nil, nil, err
			}
		}
		cleanup := func() {
			_ = client.Close()
		}
		return &Store{Driver: DriverPostgres, Repo: postgres.NewSavedProjectRepository(client), Health: client}, cleanup, nil
	case DriverSQLite:
		return ProvideSQLiteStore(ctx, cfg)
	case DriverMemory:
		logger.Warn(ctx, "using in-memory project store, projects are lost on restart")
		return &Store{Driver: DriverMemory, Repo: memory.NewSavedProjectRepository()}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence driver %q", cfg.Persistence.Driver)
	}
}

// ProvideSQLiteStore 本地 SQLite 仓储
func ProvideSQLiteStore(ctx context.Context, cfg *config.Config) (*Store, func(), error) {
	client, err := sqlite.Open(ctx, cfg.Database.SQLite.Path)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return &Store{Driver: DriverSQLite, Repo: sqlite.NewSavedProjectRepository(client), Health: client}, cleanup, nil
}

// ProvideRedisClientOptional Redis 未启用或不可达时返回 nil，不阻塞启动
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, cache and rate limiting disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

func ProvideListCache(cfg *config.Config, rc *redis.Client) project.ListCache {
	if rc == nil {
		return nil
	}
	return redis.NewProjectListCache(rc, cfg.Persistence.CacheTTL)
}

func ProvideEventPublisher(cfg *config.Config, rc *redis.Client) project.EventPublisher {
	if rc == nil || !cfg.Messaging.Enabled {
		return nil
	}
	return messaging.NewProducer(rc.Redis(), cfg.Messaging.MaxLen)
}

// ProvideNoListCache 单进程 CLI 不使用列表缓存
func ProvideNoListCache() project.ListCache { return nil }

// ProvideNoEventPublisher 单进程 CLI 不发布事件
func ProvideNoEventPublisher() project.EventPublisher { return nil }

func ProvideRateLimiter(rc *redis.Client) middleware.RateLimiter {
	if rc == nil {
		return nil
	}
	return redis.NewRateLimiter(rc)
}

// ProvideProjectService 提供项目服务
func ProvideProjectService(cfg *config.Config, store *Store, cache project.ListCache, events project.EventPublisher) *project.Service {
	return project.NewService(store.Repo, cache, events, project.Options{UpsertTries: cfg.Persistence.UpsertTries})
}

// ProvideSessionManager 提供会话管理器，生成成功后的项目写入项目服务
func ProvideSessionManager(cfg *config.Config, client workflowport.GenerationClient, projects *project.Service) *session.Manager {
	return session.NewManager(client, projects, session.Options{
		ConceptMaxChars: cfg.Generation.ConceptMaxChars,
		MaxImages:       cfg.Generation.MaxImages,
		Sentinel:        cfg.Generation.SentinelAnswer,
		Now:             time.Now,
		NewProjectID:    uuid.NewString,
	}, cfg.Session.TTL)
}

// ProvideHealthHandler 注册就绪探测：仓储必需，Redis 可选
func ProvideHealthHandler(cfg *config.Config, store *Store, rc *redis.Client) *handler.HealthHandler {
	h := handler.NewHealthHandler(cfg.App.Version)
	if store.Health != nil {
		h.Require(store.Driver, store.Health)
	}
	if rc != nil {
		h.Optional("redis", rc)
	}
	return h
}

// ProvideSubscriber 订阅项目删除事件，使其他实例上的会话放弃该项目
func ProvideSubscriber(cfg *config.Config, rc *redis.Client, sessions *session.Manager) *messaging.Subscriber {
	if rc == nil || !cfg.Messaging.Enabled {
		return nil
	}
	sub := messaging.NewSubscriber(rc.Redis(), messaging.StreamProjectEvents, 5*time.Second)
	sub.Handle(messaging.EventProjectDeleted, func(ctx context.Context, msg *messaging.Message) error {
		if n := sessions.ForgetProject(ctx, msg.ProjectID); n > 0 {
			logger.Info(ctx, "sessions released deleted project", "sessions", n)
		}
		return nil
	})
	return sub
}
