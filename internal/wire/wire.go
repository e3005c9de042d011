//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ultra-prompt-ai-api/internal/config"
)

// InitializeApp 初始化 API 网关
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		ProvideStore,
		RedisSet,
		LLMSet,
		DomainSet,
		RouterSet,
		ProvideSubscriber,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeToolkit 初始化 CLI 依赖：SQLite 仓储，无 Redis
func InitializeToolkit(ctx context.Context, cfg *config.Config) (*Toolkit, func(), error) {
	wire.Build(
		ProvideSQLiteStore,
		ProvideNoListCache,
		ProvideNoEventPublisher,
		LLMSet,
		DomainSet,
		wire.Struct(new(Toolkit), "*"),
	)
	return nil, nil, nil
}
