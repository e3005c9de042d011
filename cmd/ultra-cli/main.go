// Package main ultra 命令行：在本地完成提问、生成、精修与项目管理，项目保存在 SQLite
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ultra-prompt-ai-api/internal/config"
	"ultra-prompt-ai-api/internal/domain/entity"
	einoobs "ultra-prompt-ai-api/internal/observability/eino"
	"ultra-prompt-ai-api/internal/wire"
	"ultra-prompt-ai-api/pkg/logger"
)

// localOwner CLI 写入与读取项目使用的固定指纹
var localOwner = entity.OwnerFingerprint{OwnerIP: "127.0.0.1"}

var (
	// 全局参数
	configDir string
	dbPath    string
	logLevel  string

	cfg     *config.Config
	toolkit *wire.Toolkit
	cleanup = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "ultra",
	Short: "Ultra prompt generator",
	Long: `ultra turns a concept (text and/or reference images) into a production
document for storybooks, videos and songs.

Projects are saved to a local SQLite database and can be refined later.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		logger.InitWithWriter(os.Stderr, logLevel, "text")

		var err error
		if configDir != "" {
			cfg, err = config.LoadFrom(configDir)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dbPath != "" {
			cfg.Database.SQLite.Path = dbPath
		}

		einoobs.Init()
		toolkit, cleanup, err = wire.InitializeToolkit(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory containing config.yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides database.sqlite.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(questionsCmd, generateCmd, refineCmd, rewriteCmd, projectsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
