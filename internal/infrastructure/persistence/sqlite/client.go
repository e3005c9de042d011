// Package sqlite 提供本地单文件的项目存储，供 CLI 与测试使用
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlite")

const schema = `
CREATE TABLE IF NOT EXISTS saved_projects (
	id              TEXT PRIMARY KEY,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL,
	title           TEXT NOT NULL,
	concept_excerpt TEXT NOT NULL,
	content_type    TEXT NOT NULL,
	style           TEXT NOT NULL,
	document        TEXT NOT NULL,
	owner_ip        TEXT NOT NULL DEFAULT '',
	browser_id      TEXT NOT NULL DEFAULT '',
	character_names TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_saved_projects_updated ON saved_projects(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_saved_projects_owner ON saved_projects(owner_ip, browser_id);
`

// Client SQLite 连接
type Client struct {
	db *sql.DB
}

// Open 打开数据库并建表；path 为 ":memory:" 时使用内存库
func Open(ctx context.Context, path string) (*Client, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// 单连接：内存库每个连接各自独立，文件库避免写锁竞争
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &Client{db: db}, nil
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.db.Close()
}
