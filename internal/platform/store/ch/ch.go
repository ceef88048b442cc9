// Package ch is the ClickHouse client session summaries are appended through
package ch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"picktrack/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config names the server and how this process shows up in its query log
type Config struct {
	URL        string
	ClientName string // role, e.g. "api"
	ClientTag  string
}

// CH is a native protocol connection
type CH struct {
	conn driver.Conn
}

var openConn = clickhouse.Open

// Open dials URL, a clickhouse:// DSN, and pings it
func Open(ctx context.Context, cfg Config) (*CH, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("ch: empty dsn")
	}
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ch: parse dsn: %w", err)
	}
	opts.ClientInfo = clientInfo(cfg)

	conn, err := openConn(opts)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ch: ping: %w", err)
	}
	return &CH{conn: conn}, nil
}

// clientInfo tags queries with build, role and host
func clientInfo(cfg Config) clickhouse.ClientInfo {
	bi := version.Info()
	host, _ := os.Hostname()
	info := clickhouse.ClientInfo{}
	add := func(name, v string) {
		if v = strings.TrimSpace(v); v != "" {
			info.Products = append(info.Products, struct{ Name, Version string }{name, v})
		}
	}
	add(bi.Service, bi.Version)
	add("role", cfg.ClientName)
	add("tag", cfg.ClientTag)
	add("commit", bi.Commit)
	add("go", runtime.Version())
	add("host", host)
	return info
}

// Insert sends rows to table as one batch; no rows is a no-op
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return fmt.Errorf("ch: prepare %s: %w", table, err)
	}
	for _, r := range rows {
		if err := batch.Append(r...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("ch: append %s: %w", table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("ch: send %s: %w", table, err)
	}
	return nil
}

// Exec runs DDL or a mutation
func (c *CH) Exec(ctx context.Context, sql string, args ...any) error {
	return c.conn.Exec(ctx, sql, args...)
}

// Ping checks the server answers
func (c *CH) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

// Close closes the connection
func (c *CH) Close() error { return c.conn.Close() }
