package store

import (
	"context"
	"database/sql"

	"picktrack/internal/platform/store/ch"
	"picktrack/internal/platform/store/sqlite"
)

func openCH(ctx context.Context, cfg Config) (*ch.CH, error) {
	return ch.Open(ctx, ch.Config{
		URL:        cfg.CH.URL,
		ClientName: cfg.CH.ClientName,
		ClientTag:  cfg.CH.ClientTag,
	})
}

func openSQLite(cfg Config) (*sql.DB, error) { return sqlite.Open(cfg.SQLite.Path) }
