package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"picktrack/internal/platform/store/sqlite"
)

// LiteSchema creates the sqlite blob table
const LiteSchema = `
CREATE TABLE IF NOT EXISTS picktrack_blobs (
	key        TEXT    PRIMARY KEY,
	data       BLOB    NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Lite stores blobs in the on-device sqlite database
type Lite struct {
	db  *sql.DB
	now func() time.Time
}

// NewLite wraps an open sqlite handle
func NewLite(db *sql.DB) *Lite { return &Lite{db: db, now: time.Now} }

// Ensure creates the blob table when missing
func (l *Lite) Ensure(ctx context.Context) error {
	return sqlite.Ensure(ctx, l.db, LiteSchema)
}

// Get returns the blob stored under key
func (l *Lite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := l.db.QueryRowContext(ctx, `SELECT data FROM picktrack_blobs WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", key, err)
	}
	return data, true, nil
}

// Put upserts the blob under key
func (l *Lite) Put(ctx context.Context, key string, data []byte) error {
	const q = `
INSERT INTO picktrack_blobs (key, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	if _, err := l.db.ExecContext(ctx, q, key, data, l.now().UnixMilli()); err != nil {
		return fmt.Errorf("put blob %s: %w", key, err)
	}
	return nil
}
