package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"picktrack/internal/modkit/repokit"
	perr "picktrack/internal/platform/errors"

	"github.com/jackc/pgx/v5"
)

// Table holds every blob in Postgres
const Table = "picktrack_blobs"

// Schema creates the Postgres blob table
const Schema = `
CREATE TABLE IF NOT EXISTS picktrack_blobs (
	key        text        PRIMARY KEY,
	data       bytea       NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// PG stores blobs in Postgres through the shared tx runner
type PG struct {
	db repokit.TxRunner
}

// NewPG wraps db; writes run with a per transaction statement timeout and
// are retried on serialization failures
func NewPG(db repokit.TxRunner, stmtTimeout time.Duration) *PG {
	if stmtTimeout <= 0 {
		stmtTimeout = 5 * time.Second
	}
	db = repokit.WithBeginHooks(db, statementTimeout(stmtTimeout))
	return &PG{db: repokit.Retry(db, putAttempts, 50*time.Millisecond)}
}

const putAttempts = 3

func statementTimeout(d time.Duration) repokit.BeginHook {
	stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", d.Milliseconds())
	return func(ctx context.Context, q repokit.Queryer) error {
		_, err := q.Exec(ctx, stmt)
		return err
	}
}

// Ensure creates the blob table when missing
func (p *PG) Ensure(ctx context.Context) error {
	_, err := p.db.Exec(ctx, Schema)
	return perr.FromPostgres(err, "ensure blob table")
}

// Get returns the blob stored under key
func (p *PG) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const sql = `SELECT data FROM picktrack_blobs WHERE key = $1`
	var data []byte
	err := p.db.QueryRow(ctx, sql, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.FromPostgresf(err, "get blob %s", key)
	}
	return data, true, nil
}

// Put upserts the blob under key
func (p *PG) Put(ctx context.Context, key string, data []byte) error {
	const sql = `
INSERT INTO picktrack_blobs (key, data, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	return p.db.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, sql, key, data)
		return perr.FromPostgresf(err, "put blob %s", key)
	})
}
