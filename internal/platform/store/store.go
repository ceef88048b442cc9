// Package store opens the optional storage backends a process runs with:
// Postgres and ClickHouse on a server, sqlite on a handheld. Repositories see
// them through the small seams below, never through a driver
package store

import (
	"context"
	"database/sql"
	"errors"

	"picktrack/internal/platform/logger"
)

// Row is a single row result
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set; Close must be called
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// CommandTag reports what a statement changed
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier runs statements on the pool or inside a transaction
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner commits when fn returns nil and rolls back otherwise
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse appends analytics rows
type Clickhouse interface {
	// Insert sends rows, each a []any in column order, as one batch
	Insert(ctx context.Context, table string, rows [][]any) error
	Exec(ctx context.Context, sql string, args ...any) error
	Ping(ctx context.Context) error
	Close() error
}

// Probe pings one configured backend
type Probe struct {
	Name string
	Ping func(context.Context) error
}

// Store holds the backends Open brought up; disabled ones stay nil
type Store struct {
	Log  logger.Logger
	PG   TxRunner
	CH   Clickhouse
	Lite *sql.DB

	closers []func() error
	probes  []Probe
}

// Open brings up every backend cfg enables, closing what it opened if a later one fails
func Open(ctx context.Context, cfg Config, opts ...Option) (_ *Store, err error) {
	s := &Store{Log: *logger.Nop()}
	for _, o := range opts {
		o(s)
	}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if cfg.PG.Enabled {
		p, err := openPG(ctx, cfg, s.Log)
		if err != nil {
			return nil, err
		}
		s.PG = p
		s.track("pg", p.Ping, p.Close)
	}
	if cfg.CH.Enabled {
		c, err := openCH(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.CH = c
		s.track("ch", c.Ping, c.Close)
	}
	if cfg.SQLite.Enabled {
		db, err := openSQLite(cfg)
		if err != nil {
			return nil, err
		}
		s.Lite = db
		s.track("sqlite", db.PingContext, db.Close)
	}
	return s, nil
}

func (s *Store) track(name string, ping func(context.Context) error, closer func() error) {
	s.probes = append(s.probes, Probe{Name: name, Ping: ping})
	s.closers = append(s.closers, closer)
}

// Probes lists one ping per open backend, in open order
func (s *Store) Probes() []Probe {
	if s == nil {
		return nil
	}
	return s.probes
}

// Close closes backends in reverse open order
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
