package store

import (
	"context"
	"fmt"
	"time"

	"picktrack/internal/platform/logger"
	"picktrack/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is what *pgxpool.Pool and pgx.Tx have in common
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier narrows pgx results to the store seams
type querier struct{ db pgxQuerier }

func (q querier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	ct, err := q.db.Exec(ctx, sql, args...)
	return ct, err
}

func (q querier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (q querier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return q.db.QueryRow(ctx, sql, args...)
}

// postgres is the pool side TxRunner
type postgres struct {
	querier
	pool *pgxpool.Pool
}

func (p *postgres) Tx(ctx context.Context, fn func(RowQuerier) error) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(querier{db: tx})
	})
}

func (p *postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *postgres) Close() error {
	p.pool.Close()
	return nil
}

// openPG creates the pool and waits for the server, which may still be starting
// next to us in compose
func openPG(ctx context.Context, cfg Config, log logger.Logger) (*postgres, error) {
	var tracer pgx.QueryTracer
	if cfg.PG.LogSQL || cfg.PG.SlowQueryMs > 0 {
		tracer = &pg.Tracer{
			Log:  log,
			Slow: time.Duration(cfg.PG.SlowQueryMs) * time.Millisecond,
			All:  cfg.PG.LogSQL,
		}
	}
	pool, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		AppName:  cfg.AppName,
		Tracer:   tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("pg: %w", err)
	}
	p := &postgres{querier: querier{db: pool}, pool: pool}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	timeout := cfg.PG.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if err := waitReady(ctx, log, "postgres", p.Ping, attempts, timeout); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

const (
	readyBackoff    = 150 * time.Millisecond
	readyBackoffMax = 2 * time.Second
)

// waitReady pings until one succeeds, attempts run out or ctx ends
func waitReady(ctx context.Context, log logger.Logger, name string, ping func(context.Context) error, attempts int, timeout time.Duration) error {
	backoff := readyBackoff
	var err error
	for i := 1; i <= attempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		log.Warn().Err(err).Int("attempt", i).Dur("retry_in", backoff).Msgf("%s not ready", name)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, readyBackoffMax)
	}
	return fmt.Errorf("%s not ready after %d attempts: %w", name, attempts, err)
}
