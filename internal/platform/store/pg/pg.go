// Package pg builds the pgx pool and its query tracer
package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config shapes the pool
type Config struct {
	URL      string
	MaxConns int32
	AppName  string
	// Tracer is installed on every connection when set
	Tracer pgx.QueryTracer
}

var newPool = pgxpool.NewWithConfig

// Open parses URL and creates the pool; connections are made lazily
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.AppName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}
	if cfg.Tracer != nil {
		pc.ConnConfig.Tracer = cfg.Tracer
	}
	return newPool(ctx, pc)
}
