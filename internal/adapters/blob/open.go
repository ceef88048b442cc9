package blob

import (
	"context"
	"database/sql"
	"time"

	"picktrack/internal/modkit/repokit"
	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"
)

// Backend names accepted by Open
const (
	BackendAuto   = "auto"
	BackendPG     = "pg"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Pick resolves auto to a concrete backend
// auto prefers postgres, then sqlite, then memory
func Pick(backend string, pgdb repokit.TxRunner, lite *sql.DB) string {
	if backend != "" && backend != BackendAuto {
		return backend
	}
	switch {
	case pgdb != nil:
		return BackendPG
	case lite != nil:
		return BackendSQLite
	default:
		return BackendMemory
	}
}

// Open picks a backend, creates its table and returns it
func Open(ctx context.Context, backend string, pgdb repokit.TxRunner, lite *sql.DB, stmtTimeout time.Duration) (Store, error) {
	backend = Pick(backend, pgdb, lite)
	log := logger.Named("blob")

	switch backend {
	case BackendPG:
		if pgdb == nil {
			return nil, perr.Unavailablef("blob backend pg requires postgres to be enabled")
		}
		p := NewPG(pgdb, stmtTimeout)
		if err := p.Ensure(ctx); err != nil {
			return nil, err
		}
		log.Info().Str("backend", backend).Msg("blob store ready")
		return p, nil
	case BackendSQLite:
		if lite == nil {
			return nil, perr.Unavailablef("blob backend sqlite requires sqlite to be enabled")
		}
		l := NewLite(lite)
		if err := l.Ensure(ctx); err != nil {
			return nil, err
		}
		log.Info().Str("backend", backend).Msg("blob store ready")
		return l, nil
	case BackendMemory:
		log.Warn().Msg("blob store is in memory, state will not survive a restart")
		return NewMemory(), nil
	default:
		return nil, perr.InvalidArgf("unknown blob backend %q", backend)
	}
}
