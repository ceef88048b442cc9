// @title         Picktrack API
// @version       0.1.0
// @description   RFID picklist scanning, product lookup and picklist cache

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picktrack/internal/adapters/blob"
	"picktrack/internal/core/version"
	"picktrack/internal/platform/config"
	"picktrack/internal/platform/logger"
	phttp "picktrack/internal/platform/net/http"
	"picktrack/internal/platform/store"

	"picktrack/internal/services/api"

	"golang.org/x/sync/errgroup"
)

func main() {
	// service-scoped config for HTTP etc (PICKTRACK_API_*)
	root := config.New()
	apiCfg := root.Prefix("PICKTRACK_API_")
	cacheCfg := root.Prefix("CACHE_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := cacheCfg.MayEnum("BLOB_BACKEND", blob.BackendAuto,
		blob.BackendAuto, blob.BackendPG, blob.BackendSQLite, blob.BackendMemory)

	// postgres and clickhouse are optional, a handheld runs on sqlite alone
	pgOn := pgCfg.MayBool("ENABLED", false)
	chOn := chCfg.MayBool("ENABLED", false)
	liteOn := backend == blob.BackendSQLite || (backend == blob.BackendAuto && !pgOn)

	sc := store.Config{
		AppName: version.Info().Service,
		PG: store.PGConfig{
			Enabled:     pgOn,
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:    chOn,
			ClientName: "api",
			ClientTag:  chCfg.MayString("CLIENT_TAG", ""),
		},
		SQLite: store.SQLiteConfig{
			Enabled: liteOn,
			Path:    cacheCfg.MayString("SQLITE_PATH", "picktrack.db"),
		},
	}
	if pgOn {
		sc.PG.URL = pgCfg.MustString("DBURL")
	}
	if chOn {
		sc.CH.URL = chCfg.MustString("DBURL")
	}

	st, err := store.Open(ctx, sc, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads PICKTRACK_API_PORT)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	workers, err := api.Mount(ctx,
		srv.Router(),
		api.Options{
			Config:          root,
			Store:           st,
			Logger:          l,
			EnableSwagger:   apiCfg.MayBool("SWAGGER", true),
			EnableProfiler:  apiCfg.MayBool("PROFILER", false),
			DocsTitleSuffix: apiCfg.MayString("DOCS_TITLE_SUFFIX", ""),
			BlobBackend:     backend,
			StmtTimeout:     pgCfg.MayDuration("STMT_TIMEOUT", 5*time.Second),
			CORSOrigins:     apiCfg.MayCSV("CORS_ORIGINS", nil),
		},
	)
	if err != nil {
		l.Panic().Err(err).Msg("api.Mount failed")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			l.Info().Str("worker", w.Name).Msg("worker started")
			defer l.Info().Str("worker", w.Name).Msg("worker stopped")
			return w.Run(gctx)
		})
	}
	g.Go(func() error { return srv.Run(gctx) })

	// run
	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("picktrack-api stopped with error")
		return
	}
	l.Info().Msg("picktrack-api stopped")
}
