// Package api provides the HTTP API for the application
package api

import (
	"context"
	"time"

	"picktrack/internal/adapters/blob"
	"picktrack/internal/platform/config"
	"picktrack/internal/platform/logger"
	phttp "picktrack/internal/platform/net/http"
	"picktrack/internal/platform/net/middleware"
	"picktrack/internal/platform/store"

	"picktrack/internal/modkit"
	"picktrack/internal/modkit/httpkit"
	"picktrack/internal/modkit/swaggerkit"

	metamod "picktrack/internal/services/api/meta/module"
	cachemod "picktrack/internal/services/cache/module"
	scanmod "picktrack/internal/services/scan/module"
)

// Options are the API options
type Options struct {
	// Config is the root view, modules apply their own prefixes
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool

	// DocsTitleSuffix tags the API docs title
	DocsTitleSuffix string

	// BlobBackend is auto, pg, sqlite or memory
	BlobBackend string
	StmtTimeout time.Duration

	// CORSOrigins empty keeps the middleware defaults
	CORSOrigins []string
}

// Worker is a background loop main runs beside the server
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

// Mount opens the shared blob store, builds every module and mounts them onto r
// the returned workers must run for the lifetime of the server
func Mount(ctx context.Context, r phttp.Router, opt Options) ([]Worker, error) {
	// load balancer probe, answered before any routing or logging
	r.Use(middleware.Heartbeat("/health"))

	deps := modkit.FromStore(*opt.Logger, opt.Config, opt.Store)

	backend := blob.Pick(opt.BlobBackend, deps.PG, deps.Lite)
	blobs, err := blob.Open(ctx, backend, deps.PG, deps.Lite, opt.StmtTimeout)
	if err != nil {
		return nil, err
	}

	scan := scanmod.New(deps, scanmod.Options{}, modkit.WithPorts(scanmod.Ports{Blobs: blobs}))
	cache := cachemod.New(deps, cachemod.Options{}, modkit.WithPorts(cachemod.Ports{Blobs: blobs}))

	mods := []modkit.Module{
		metamod.New(deps, backend),
		scan,
		cache,
	}

	if err := swaggerkit.Mount(r, swaggerkit.Options{Enabled: opt.EnableSwagger, TitleSuffix: opt.DocsTitleSuffix}); err != nil {
		return nil, err
	}
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	stack := httpkit.CommonStackWith(middleware.CORSOptions{AllowedOrigins: opt.CORSOrigins})
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
			opt.Logger.Debug().Str("module", m.Name()).Str("prefix", "/api/v1"+m.Prefix()).Msg("module mounted")
		}
	})

	worker := modkit.MustPortOf[scanmod.Exposed](scan).Worker
	persister := modkit.MustPortOf[cachemod.Exposed](cache).Persister

	// snapshots are restored before the first request can read the cache
	persister.Load(ctx)

	return []Worker{
		{Name: "scan.lookup", Run: worker.Run},
		{Name: "cache.persist", Run: persister.Run},
	}, nil
}
