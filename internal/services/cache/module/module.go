// Package module wires the picklist cache into the API using modkit
package module

import (
	"picktrack/internal/modkit"
	"picktrack/internal/modkit/httpkit"
	"picktrack/internal/platform/logger"

	"picktrack/internal/services/cache/domain"
	cachehttp "picktrack/internal/services/cache/http"
	"picktrack/internal/services/cache/service"
)

// Module is the cache API module
type Module struct {
	modkit.Base
	svc   domain.Service
	ports Exposed
}

// New builds the cache, a bad recommendation rule is fatal at boot
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build("cache", "/cache", opts...)
	log := logger.Named("cache.module")

	o := FromConfig(deps.Cfg)
	if overrides.Debounce != 0 {
		o.Debounce = overrides.Debounce
	}
	if overrides.Rules != nil {
		o.Rules = overrides.Rules
	}

	injected := modkit.InjectedAs[Ports](b)
	c, err := service.New(service.Config{Rules: o.Rules, Debounce: o.Debounce}, injected.Blobs)
	if err != nil {
		log.Panic().Err(err).Msg("cache rules rejected")
	}
	log.Info().Bool("persistent", injected.Blobs != nil).Dur("debounce", o.Debounce).Msg("cache wired")

	return &Module{Base: b, svc: c, ports: Exposed{Service: c, Persister: c}}
}

// MountRoutes mounts the cache routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) { cachehttp.Register(rr, m.svc) })
}

// Ports returns the exposed cache and persister
func (m *Module) Ports() any { return m.ports }
