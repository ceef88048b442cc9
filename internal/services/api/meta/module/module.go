// Package module wires the meta endpoints into the API
package module

import (
	"time"

	"picktrack/internal/core/version"
	"picktrack/internal/modkit"
	"picktrack/internal/modkit/httpkit"

	metahttp "picktrack/internal/services/api/meta/http"
)

// Module serves health, readiness, version and storage status
type Module struct {
	modkit.Base
	deps metahttp.Deps
}

// New builds the meta module; blob names the backend holding cache snapshots and settings
func New(deps modkit.Deps, blob string, opts ...modkit.Option) *Module {
	return &Module{
		Base: modkit.Build("meta", "/meta", opts...),
		deps: metahttp.Deps{
			ServiceName: version.Info().Service,
			StartedAt:   time.Now(),
			Blob:        blob,
			Probes:      deps.Probes,
		},
	}
}

// MountRoutes mounts the meta routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.deps) })
}

// Ports is empty, nothing depends on meta
func (m *Module) Ports() any { return nil }
