// Package http serves the meta endpoints: liveness, readiness, build and storage
package http

import (
	"context"
	"net/http"
	"time"

	"picktrack/internal/core/version"
	"picktrack/internal/modkit/httpkit"
	"picktrack/internal/platform/store"

	"golang.org/x/sync/errgroup"
)

// readyTimeout bounds all backend pings of one /ready call
const readyTimeout = 2 * time.Second

// backends are reported in this order whether or not they are configured
var backends = []string{"pg", "ch", "sqlite"}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	// Blob names the backend holding cache snapshots and settings
	Blob   string
	Probes []store.Probe
	Now    func() time.Time
}

type handlers struct {
	deps   Deps
	probes map[string]store.Probe
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{deps: d, probes: make(map[string]store.Probe, len(d.Probes))}
	for _, p := range d.Probes {
		h.probes[p.Name] = p
	}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/storage", h.storage)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"       example:"true"`
	Service string `json:"service"  example:"picktrack-api"`
	Started string `json:"started"  example:"2026-03-01T06:00:00Z"`
	UptimeS int64  `json:"uptime_s" example:"300"`
}

// ReadyCheck is one backend's ping result
type ReadyCheck struct {
	Name   string `json:"name"            example:"pg"`
	Status string `json:"status"          example:"ok"` // ok fail skipped
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432: connect: connection refused"`
	Ms     int64  `json:"ms"              example:"3"`
}

// ReadyResponse is fail when any configured backend fails
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"`
	Checks []ReadyCheck `json:"checks"`
}

// StorageResponse reports which backends this process runs with
type StorageResponse struct {
	Blob       string            `json:"blob"       example:"sqlite"`
	Postgres   bool              `json:"postgres"   example:"false"`
	Clickhouse bool              `json:"clickhouse" example:"true"`
	SQLite     bool              `json:"sqlite"     example:"true"`
	Build      version.BuildInfo `json:"build"`
}

// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		UptimeS: int64(h.deps.Now().Sub(h.deps.StartedAt) / time.Second),
	}, nil
}

// @Summary Readiness, pings every configured backend concurrently
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make([]ReadyCheck, len(backends))
	var g errgroup.Group
	for i, name := range backends {
		p, ok := h.probes[name]
		if !ok {
			checks[i] = ReadyCheck{Name: name, Status: "skipped"}
			continue
		}
		g.Go(func() error {
			start := h.deps.Now()
			err := p.Ping(ctx)
			c := ReadyCheck{Name: name, Status: "ok", Ms: h.deps.Now().Sub(start).Milliseconds()}
			if err != nil {
				c.Status, c.Error = "fail", err.Error()
			}
			checks[i] = c
			return nil
		})
	}
	_ = g.Wait()

	// skipped backends are optional on a handheld
	out := ReadyResponse{Status: "ok", Checks: checks}
	for _, c := range checks {
		if c.Status == "fail" {
			out.Status = "fail"
		}
	}
	return out, nil
}

// @Summary Build info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) { return version.Info(), nil }

// @Summary Storage backends in use
// @Tags Meta
// @Produce json
// @Success 200 {object} StorageResponse
// @Router /meta/storage [get]
func (h *handlers) storage(_ *http.Request) (any, error) {
	_, pg := h.probes["pg"]
	_, ch := h.probes["ch"]
	_, lite := h.probes["sqlite"]
	return StorageResponse{
		Blob:       h.deps.Blob,
		Postgres:   pg,
		Clickhouse: ch,
		SQLite:     lite,
		Build:      version.Info(),
	}, nil
}
