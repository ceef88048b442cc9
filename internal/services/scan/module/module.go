// Package module wires the scan engine into the API using modkit
package module

import (
	"context"
	"time"

	"picktrack/internal/adapters/lookup"
	"picktrack/internal/adapters/reader"
	"picktrack/internal/core/version"
	"picktrack/internal/modkit"
	"picktrack/internal/modkit/httpkit"
	"picktrack/internal/platform/logger"

	"picktrack/internal/services/scan/domain"
	scanhttp "picktrack/internal/services/scan/http"
	"picktrack/internal/services/scan/repo"
	"picktrack/internal/services/scan/service"
)

// Module is the scan API module
type Module struct {
	modkit.Base
	svc   *service.Svc
	http  scanhttp.Deps
	ports Exposed
}

// New builds the engine, its driver and its sinks from config plus non-zero overrides
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build("scan", "/scan", opts...)

	o := merge(FromConfig(deps.Cfg), overrides)
	log := logger.Named("scan.module")

	injected := modkit.InjectedAs[Ports](b)

	var (
		driver domain.Driver
		bridge *reader.Bridge
	)
	switch o.Driver {
	case DriverSim:
		driver = reader.NewSim(reader.SimOptions{IDs: o.SimIDs, Interval: o.SimInterval, Seed: uint64(time.Now().UnixNano())})
	default:
		bridge = reader.NewBridge()
		driver = bridge
	}

	resolver := lookup.NewClient(lookup.Options{
		BaseURL:    o.Lookup.BaseURL,
		Token:      o.Lookup.Token,
		UserAgent:  version.UserAgent(),
		Timeout:    o.Lookup.Timeout,
		MaxRetries: o.Lookup.Retries,
		RetryBase:  o.Lookup.RetryBase,
	})

	sink := repo.NewSessions(deps.CH)
	if s, ok := sink.(*repo.Sessions); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Ensure(ctx); err != nil {
			log.Warn().Err(err).Msg("scan_sessions table not ensured")
		}
		cancel()
	}

	var settings domain.SettingsStore
	if injected.Blobs != nil {
		settings = repo.NewSettings(injected.Blobs)
	}

	hub := service.NewHub()
	svc := service.New(service.Config{
		Settings:      o.Settings,
		LookupTimeout: o.LookupTimeout,
		DeviceID:      o.DeviceID,
	}, service.Wiring{
		Driver:   driver,
		Resolver: resolver,
		Notifier: hub,
		Sink:     sink,
		Store:    settings,
	})

	log.Info().Str("driver", o.Driver).Str("device_id", o.DeviceID).Str("lookup", o.Lookup.BaseURL).Msg("scan engine wired")

	hd := scanhttp.Deps{Events: hub, Diagnoser: svc, Heartbeat: o.Heartbeat}
	if bridge != nil {
		hd.Bridge = bridge
	}
	return &Module{Base: b, svc: svc, http: hd, ports: Exposed{Service: svc, Worker: svc}}
}

func merge(base, over Options) Options {
	if over.Settings != (domain.Settings{}) {
		base.Settings = over.Settings
	}
	if over.LookupTimeout != 0 {
		base.LookupTimeout = over.LookupTimeout
	}
	if over.DeviceID != "" {
		base.DeviceID = over.DeviceID
	}
	if over.Driver != "" {
		base.Driver = over.Driver
	}
	if len(over.SimIDs) > 0 {
		base.SimIDs = over.SimIDs
	}
	if over.SimInterval != 0 {
		base.SimInterval = over.SimInterval
	}
	if over.Heartbeat != 0 {
		base.Heartbeat = over.Heartbeat
	}
	if over.Lookup.BaseURL != "" {
		base.Lookup.BaseURL = over.Lookup.BaseURL
	}
	if over.Lookup.Token != "" {
		base.Lookup.Token = over.Lookup.Token
	}
	if over.Lookup.Timeout != 0 {
		base.Lookup.Timeout = over.Lookup.Timeout
	}
	if over.Lookup.Retries != 0 {
		base.Lookup.Retries = over.Lookup.Retries
	}
	if over.Lookup.RetryBase != 0 {
		base.Lookup.RetryBase = over.Lookup.RetryBase
	}
	return base
}

// MountRoutes mounts the scan routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) { scanhttp.Register(rr, m.svc, m.http) })
}

// Ports returns the exposed service and worker
func (m *Module) Ports() any { return m.ports }
