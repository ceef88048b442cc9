package modkit

import (
	"net/http"
	"strings"

	"picktrack/internal/modkit/httpkit"
)

// Module is one mountable slice of the API
type Module interface {
	Name() string
	Prefix() string
	MountRoutes(r httpkit.Router)
	// Ports is the module's exported port set, usually a struct of interfaces
	Ports() any
}

// Base holds what modules share; embed it and add MountRoutes and Ports
type Base struct {
	name     string
	prefix   string
	mws      []func(http.Handler) http.Handler
	extra    []func(httpkit.Router)
	injected any
}

// Build starts from the module's own name and prefix and applies caller options
func Build(name, prefix string, opts ...Option) Base {
	b := Base{name: name, prefix: prefix}
	for _, o := range opts {
		o(&b)
	}
	if !strings.HasPrefix(b.prefix, "/") {
		b.prefix = "/" + b.prefix
	}
	return b
}

// Name is the module name used in logs and port lookups
func (b Base) Name() string { return b.name }

// Prefix is the mount path under the API version
func (b Base) Prefix() string { return b.prefix }

// Injected is whatever WithPorts handed in, nil when nothing was
func (b Base) Injected() any { return b.injected }

// Mount routes register under the prefix behind the module middleware,
// followed by any routes added with WithRoutes
func (b Base) Mount(r httpkit.Router, register func(httpkit.Router)) {
	r.Route(b.prefix, func(sub httpkit.Router) {
		if len(b.mws) > 0 {
			sub.Use(b.mws...)
		}
		register(sub)
		for _, fn := range b.extra {
			fn(sub)
		}
	})
}
