package modkit

import (
	"net/http"

	"picktrack/internal/modkit/httpkit"
)

// Option adjusts a module at build time
type Option func(*Base)

// WithName overrides the module name
func WithName(name string) Option { return func(b *Base) { b.name = name } }

// WithPrefix overrides the mount path
func WithPrefix(prefix string) Option { return func(b *Base) { b.prefix = prefix } }

// WithMiddlewares appends per module middleware, applied in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Base) { b.mws = append(b.mws, mw...) }
}

// WithPorts injects the collaborators a module declares in its own Ports type
func WithPorts[T any](p T) Option { return func(b *Base) { b.injected = p } }

// WithRoutes mounts extra routes beside the module's own
func WithRoutes(fn func(httpkit.Router)) Option {
	return func(b *Base) { b.extra = append(b.extra, fn) }
}

// InjectedAs returns the injected port set as T, zero when absent or of another type
func InjectedAs[T any](b Base) T {
	v, _ := b.injected.(T)
	return v
}
