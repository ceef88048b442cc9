package module

import (
	"time"

	"picktrack/internal/platform/config"
	"picktrack/internal/services/cache/service"
)

// Options controls the cache module
type Options struct {
	Debounce time.Duration
	Rules    []service.Rule
}

// FromConfig reads CACHE_ prefixed settings
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CACHE_")
	return Options{
		Debounce: c.MayDuration("PERSIST_DEBOUNCE", service.DefaultDebounce),
	}
}
