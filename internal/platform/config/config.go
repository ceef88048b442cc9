// Package config reads settings from the environment through prefixed views
// such as SCAN_, CACHE_ or SERVICE_PGSQL_
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"

	"github.com/caarlos0/env/v11"
)

// Conf is a view over the environment; the zero value reads unprefixed keys
type Conf struct{ prefix string }

// New returns the root view
func New() Conf { return Conf{} }

// Prefix narrows the view, prefixes stack
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

// may returns def for unset keys and for values parse rejects, the latter with a warning
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).Msg("unparsable setting, using default")
		return def
	}
	return v
}

// MustString panics when key is unset
func (c Conf) MustString(key string) string {
	v := c.lookup(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// MayString returns def when key is unset
func (c Conf) MayString(key, def string) string {
	return may(c, key, def, func(s string) (string, error) { return s, nil })
}

// MayInt accepts signed integers (RSSI thresholds are negative)
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

// MayBool accepts what strconv.ParseBool accepts
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration accepts Go duration strings like 250ms or 15h
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayCSV splits on commas and drops blanks; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	out := may(c, key, def, func(s string) ([]string, error) {
		var parts []string
		for p := range strings.SplitSeq(s, ",") {
			if v := strings.TrimSpace(p); v != "" {
				parts = append(parts, v)
			}
		}
		return parts, nil
	})
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the lowercased allowed value matching key, def when unset;
// anything outside allowed is a boot failure
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return strings.ToLower(a)
		}
	}
	if v != "" {
		logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	}
	return v
}

// Parse fills a struct tagged with `env:"KEY"` (and envDefault) from this view,
// keys are looked up under the view's prefix
func Parse[T any](c Conf) (T, error) {
	var out T
	if err := env.ParseWithOptions(&out, env.Options{Prefix: c.prefix}); err != nil {
		return out, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "parse %senv", c.prefix)
	}
	return out, nil
}
