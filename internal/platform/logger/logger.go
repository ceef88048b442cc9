// Package logger owns the process zerolog logger and the per request and per
// session children derived from it
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"picktrack/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is zerolog's logger; callers never import zerolog for the type
type Logger = zerolog.Logger

// Options shape the root logger
type Options struct {
	Level   string // trace..panic, unknown values fall back to info
	JSON    bool   // console output otherwise
	Service string
	Caller  bool
	// SampleEvery keeps one event in N when above 1
	SampleEvery int
	Fields      map[string]string
	Writer      io.Writer // stdout when nil
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT (console or json), LOG_SERVICE,
// LOG_CALLER and LOG_SAMPLE_EVERY
func FromEnv() Options {
	env := raw.New().Prefix("LOG_")
	return Options{
		Level:       env.Get("LEVEL", "info"),
		JSON:        strings.EqualFold(env.Get("FORMAT", "console"), "json"),
		Service:     env.Get("SERVICE", "picktrack"),
		Caller:      env.GetBool("CALLER", false),
		SampleEvery: env.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	initOnce sync.Once
	root     atomic.Pointer[Logger]
)

// Init builds the root logger; later calls, and the lazy FromEnv init in Get,
// are no-ops once one has run
func Init(opt Options) {
	initOnce.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		out := opt.Writer
		if out == nil {
			out = os.Stdout
		}
		if !opt.JSON {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
		}

		b := zerolog.New(out).Level(level(opt.Level)).With().Timestamp()
		if opt.Service != "" {
			b = b.Str("service", opt.Service)
		}
		for k, v := range opt.Fields {
			b = b.Str(k, v)
		}
		if opt.Caller {
			b = b.Caller()
		}
		l := b.Logger()
		if opt.SampleEvery > 1 {
			l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
		}
		root.Store(&l)
	})
}

func level(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Get returns the root logger, built from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Nop discards everything
func Nop() *Logger {
	l := zerolog.Nop()
	return &l
}

// Named is a root child tagged with component
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

type ctxKey struct{}

// C returns the logger bound to ctx, the root logger when nothing was bound
func C(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Get()
}

// With binds a child of C(ctx) carrying key=value; empty values bind nothing
func With(ctx context.Context, key, value string) context.Context {
	if value == "" {
		return ctx
	}
	l := C(ctx).With().Str(key, value).Logger()
	return context.WithValue(ctx, ctxKey{}, &l)
}

// WithRequest tags ctx's logger with request_id
func WithRequest(ctx context.Context, id string) context.Context { return With(ctx, "request_id", id) }

// WithSession tags ctx's logger with session_id
func WithSession(ctx context.Context, id string) context.Context { return With(ctx, "session_id", id) }
