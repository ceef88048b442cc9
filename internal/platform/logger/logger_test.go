package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	kit "picktrack/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		" DEBUG ":  zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"warn":     zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"panic":    zerolog.PanicLevel,
		"":         zerolog.InfoLevel,
		"verbose":  zerolog.InfoLevel,
		"disabled": zerolog.Disabled,
	}
	for in, want := range cases {
		if got := level(in); got != want {
			t.Fatalf("level(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_CALLER", "yes")
	t.Setenv("LOG_SAMPLE_EVERY", "10")
	o := FromEnv()
	if o.Level != "debug" || !o.JSON || !o.Caller || o.SampleEvery != 10 || o.Service != "picktrack" {
		t.Fatalf("FromEnv = %+v", o)
	}
}

// Init runs once per process, so everything that depends on the root writer
// lives in this one test
func TestInit_ContextBinding(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", JSON: true, Service: "picktrack-test", Writer: &buf, Fields: map[string]string{"build": "test"}})
	Init(Options{Level: "error", Writer: &bytes.Buffer{}})

	ctx := WithSession(WithRequest(context.Background(), "req-123"), "sess-9")
	ctx = With(ctx, "device_id", "")
	C(ctx).Info().Msg("scan started")
	Named("cache").Debug().Msg("flushed")
	C(context.Background()).Warn().Msg("bare")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for k, want := range map[string]string{"request_id": "req-123", "session_id": "sess-9", "service": "picktrack-test", "build": "test", "message": "scan started"} {
		if first[k] != want {
			t.Fatalf("%s = %v, want %q (%s)", k, first[k], want, lines[0])
		}
	}
	if _, ok := first["device_id"]; ok {
		t.Fatalf("empty values must not bind")
	}
	kit.MustContain(t, lines[1], `"component":"cache"`)
	if strings.Contains(lines[2], "req-123") {
		t.Fatalf("root logger picked up request fields: %s", lines[2])
	}
	if Named("") != Get() {
		t.Fatalf("Named(\"\") should be the root")
	}
}

func TestNop_IsDisabled(t *testing.T) {
	if Nop().GetLevel() != zerolog.Disabled {
		t.Fatalf("Nop logger should be disabled")
	}
}
