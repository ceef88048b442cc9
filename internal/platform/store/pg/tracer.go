package pg

import (
	"context"
	"strings"
	"time"

	"picktrack/internal/platform/logger"

	"github.com/jackc/pgx/v5"
)

// Tracer logs statements through zerolog: slow or failed ones always, the
// rest only when All is set
type Tracer struct {
	Log  logger.Logger
	Slow time.Duration
	All  bool
}

var _ pgx.QueryTracer = (*Tracer)(nil)

type traceKey struct{}

type traceStart struct {
	at  time.Time
	sql string
}

// TraceQueryStart stamps the statement start on ctx
func (t *Tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{at: time.Now(), sql: d.SQL})
}

// TraceQueryEnd logs the statement if it qualifies
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryEndData) {
	st, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}
	elapsed := time.Since(st.at)
	slow := t.Slow > 0 && elapsed >= t.Slow

	var evt = t.Log.Debug()
	switch {
	case d.Err != nil:
		evt = t.Log.Warn().Err(d.Err)
	case slow:
		evt = t.Log.Warn()
	case !t.All:
		return
	}
	evt.Str("component", "pg").
		Float64("elapsed_ms", float64(elapsed.Microseconds())/1000).
		Bool("slow", slow).
		Str("sql", compact(st.sql)).
		Int64("rows", d.CommandTag.RowsAffected()).
		Msg("pg query")
}

// compact folds whitespace runs so multi-line SQL fits on one log line
func compact(s string) string { return strings.Join(strings.Fields(s), " ") }
