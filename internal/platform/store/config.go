package store

import (
	"time"

	"picktrack/internal/platform/logger"
)

// Config enables and configures each backend
type Config struct {
	// AppName is reported to Postgres as application_name
	AppName string

	PG     PGConfig
	CH     CHConfig
	SQLite SQLiteConfig
}

// PGConfig configures the pgx pool
type PGConfig struct {
	Enabled  bool
	URL      string
	MaxConns int32
	// SlowQueryMs logs statements at or over this as warnings, 0 disables
	SlowQueryMs int
	// LogSQL logs every statement at debug
	LogSQL bool

	// ConnectRetries bounds the boot ping loop, 20 when 0
	ConnectRetries int
	// PingTimeout bounds each boot ping, 3s when 0
	PingTimeout time.Duration
}

// CHConfig configures the ClickHouse connection
type CHConfig struct {
	Enabled bool
	URL     string
	// ClientName and ClientTag show up in system.query_log
	ClientName string
	ClientTag  string
}

// SQLiteConfig names the on-device database file, ":memory:" for tests
type SQLiteConfig struct {
	Enabled bool
	Path    string
}

// Option adjusts the Store before backends open
type Option func(*Store)

// WithLogger routes backend logs (connect retries, SQL tracing) to log
func WithLogger(log logger.Logger) Option {
	return func(s *Store) { s.Log = log }
}
