// Package repo persists scan settings and session summaries
package repo

import (
	"context"
	"encoding/json"

	"picktrack/internal/modkit/repokit"
	perr "picktrack/internal/platform/errors"
	"picktrack/internal/services/scan/domain"
)

// SessionsTable is the ClickHouse table session summaries land in
const SessionsTable = "scan_sessions"

// SessionsSchema creates the ClickHouse sessions table
const SessionsSchema = `
CREATE TABLE IF NOT EXISTS scan_sessions (
	session_id String,
	device_id  LowCardinality(String),
	started_at DateTime64(3, 'UTC'),
	stopped_at DateTime64(3, 'UTC'),
	tags       UInt32,
	resolved   UInt32,
	not_found  UInt32,
	grace      Bool
) ENGINE = MergeTree
ORDER BY (device_id, started_at)`

// Blobs is the keyed byte store settings are kept in
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// SettingsKey is the blob key holding reader settings
const SettingsKey = "settings"

// Sessions writes summaries to ClickHouse
type Sessions struct {
	ch repokit.Clickhouse
}

// NewSessions returns a ClickHouse backed sink, a nil seam yields a no-op sink
func NewSessions(ch repokit.Clickhouse) domain.SessionSink {
	if ch == nil {
		return Noop{}
	}
	return &Sessions{ch: ch}
}

// Ensure creates the sessions table
func (s *Sessions) Ensure(ctx context.Context) error {
	if err := s.ch.Exec(ctx, SessionsSchema); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "ensure scan_sessions")
	}
	return nil
}

// Record inserts one summary row
func (s *Sessions) Record(ctx context.Context, sum domain.SessionSummary) error {
	row := []any{
		sum.SessionID,
		sum.DeviceID,
		sum.StartedAt.UTC(),
		sum.StoppedAt.UTC(),
		uint32(sum.Tags),
		uint32(sum.Resolved),
		uint32(sum.NotFound),
		sum.Grace,
	}
	if err := s.ch.Insert(ctx, SessionsTable, [][]any{row}); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "record session %s", sum.SessionID)
	}
	return nil
}

// Noop drops summaries when no ClickHouse is configured
type Noop struct{}

// Record implements domain.SessionSink
func (Noop) Record(context.Context, domain.SessionSummary) error { return nil }

// Settings keeps reader settings as one JSON blob
type Settings struct {
	blobs Blobs
}

// NewSettings returns a blob backed settings store
func NewSettings(b Blobs) *Settings { return &Settings{blobs: b} }

// Load returns the saved settings, ok is false when none were saved
func (s *Settings) Load(ctx context.Context) (domain.Settings, bool, error) {
	raw, ok, err := s.blobs.Get(ctx, SettingsKey)
	if err != nil || !ok {
		return domain.Settings{}, false, err
	}
	var out domain.Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.Settings{}, false, perr.Wrap(err, perr.ErrorCodeJSON, "decode settings blob")
	}
	return out, true, nil
}

// Save writes settings as JSON
func (s *Settings) Save(ctx context.Context, in domain.Settings) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode settings blob")
	}
	return s.blobs.Put(ctx, SettingsKey, raw)
}
