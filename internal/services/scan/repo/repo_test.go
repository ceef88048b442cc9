package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"picktrack/internal/adapters/blob"
	perr "picktrack/internal/platform/errors"
	"picktrack/internal/services/scan/domain"
)

type fakeCH struct {
	table string
	rows  [][]any
	execs []string
	err   error
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	f.table = table
	f.rows = append(f.rows, rows...)
	return f.err
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return f.err
}

func (f *fakeCH) Ping(context.Context) error { return nil }

func (f *fakeCH) Close() error { return nil }

func TestSessions_RecordWritesOneRow(t *testing.T) {
	ch := &fakeCH{}
	sink := NewSessions(ch)
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("X", 3600))
	err := sink.Record(context.Background(), domain.SessionSummary{
		SessionID: "s1", DeviceID: "d1", StartedAt: start, StoppedAt: start.Add(time.Minute),
		Tags: 4, Resolved: 3, NotFound: 1, Grace: true,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if ch.table != SessionsTable || len(ch.rows) != 1 || len(ch.rows[0]) != 8 {
		t.Fatalf("table=%s rows=%v", ch.table, ch.rows)
	}
	if at := ch.rows[0][2].(time.Time); at.Location() != time.UTC {
		t.Fatalf("timestamps should be UTC, got %v", at.Location())
	}
	if ch.rows[0][4].(uint32) != 4 || !ch.rows[0][7].(bool) {
		t.Fatalf("row = %v", ch.rows[0])
	}
}

func TestSessions_ErrorsAndNoop(t *testing.T) {
	ch := &fakeCH{err: errors.New("down")}
	s := NewSessions(ch).(*Sessions)
	if err := s.Record(context.Background(), domain.SessionSummary{SessionID: "x"}); !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("err = %v", err)
	}
	if err := s.Ensure(context.Background()); err == nil || len(ch.execs) != 1 {
		t.Fatalf("ensure should run the DDL and surface the error")
	}
	if _, ok := NewSessions(nil).(Noop); !ok {
		t.Fatalf("nil seam should give the no-op sink")
	}
}

func TestSettings_RoundTrip(t *testing.T) {
	st := NewSettings(blob.NewMemory())
	ctx := context.Background()

	if _, ok, err := st.Load(ctx); ok || err != nil {
		t.Fatalf("fresh store: ok=%v err=%v", ok, err)
	}
	want := domain.Settings{PowerLevel: 9, RSSIThreshold: -70, GracePeriodMs: 300, DuplicateRemoval: true}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := st.Load(ctx)
	if err != nil || !ok || got != want {
		t.Fatalf("load = %+v ok=%v err=%v", got, ok, err)
	}
}

func TestSettings_CorruptBlob(t *testing.T) {
	mem := blob.NewMemory()
	_ = mem.Put(context.Background(), SettingsKey, []byte("{"))
	if _, _, err := NewSettings(mem).Load(context.Background()); !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("err = %v", err)
	}
}
