package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	perr "picktrack/internal/platform/errors"
	kit "picktrack/internal/platform/testkit"
	"picktrack/internal/services/scan/domain"
)

type fakeDriver struct {
	mu         sync.Mutex
	handler    func(identifier, rawSignal string)
	configured []domain.Settings
	starts     int
	stops      int
	startErr   error
	configErr  error
}

func (d *fakeDriver) Configure(_ context.Context, s domain.Settings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configured = append(d.configured, s)
	return d.configErr
}

func (d *fakeDriver) StartInventory(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	return d.startErr
}

func (d *fakeDriver) StopInventory(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

func (d *fakeDriver) OnTag(h func(identifier, rawSignal string)) { d.handler = h }

type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) Notify(ev domain.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) Kinds(kind domain.EventKind) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Event
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (l *eventLog) States() []string {
	var out []string
	for _, ev := range l.Kinds(domain.EventScanStateChanged) {
		out = append(out, ev.State)
	}
	return out
}

type countingFeedback struct {
	mu  sync.Mutex
	ids []string
}

func (f *countingFeedback) Detected(id string, _ int) {
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()
}

type memSink struct {
	mu   sync.Mutex
	sums []domain.SessionSummary
}

func (m *memSink) Record(_ context.Context, s domain.SessionSummary) error {
	m.mu.Lock()
	m.sums = append(m.sums, s)
	m.mu.Unlock()
	return nil
}

func (m *memSink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sums)
}

type memSettings struct {
	saved *domain.Settings
	err   error
}

func (m *memSettings) Load(context.Context) (domain.Settings, bool, error) {
	if m.saved == nil {
		return domain.Settings{}, false, m.err
	}
	return *m.saved, true, m.err
}

func (m *memSettings) Save(_ context.Context, s domain.Settings) error {
	if m.err != nil {
		return m.err
	}
	m.saved = &s
	return nil
}

type manualTimer struct {
	fn      func()
	d       time.Duration
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type rig struct {
	svc      *Svc
	driver   *fakeDriver
	resolver *fakeResolver
	events   *eventLog
	feedback *countingFeedback
	sink     *memSink
	timers   []*manualTimer
}

func newRig(t *testing.T, settings domain.Settings, known ...string) *rig {
	t.Helper()
	r := &rig{
		driver:   &fakeDriver{},
		resolver: newFakeResolver(known...),
		events:   &eventLog{},
		feedback: &countingFeedback{},
		sink:     &memSink{},
	}
	r.svc = New(Config{Settings: settings, DeviceID: "dev-1"}, Wiring{
		Driver:   r.driver,
		Resolver: r.resolver,
		Notifier: r.events,
		Feedback: r.feedback,
		Sink:     r.sink,
	})
	r.svc.after = func(d time.Duration, f func()) timer {
		mt := &manualTimer{fn: f, d: d}
		r.timers = append(r.timers, mt)
		return mt
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.svc.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func mustStart(t *testing.T, r *rig) {
	t.Helper()
	if err := r.svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func TestAddEvent_DuplicateAboveThresholdDetectedOnce(t *testing.T) {
	r := newRig(t, domain.DefaultSettings())
	mustStart(t, r)

	r.svc.AddEvent("E1", -50)
	r.svc.AddEvent("E1", -50)

	if got := r.svc.Registry(); !slices.Equal(got, []string{"E1"}) {
		t.Fatalf("registry = %v", got)
	}
	if n := len(r.events.Kinds(domain.EventTagDetected)); n != 1 {
		t.Fatalf("want one detection, got %d", n)
	}
	if len(r.feedback.ids) != 1 {
		t.Fatalf("want one beep, got %d", len(r.feedback.ids))
	}
	if len(r.resolver.Calls()) != 0 {
		t.Fatalf("no per-tag lookup expected")
	}
}

func TestAddEvent_BelowThresholdDropped(t *testing.T) {
	r := newRig(t, domain.DefaultSettings())
	mustStart(t, r)

	r.svc.AddEvent("E1", -61)
	r.svc.AddEvent("E2", -60)

	if got := r.svc.Registry(); !slices.Equal(got, []string{"E2"}) {
		t.Fatalf("registry = %v, threshold is inclusive", got)
	}
}

func TestAddEvent_BlankAndIdleDropped(t *testing.T) {
	r := newRig(t, domain.DefaultSettings())

	r.svc.AddEvent("E1", -10)
	if len(r.svc.Registry()) != 0 {
		t.Fatalf("events while IDLE must be dropped")
	}
	mustStart(t, r)
	r.svc.AddEvent("   ", -10)
	r.svc.AddEvent("", -10)
	if len(r.svc.Registry()) != 0 || len(r.events.Kinds(domain.EventTagDetected)) != 0 {
		t.Fatalf("blank identifiers must be dropped silently")
	}
}

func TestAddEvent_KnownResultNeverRedetected(t *testing.T) {
	r := newRig(t, domain.DefaultSettings())
	r.svc.SeedResults(map[string]domain.LookupResult{"E9": domain.NotFound("E9")})
	mustStart(t, r)

	r.svc.AddEvent("E9", -20)
	r.svc.ClearRegistry()
	r.svc.AddEvent("E9", -20)

	if n := len(r.events.Kinds(domain.EventTagDetected)); n != 0 {
		t.Fatalf("resolved id re-detected %d times", n)
	}
	if got := r.svc.Registry(); !slices.Equal(got, []string{"E9"}) {
		t.Fatalf("known ids still join the registry, got %v", got)
	}
}

func TestDriverCallback_NormalizesAndParses(t *testing.T) {
	r := newRig(t, domain.DefaultSettings())
	mustStart(t, r)

	r.driver.handler(" e1 ", "-40dBm")
	r.driver.handler("E1", "-41")
	r.driver.handler("E2", "garbage")

	if got := r.svc.Registry(); !slices.Equal(got, []string{"E1", "E2"}) {
		t.Fatalf("registry = %v", got)
	}
	det := r.events.Kinds(domain.EventTagDetected)
	if det[0].Signal != -40 || det[1].Signal != -60 {
		t.Fatalf("signals = %d, %d", det[0].Signal, det[1].Signal)
	}
}

func TestStart_PushesSettingsAndIsIdempotent(t *testing.T) {
	s := domain.DefaultSettings()
	s.PowerLevel = 22
	r := newRig(t, s)
	mustStart(t, r)
	mustStart(t, r)

	if r.driver.starts != 1 || len(r.driver.configured) != 1 || r.driver.configured[0].PowerLevel != 22 {
		t.Fatalf("driver saw starts=%d configured=%v", r.driver.starts, r.driver.configured)
	}
	if r.svc.Snapshot().SessionID == "" {
		t.Fatalf("session id should be minted on start")
	}
}

func TestStart_DriverFailureStaysIdle(t *testing.T) {
	r := newRig(t, domain.DefaultSettings())
	r.driver.startErr = errors.New("radio off")

	err := r.svc.Start(context.Background())
	if !perr.IsCode(err, perr.ErrorCodeDriver) {
		t.Fatalf("want driver error, got %v", err)
	}
	if r.svc.State() != domain.StateIdle {
		t.Fatalf("state = %s", r.svc.State())
	}
	if len(r.events.Kinds(domain.EventError)) != 1 {
		t.Fatalf("want an error notification")
	}
	if len(r.events.Kinds(domain.EventScanStateChanged)) != 0 {
		t.Fatalf("failed start must not announce scanning")
	}

	r.driver.startErr = nil
	r.driver.configErr = errors.New("bad power")
	if err := r.svc.Start(context.Background()); err == nil {
		t.Fatalf("configure failure should surface")
	}
	if r.svc.State() != domain.StateIdle {
		t.Fatalf("state = %s", r.svc.State())
	}
}

func TestStop_ResolvesRegistryAndRecordsSession(t *testing.T) {
	r := newRig(t, domain.DefaultSettings(), "A")
	mustStart(t, r)
	r.svc.AddEvent("A", -30)
	r.svc.AddEvent("B", -30)

	if err := r.svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	kit.Eventually(t, 2*time.Second, func() bool { return len(r.events.Kinds(domain.EventLookupRequired)) == 1 }, "lookup never completed")

	if calls := r.resolver.Calls(); len(calls) != 1 || !slices.Equal(calls[0], []string{"A", "B"}) {
		t.Fatalf("calls = %v", calls)
	}
	if len(r.events.Kinds(domain.EventGracePeriodCompleted)) != 1 {
		t.Fatalf("stop should announce completion")
	}
	st := r.svc.Stats()
	if st.Total != 2 || st.Resolved != 1 || st.NotFound != 1 || st.InFlight != 0 {
		t.Fatalf("stats = %+v", st)
	}
	kit.Eventually(t, time.Second, func() bool { return r.sink.Len() == 1 }, "summary never recorded")
	r.sink.mu.Lock()
	sum := r.sink.sums[0]
	r.sink.mu.Unlock()
	if sum.Tags != 2 || sum.Resolved != 1 || sum.NotFound != 1 || sum.DeviceID != "dev-1" || sum.Grace {
		t.Fatalf("summary = %+v", sum)
	}
	if r.driver.stops != 1 {
		t.Fatalf("inventory should be disabled once, got %d", r.driver.stops)
	}
}

func TestStopWithGrace_DefersSingleLookupUntilIdle(t *testing.T) {
	s := domain.DefaultSettings()
	s.GracePeriodMs = 1500
	r := newRig(t, s)
	mustStart(t, r)
	r.svc.AddEvent("A", -30)

	if err := r.svc.StopWithGrace(context.Background()); err != nil {
		t.Fatalf("stop with grace: %v", err)
	}
	if r.svc.State() != domain.StateGracePeriod {
		t.Fatalf("state = %s", r.svc.State())
	}
	if len(r.timers) != 1 || r.timers[0].d != 1500*time.Millisecond {
		t.Fatalf("want one 1500ms timer, got %v", r.timers)
	}
	if r.driver.stops != 1 {
		t.Fatalf("inventory should stop immediately")
	}

	r.svc.AddEvent("LATE", -30)
	if len(r.resolver.Calls()) != 0 {
		t.Fatalf("no lookup during the grace window")
	}

	r.timers[0].fn()
	if r.svc.State() != domain.StateIdle {
		t.Fatalf("state = %s", r.svc.State())
	}
	kit.Eventually(t, 2*time.Second, func() bool { return len(r.resolver.Calls()) == 1 }, "deferred lookup never ran")

	want := []string{"SCANNING", "GRACE_PERIOD", "IDLE"}
	if got := r.events.States(); !slices.Equal(got, want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	if calls := r.resolver.Calls(); !slices.Equal(calls[0], []string{"A"}) {
		t.Fatalf("late read leaked into lookup: %v", calls)
	}

	r.timers[0].fn()
	time.Sleep(20 * time.Millisecond)
	if len(r.resolver.Calls()) != 1 || len(r.events.Kinds(domain.EventGracePeriodCompleted)) != 1 {
		t.Fatalf("a second fire must be ignored")
	}
}

func TestStopWithGrace_ZeroWindowStopsNow(t *testing.T) {
	r := newRig(t, domain.DefaultSettings())
	mustStart(t, r)
	r.svc.AddEvent("A", -30)

	if err := r.svc.StopWithGrace(context.Background()); err != nil {
		t.Fatalf("stop with grace: %v", err)
	}
	if r.svc.State() != domain.StateIdle || len(r.timers) != 0 {
		t.Fatalf("zero grace should behave like Stop")
	}
	kit.Eventually(t, 2*time.Second, func() bool { return len(r.resolver.Calls()) == 1 }, "lookup never ran")
}

func TestCancelGrace_NoLookupAndIdempotent(t *testing.T) {
	s := domain.DefaultSettings()
	s.GracePeriodMs = 1000
	r := newRig(t, s)
	mustStart(t, r)
	r.svc.AddEvent("A", -30)
	_ = r.svc.StopWithGrace(context.Background())

	r.svc.CancelGrace()
	r.svc.CancelGrace()

	if r.svc.State() != domain.StateIdle {
		t.Fatalf("state = %s", r.svc.State())
	}
	if !r.timers[0].stopped {
		t.Fatalf("timer should be stopped")
	}
	r.timers[0].fn()
	time.Sleep(20 * time.Millisecond)
	if len(r.resolver.Calls()) != 0 || len(r.events.Kinds(domain.EventGracePeriodCompleted)) != 0 {
		t.Fatalf("cancelled grace must not look anything up")
	}
	if got := r.events.States(); !slices.Equal(got, []string{"SCANNING", "GRACE_PERIOD", "IDLE"}) {
		t.Fatalf("states = %v", got)
	}
}

func TestStart_DuringGraceConflicts(t *testing.T) {
	s := domain.DefaultSettings()
	s.GracePeriodMs = 1000
	r := newRig(t, s)
	mustStart(t, r)
	_ = r.svc.StopWithGrace(context.Background())

	if err := r.svc.Start(context.Background()); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
	if err := r.svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.svc.State() != domain.StateIdle || len(r.events.Kinds(domain.EventGracePeriodCompleted)) != 1 {
		t.Fatalf("stop during grace should flush immediately")
	}
}

func TestClearAll_EmitsDataCleared(t *testing.T) {
	r := newRig(t, domain.DefaultSettings())
	r.svc.SeedRegistry([]string{"a", "b", " "})
	r.svc.SeedResults(map[string]domain.LookupResult{"a": domain.NotFound("A")})

	if got := r.svc.Registry(); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("seeded registry = %v", got)
	}
	r.svc.ClearAll()
	if len(r.svc.Registry()) != 0 || len(r.svc.Results()) != 0 {
		t.Fatalf("ClearAll should empty both tables")
	}
	if len(r.events.Kinds(domain.EventDataCleared)) != 1 {
		t.Fatalf("want data_cleared")
	}
}

func TestRemoveIDs_DropsBothTables(t *testing.T) {
	r := newRig(t, domain.DefaultSettings())
	r.svc.SeedRegistry([]string{"A", "B"})
	r.svc.SeedResults(map[string]domain.LookupResult{"A": domain.NotFound("A")})

	r.svc.RemoveIDs([]string{"a"})
	if got := r.svc.Registry(); !slices.Equal(got, []string{"B"}) {
		t.Fatalf("registry = %v", got)
	}
	if _, ok := r.svc.Result("A"); ok {
		t.Fatalf("result for A should be gone")
	}
}

func TestUpdateSettings_ValidatesAndPersists(t *testing.T) {
	store := &memSettings{}
	svc := New(Config{}, Wiring{Driver: &fakeDriver{}, Resolver: newFakeResolver(), Store: store})

	bad := domain.DefaultSettings()
	bad.PowerLevel = 31
	if _, err := svc.UpdateSettings(context.Background(), bad); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("want validation error, got %v", err)
	}

	good := domain.Settings{PowerLevel: 12, RSSIThreshold: -70, GracePeriodMs: 250}
	got, err := svc.UpdateSettings(context.Background(), good)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.DuplicateRemoval {
		t.Fatalf("duplicate removal is always on")
	}
	if store.saved == nil || store.saved.PowerLevel != 12 {
		t.Fatalf("settings not saved: %+v", store.saved)
	}

	other := New(Config{}, Wiring{Driver: &fakeDriver{}, Resolver: newFakeResolver(), Store: store})
	if err := other.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if other.Settings() != got {
		t.Fatalf("restored %+v, want %+v", other.Settings(), got)
	}
}

func TestUpdateSettings_SaveFailureKeepsSettings(t *testing.T) {
	store := &memSettings{err: errors.New("disk full")}
	svc := New(Config{}, Wiring{Driver: &fakeDriver{}, Resolver: newFakeResolver(), Store: store})

	in := domain.Settings{PowerLevel: 5, RSSIThreshold: -50}
	if _, err := svc.UpdateSettings(context.Background(), in); err != nil {
		t.Fatalf("save failure should be logged only, got %v", err)
	}
	if svc.Settings().PowerLevel != 5 {
		t.Fatalf("settings should be in effect")
	}
}

func TestLookup_Diagnostics(t *testing.T) {
	svc := New(Config{}, Wiring{Driver: &fakeDriver{}, Resolver: newFakeResolver("A")})

	rec, err := svc.Lookup(context.Background(), "a")
	if err != nil || rec.ProductKey != "P-A" {
		t.Fatalf("lookup = %+v, %v", rec, err)
	}
	if _, err := svc.Lookup(context.Background(), "zz"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	if _, err := svc.Lookup(context.Background(), " "); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}
