// Package service implements the scan session engine and its lookup coordinator
package service

import (
	"context"
	"sync"
	"time"

	"picktrack/internal/core/tagid"
	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"
	"picktrack/internal/platform/net/http/bind"
	ptime "picktrack/internal/platform/time"
	"picktrack/internal/services/scan/domain"

	"github.com/google/uuid"
)

// Config controls the engine
type Config struct {
	Settings      domain.Settings
	LookupTimeout time.Duration
	DeviceID      string
}

// Wiring carries the collaborators the engine talks to, only Driver and Resolver are required
type Wiring struct {
	Driver   domain.Driver
	Resolver domain.Resolver
	Notifier domain.Notifier
	Feedback domain.Feedback
	Sink     domain.SessionSink
	Store    domain.SettingsStore
}

type timer interface{ Stop() bool }

type session struct {
	id      string
	started time.Time
	grace   bool
}

// Svc is the scan engine: it owns the driver, the session registry and the coordinator
type Svc struct {
	driver   domain.Driver
	notifier domain.Notifier
	feedback domain.Feedback
	sink     domain.SessionSink
	store    domain.SettingsStore
	coord    *Coordinator
	cfg      Config
	log      *logger.Logger

	// ctl serializes transitions so driver calls never interleave
	ctl sync.Mutex

	mu       sync.Mutex
	state    domain.State
	registry *Registry
	settings domain.Settings
	sess     session
	timer    timer
	gen      uint64

	now   ptime.Clock
	after func(d time.Duration, f func()) timer
}

var _ domain.Service = (*Svc)(nil)

// New builds an engine and installs its read callback on the driver
func New(cfg Config, w Wiring) *Svc {
	settings := cfg.Settings
	if settings == (domain.Settings{}) {
		settings = domain.DefaultSettings()
	}
	s := &Svc{
		driver:   w.Driver,
		notifier: w.Notifier,
		feedback: w.Feedback,
		sink:     w.Sink,
		store:    w.Store,
		cfg:      cfg,
		log:      logger.Named("scan"),
		registry: NewRegistry(),
		settings: settings.Normalized(),
		now:      time.Now,
		after: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
	if s.notifier == nil {
		s.notifier = Notifiers{}
	}
	if s.feedback == nil {
		s.feedback = LogFeedback{Log: s.log}
	}
	s.coord = NewCoordinator(w.Resolver, CoordinatorConfig{
		Timeout:   cfg.LookupTimeout,
		OnFailure: s.lookupFailed,
	})
	if s.driver != nil {
		s.driver.OnTag(func(identifier, rawSignal string) {
			s.AddEvent(identifier, tagid.ParseSignal(rawSignal))
		})
	}
	return s
}

// Run restores persisted settings then drives the lookup worker until ctx is done
func (s *Svc) Run(ctx context.Context) error {
	if err := s.Restore(ctx); err != nil {
		s.log.Warn().Err(err).Msg("settings restore failed, keeping defaults")
	}
	return s.coord.Run(ctx)
}

// Restore loads settings from the store when one is configured
func (s *Svc) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	saved, ok, err := s.store.Load(ctx)
	if err != nil || !ok {
		return err
	}
	saved = saved.Normalized()
	if err := bind.Struct(saved); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "stored settings are invalid")
	}
	s.mu.Lock()
	s.settings = saved
	s.mu.Unlock()
	s.log.Info().Int("power_level", saved.PowerLevel).Int("rssi_threshold", saved.RSSIThreshold).Int("grace_period_ms", saved.GracePeriodMs).Msg("settings restored")
	return nil
}

// AddEvent feeds one read into the session
// blank identifiers, reads below the threshold and reads outside SCANNING are dropped
func (s *Svc) AddEvent(identifier string, signal int) {
	id := tagid.Normalize(identifier)
	if id == "" {
		return
	}
	signal = tagid.Clamp(signal)

	s.mu.Lock()
	if s.state != domain.StateScanning || signal < s.settings.RSSIThreshold {
		s.mu.Unlock()
		return
	}
	novel := !s.registry.Has(id) && !s.coord.HasResult(id)
	s.registry.Add(id)
	sid := s.sess.id
	s.mu.Unlock()

	if !novel {
		return
	}
	s.notify(domain.Event{Kind: domain.EventTagDetected, SessionID: sid, Identifier: id, Signal: signal})
	s.feedback.Detected(id, signal)
}

// Start pushes settings to the driver and enables inventory
func (s *Svc) Start(ctx context.Context) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	switch s.state {
	case domain.StateScanning:
		s.mu.Unlock()
		return nil
	case domain.StateGracePeriod:
		s.mu.Unlock()
		return perr.Conflictf("grace period in progress")
	}
	settings := s.settings
	s.mu.Unlock()

	if s.driver == nil {
		return s.startFailed(perr.Driverf("no reader driver configured"))
	}
	if err := s.driver.Configure(ctx, settings); err != nil {
		return s.startFailed(perr.Wrap(err, perr.ErrorCodeDriver, "reader rejected settings"))
	}

	sess := session{id: uuid.NewString(), started: s.now()}
	s.mu.Lock()
	s.state = domain.StateScanning
	s.sess = sess
	s.mu.Unlock()

	if err := s.driver.StartInventory(ctx); err != nil {
		s.mu.Lock()
		s.state = domain.StateIdle
		s.mu.Unlock()
		return s.startFailed(perr.Wrap(err, perr.ErrorCodeDriver, "reader failed to start inventory"))
	}

	logger.C(logger.WithSession(ctx, sess.id)).Info().Int("power_level", settings.PowerLevel).Msg("scan started")
	s.notifyState(sess.id, domain.StateScanning)
	return nil
}

func (s *Svc) startFailed(err error) error {
	s.log.Error().Err(err).Msg("scan start failed")
	s.notify(domain.Event{Kind: domain.EventError, Message: err.Error()})
	return perr.WithOp(err, "scan.start")
}

// Stop ends the session and resolves the registry now
// from GRACE_PERIOD it flushes the pending window immediately
func (s *Svc) Stop(ctx context.Context) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	switch s.state {
	case domain.StateIdle:
		s.mu.Unlock()
		return nil
	case domain.StateGracePeriod:
		s.stopTimerLocked()
		s.state = domain.StateIdle
		sess, ids := s.sess, s.registry.IDs()
		s.mu.Unlock()
		s.notifyState(sess.id, domain.StateIdle)
		s.flush(sess, ids)
		return nil
	}
	s.state = domain.StateIdle
	sess, ids := s.sess, s.registry.IDs()
	s.mu.Unlock()

	s.stopInventory(ctx, sess.id)
	s.notifyState(sess.id, domain.StateIdle)
	s.flush(sess, ids)
	return nil
}

// StopWithGrace disables inventory and defers the lookup by the grace window
func (s *Svc) StopWithGrace(ctx context.Context) error {
	s.ctl.Lock()
	s.mu.Lock()
	if s.state != domain.StateScanning {
		s.mu.Unlock()
		s.ctl.Unlock()
		return nil
	}
	graceMs := s.settings.GracePeriodMs
	if graceMs <= 0 {
		s.mu.Unlock()
		s.ctl.Unlock()
		return s.Stop(ctx)
	}
	defer s.ctl.Unlock()

	s.state = domain.StateGracePeriod
	s.sess.grace = true
	s.gen++
	gen := s.gen
	s.timer = s.after(time.Duration(graceMs)*time.Millisecond, func() { s.graceFired(gen) })
	sid := s.sess.id
	s.mu.Unlock()

	s.stopInventory(ctx, sid)
	s.log.Info().Str("session_id", sid).Int("grace_period_ms", graceMs).Msg("grace period started")
	s.notifyState(sid, domain.StateGracePeriod)
	return nil
}

func (s *Svc) graceFired(gen uint64) {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	if gen != s.gen || s.state != domain.StateGracePeriod {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.state = domain.StateIdle
	sess, ids := s.sess, s.registry.IDs()
	s.mu.Unlock()

	s.notifyState(sess.id, domain.StateIdle)
	s.flush(sess, ids)
}

// CancelGrace abandons the grace window without a lookup
func (s *Svc) CancelGrace() {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	if s.state != domain.StateGracePeriod {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.state = domain.StateIdle
	sid := s.sess.id
	s.mu.Unlock()

	s.log.Info().Str("session_id", sid).Msg("grace period cancelled")
	s.notifyState(sid, domain.StateIdle)
}

func (s *Svc) stopTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Svc) stopInventory(ctx context.Context, sid string) {
	if s.driver == nil {
		return
	}
	if err := s.driver.StopInventory(ctx); err != nil {
		s.log.Warn().Err(err).Str("session_id", sid).Msg("reader failed to stop inventory")
		s.notify(domain.Event{Kind: domain.EventError, SessionID: sid, Message: err.Error()})
	}
}

// flush runs the deferred lookup for the session then announces completion
func (s *Svc) flush(sess session, ids []string) {
	stopped := s.now()
	s.coord.Resolve(ids, func(done []string) { s.lookupDone(sess, stopped, done) })
	s.notify(domain.Event{Kind: domain.EventGracePeriodCompleted, SessionID: sess.id})
}

func (s *Svc) lookupDone(sess session, stopped time.Time, ids []string) {
	s.notify(domain.Event{Kind: domain.EventLookupRequired, SessionID: sess.id, Identifiers: ids})

	resolved, notFound := s.coord.CountsFor(ids)
	sum := domain.SessionSummary{
		SessionID: sess.id,
		DeviceID:  s.cfg.DeviceID,
		StartedAt: sess.started,
		StoppedAt: stopped,
		Tags:      len(ids),
		Resolved:  resolved,
		NotFound:  notFound,
		Grace:     sess.grace,
	}
	log := s.log.With().Str("session_id", sess.id).Logger()
	log.Info().Int("tags", sum.Tags).Int("resolved", resolved).Int("not_found", notFound).Msg("session lookup complete")
	if s.sink == nil || sess.id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.Record(ctx, sum); err != nil {
		log.Warn().Err(err).Msg("session summary not recorded")
	}
}

func (s *Svc) lookupFailed(ids []string, err error) {
	s.notify(domain.Event{Kind: domain.EventError, Message: err.Error(), Identifiers: ids})
}

func (s *Svc) notifyState(sid string, st domain.State) {
	scanning := st == domain.StateScanning
	s.notify(domain.Event{Kind: domain.EventScanStateChanged, SessionID: sid, Scanning: &scanning, State: st.String()})
}

func (s *Svc) notify(ev domain.Event) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	s.notifier.Notify(ev)
}

// SeedRegistry restores identifiers from a prior session without notifications
func (s *Svc) SeedRegistry(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, raw := range ids {
		if id := tagid.Normalize(raw); id != "" {
			s.registry.Add(id)
		}
	}
}

// SeedResults restores lookup results from a prior session
func (s *Svc) SeedResults(results map[string]domain.LookupResult) {
	norm := make(map[string]domain.LookupResult, len(results))
	for raw, r := range results {
		if id := tagid.Normalize(raw); id != "" {
			norm[id] = r
		}
	}
	s.coord.Seed(norm)
}

// RemoveIDs drops identifiers from both the registry and the results
func (s *Svc) RemoveIDs(ids []string) {
	norm := normalizeAll(ids)
	s.mu.Lock()
	s.registry.Remove(norm...)
	s.mu.Unlock()
	s.coord.Remove(norm...)
}

// ClearRegistry empties the registry, results are kept
func (s *Svc) ClearRegistry() {
	s.mu.Lock()
	s.registry.Clear()
	s.mu.Unlock()
}

// ClearAll empties the registry and the results
func (s *Svc) ClearAll() {
	s.mu.Lock()
	s.registry.Clear()
	sid := s.sess.id
	s.mu.Unlock()
	s.coord.Clear()
	s.notify(domain.Event{Kind: domain.EventDataCleared, SessionID: sid})
}

// Prefetch warms results for ids without touching the registry
func (s *Svc) Prefetch(ids []string) {
	s.coord.Resolve(normalizeAll(ids), nil)
}

// State returns the current session state
func (s *Svc) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Registry returns the identifiers in first seen order
func (s *Svc) Registry() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.IDs()
}

// Result returns the lookup result for one identifier
func (s *Svc) Result(identifier string) (domain.LookupResult, bool) {
	return s.coord.Result(tagid.Normalize(identifier))
}

// Results returns every lookup result
func (s *Svc) Results() []domain.LookupResult { return s.coord.Results() }

// Stats counts the registry against the results
func (s *Svc) Stats() domain.Stats {
	ids := s.Registry()
	resolved, notFound := s.coord.CountsFor(ids)
	_, _, inflight := s.coord.Counts()
	return domain.Stats{Total: len(ids), Resolved: resolved, NotFound: notFound, InFlight: inflight}
}

// Settings returns the current settings
func (s *Svc) Settings() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings validates and applies settings, they reach the driver on the next Start
// a failed save is logged and the new settings stay in effect
func (s *Svc) UpdateSettings(ctx context.Context, in domain.Settings) (domain.Settings, error) {
	in = in.Normalized()
	if err := bind.Struct(in); err != nil {
		return domain.Settings{}, err
	}
	s.mu.Lock()
	s.settings = in
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, in); err != nil {
			logger.C(ctx).Warn().Err(err).Msg("settings not persisted")
		}
	}
	return in, nil
}

// Snapshot returns a consistent view for the UI
func (s *Svc) Snapshot() domain.Snapshot {
	s.mu.Lock()
	st, sid, ids, settings := s.state, s.sess.id, s.registry.IDs(), s.settings
	s.mu.Unlock()

	resolved, notFound := s.coord.CountsFor(ids)
	_, _, inflight := s.coord.Counts()
	return domain.Snapshot{
		State:     st,
		SessionID: sid,
		Registry:  ids,
		Stats:     domain.Stats{Total: len(ids), Resolved: resolved, NotFound: notFound, InFlight: inflight},
		Settings:  settings,
		At:        s.now(),
	}
}

// Lookup resolves one identifier directly against the remote service for diagnostics
func (s *Svc) Lookup(ctx context.Context, identifier string) (*domain.ProductRecord, error) {
	id := tagid.Normalize(identifier)
	if id == "" {
		return nil, perr.InvalidArgf("identifier is required")
	}
	if s.coord.resolver == nil {
		return nil, perr.Lookupf("no resolver configured")
	}
	rec, err := s.coord.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, perr.WrapIf(err, perr.ErrorCodeLookup, "lookup failed")
	}
	if rec == nil {
		return nil, perr.NotFoundf("no product for %s", id)
	}
	return rec, nil
}

func normalizeAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		if id := tagid.Normalize(raw); id != "" {
			out = append(out, id)
		}
	}
	return out
}
