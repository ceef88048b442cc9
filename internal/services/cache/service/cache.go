// Package service holds the multi-table picklist cache
package service

import (
	"sync"
	"time"

	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"
	ptime "picktrack/internal/platform/time"
	"picktrack/internal/services/cache/domain"
)

// Config controls the cache
type Config struct {
	// Rules replaces DefaultRules when non-nil
	Rules []Rule
	// Debounce coalesces snapshot writes
	Debounce time.Duration
}

// Cache keeps the four picklist tables and their analytics behind one lock
type Cache struct {
	mu sync.Mutex

	ids   *table[[]string]
	lines *table[[]domain.LineItem]
	snaps *table[domain.StatusSnapshot]
	all   *table[[]string]
	named map[string]store

	stats *analytics
	blobs domain.BlobStore
	kick  chan struct{}
	cfg   Config
	log   *logger.Logger
	now   ptime.Clock
}

// DefaultDebounce is the snapshot write delay after the last mutation
const DefaultDebounce = 500 * time.Millisecond

// New returns an empty cache, blobs may be nil for memory only operation
func New(cfg Config, blobs domain.BlobStore) (*Cache, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	src := cfg.Rules
	if src == nil {
		src = DefaultRules
	}
	rules, err := compileRules(src)
	if err != nil {
		return nil, err
	}
	log := logger.Named("cache")
	c := &Cache{
		ids:   newTable(domain.TableIdentifierLists, unionIDs, cloneIDs),
		lines: newTable(domain.TableLineItems, mergeItems, cloneItems),
		snaps: newTable(domain.TableStatusSnapshots, mergeSnapshot, cloneSnapshot),
		all:   newTable(domain.TableAllIDs, unionIDs, cloneIDs),
		stats: newAnalytics(rules, log),
		blobs: blobs,
		kick:  make(chan struct{}, 1),
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
	c.named = map[string]store{}
	for _, s := range []store{c.ids, c.lines, c.snaps, c.all} {
		c.named[s.tableName()] = s
	}
	return c, nil
}

// read serves a live entry and records the access
func read[T any](c *Cache, t *table[T], key string) (domain.EntryView[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	e, reason := t.lookup(key, now)
	hit := reason == ""
	c.observe(func() { c.stats.access(t.name, key, hit, now) })
	if !hit {
		c.log.Debug().Str("table", t.name).Str("key", key).Str("reason", reason).Msg("cache miss")
		return domain.EntryView[T]{}, false
	}
	return domain.EntryView[T]{Data: e.Data, CreatedAt: e.CreatedAt, Freshness: e.Freshness(now)}, true
}

// write overwrites with a fresh timestamp
func write[T any](c *Cache, t *table[T], key string, data T) {
	c.mu.Lock()
	now := c.now()
	t.put(key, data, now)
	c.observe(func() { c.stats.filled(t.name, key, now) })
	c.mu.Unlock()
	c.schedule()
}

// fold merges into a live entry, or writes when there is none
func fold[T any](c *Cache, t *table[T], key string, data T) {
	c.mu.Lock()
	now := c.now()
	out := t.fold(key, data, now)
	if out != unchanged {
		c.observe(func() { c.stats.filled(t.name, key, now) })
	}
	c.mu.Unlock()
	if out == unchanged {
		c.log.Debug().Str("table", t.name).Str("key", key).Msg("merge kept existing entry")
		return
	}
	c.schedule()
}

// observe runs analytics bookkeeping, a panic there must not reach callers
func (c *Cache) observe(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("cache analytics panicked")
		}
	}()
	fn()
}

// IdentifierList returns the processed identifiers for a picklist
func (c *Cache) IdentifierList(key string) (domain.EntryView[[]string], bool) {
	return read(c, c.ids, key)
}

// SetIdentifierList overwrites the processed identifiers for a picklist
func (c *Cache) SetIdentifierList(key string, ids []string) { write(c, c.ids, key, ids) }

// MergeIdentifierList unions ids into the cached list
func (c *Cache) MergeIdentifierList(key string, ids []string) { fold(c, c.ids, key, ids) }

// LineItems returns the cached line items for a picklist
func (c *Cache) LineItems(key string) (domain.EntryView[[]domain.LineItem], bool) {
	return read(c, c.lines, key)
}

// SetLineItems overwrites the line items for a picklist
func (c *Cache) SetLineItems(key string, items []domain.LineItem) { write(c, c.lines, key, items) }

// MergeLineItems merges items by name and variant
func (c *Cache) MergeLineItems(key string, items []domain.LineItem) { fold(c, c.lines, key, items) }

// DetectChanges compares fetched items with the cached ones without counting an access
func (c *Cache) DetectChanges(key string, items []domain.LineItem) domain.ChangeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, reason := c.lines.lookup(key, c.now())
	return diffItems(e.Data, reason == "", items)
}

// StatusSnapshot returns the cached status for a picklist
func (c *Cache) StatusSnapshot(key string) (domain.EntryView[domain.StatusSnapshot], bool) {
	return read(c, c.snaps, key)
}

// SetStatusSnapshot overwrites the status for a picklist
func (c *Cache) SetStatusSnapshot(key string, s domain.StatusSnapshot) { write(c, c.snaps, key, s) }

// MergeStatusSnapshot replaces the status only when it changed
func (c *Cache) MergeStatusSnapshot(key string, s domain.StatusSnapshot) {
	fold(c, c.snaps, key, s)
}

// AllIDs returns the singleton list of every known identifier
func (c *Cache) AllIDs() (domain.EntryView[[]string], bool) { return read(c, c.all, domain.AllIDsKey) }

// SetAllIDs overwrites the singleton list
func (c *Cache) SetAllIDs(ids []string) { write(c, c.all, domain.AllIDsKey, ids) }

// MergeAllIDs unions ids into the singleton list
func (c *Cache) MergeAllIDs(ids []string) { fold(c, c.all, domain.AllIDsKey, ids) }

func (c *Cache) table(name string) (store, error) {
	s, ok := c.named[name]
	if !ok {
		return nil, perr.InvalidArgf("unknown cache table %q", name)
	}
	return s, nil
}

// Keys lists the stored keys of a table, expired ones included until touched
func (c *Cache) Keys(name string) ([]string, error) {
	s, err := c.table(name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.keys(), nil
}

// Invalidate drops one key, the key is ignored for the all-ids table
func (c *Cache) Invalidate(name, key string) error {
	s, err := c.table(name)
	if err != nil {
		return err
	}
	if name == domain.TableAllIDs {
		key = domain.AllIDsKey
	}
	c.mu.Lock()
	dropped := s.drop(key)
	c.observe(func() { c.stats.forget(name, key) })
	c.mu.Unlock()
	if dropped {
		c.schedule()
	}
	return nil
}

// InvalidateAll empties every table and resets analytics
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	n := 0
	for _, s := range c.named {
		n += s.clear()
	}
	c.observe(c.stats.reset)
	c.mu.Unlock()
	c.log.Info().Int("entries", n).Msg("cache invalidated")
	c.schedule()
}

// Analytics reports hit rates, fill latency and recommendations
func (c *Cache) Analytics() domain.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	rep := domain.Report{GeneratedAt: now, Keys: []domain.KeyStats{}, Recommendations: []domain.Recommendation{}}
	c.observe(func() {
		rep = c.stats.report(now, func(table, key string) string {
			s, ok := c.named[table]
			if !ok {
				return "ABSENT"
			}
			f, ok := s.freshnessOf(key, now)
			if !ok {
				return "ABSENT"
			}
			return f.String()
		})
	})
	return rep
}

// Freshness counts entries per freshness band for every table
func (c *Cache) Freshness() domain.FreshnessReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	rep := domain.FreshnessReport{GeneratedAt: now, Tables: make(map[string]domain.FreshnessCounts, len(c.named))}
	for name, s := range c.named {
		rep.Tables[name] = s.counts(now)
	}
	return rep
}
