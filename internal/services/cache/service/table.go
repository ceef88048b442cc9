package service

import (
	"encoding/json"
	"slices"
	"sort"
	"time"

	"picktrack/internal/services/cache/domain"
)

// outcome says what a merge did to the stored entry
type outcome uint8

const (
	unchanged outcome = iota
	// extended changes the data but keeps the entry age
	extended
	// replaced changes the data and restamps the entry
	replaced
)

// mergeFunc folds an incoming value into a live one
type mergeFunc[T any] func(old, in T) (T, outcome)

// table is one keyed map of entries, callers hold Cache.mu
type table[T any] struct {
	name    string
	entries map[string]domain.Entry[T]
	merge   mergeFunc[T]
	clone   func(T) T
}

func newTable[T any](name string, merge func(old, in T) (T, outcome), clone func(T) T) *table[T] {
	return &table[T]{name: name, entries: map[string]domain.Entry[T]{}, merge: merge, clone: clone}
}

// lookup returns a live entry or the reason it could not be served
func (t *table[T]) lookup(key string, now time.Time) (domain.Entry[T], string) {
	e, ok := t.entries[key]
	if !ok {
		return e, "absent"
	}
	if e.Expired(now) {
		delete(t.entries, key)
		return e, "expired"
	}
	return domain.Entry[T]{Data: t.clone(e.Data), CreatedAt: e.CreatedAt}, ""
}

func (t *table[T]) put(key string, data T, now time.Time) {
	t.entries[key] = domain.Entry[T]{Data: t.clone(data), CreatedAt: now}
}

// fold merges into a live entry or falls back to put
func (t *table[T]) fold(key string, data T, now time.Time) outcome {
	e, ok := t.entries[key]
	if !ok || e.Expired(now) {
		t.put(key, data, now)
		return replaced
	}
	merged, out := t.merge(e.Data, t.clone(data))
	switch out {
	case extended:
		t.entries[key] = domain.Entry[T]{Data: merged, CreatedAt: e.CreatedAt}
	case replaced:
		t.entries[key] = domain.Entry[T]{Data: merged, CreatedAt: now}
	}
	return out
}

func (t *table[T]) tableName() string { return t.name }

func (t *table[T]) drop(key string) bool {
	_, ok := t.entries[key]
	delete(t.entries, key)
	return ok
}

func (t *table[T]) clear() int {
	n := len(t.entries)
	t.entries = map[string]domain.Entry[T]{}
	return n
}

func (t *table[T]) keys() []string {
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (t *table[T]) freshnessOf(key string, now time.Time) (domain.Freshness, bool) {
	e, ok := t.entries[key]
	if !ok {
		return domain.Expired, false
	}
	return e.Freshness(now), true
}

func (t *table[T]) counts(now time.Time) domain.FreshnessCounts {
	var c domain.FreshnessCounts
	for _, e := range t.entries {
		switch e.Freshness(now) {
		case domain.Fresh:
			c.Fresh++
		case domain.Aging:
			c.Aging++
		case domain.Stale:
			c.Stale++
		default:
			c.Expired++
		}
	}
	return c
}

func (t *table[T]) marshal() ([]byte, error) { return json.Marshal(t.entries) }

// restore installs a snapshot, expired entries are skipped
func (t *table[T]) restore(b []byte, now time.Time) (int, error) {
	var in map[string]domain.Entry[T]
	if err := json.Unmarshal(b, &in); err != nil {
		return 0, err
	}
	n := 0
	for k, e := range in {
		if e.Expired(now) {
			continue
		}
		t.entries[k] = e
		n++
	}
	return n, nil
}

// store is the name-addressed view used for invalidation, reports and persistence
type store interface {
	tableName() string
	drop(key string) bool
	clear() int
	keys() []string
	freshnessOf(key string, now time.Time) (domain.Freshness, bool)
	counts(now time.Time) domain.FreshnessCounts
	marshal() ([]byte, error)
	restore(b []byte, now time.Time) (int, error)
}

func cloneIDs(ids []string) []string { return slices.Clone(ids) }

func cloneItems(items []domain.LineItem) []domain.LineItem { return slices.Clone(items) }

func cloneSnapshot(s domain.StatusSnapshot) domain.StatusSnapshot {
	if s.Extra != nil {
		m := make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			m[k] = v
		}
		s.Extra = m
	}
	return s
}
