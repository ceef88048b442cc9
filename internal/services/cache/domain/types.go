// Package domain defines the types and interfaces for the picklist cache
package domain

import (
	"context"
	"reflect"
	"time"

	perr "picktrack/internal/platform/errors"
)

// TTL is how long any cache entry may be served
const TTL = 15 * time.Hour

// Freshness cut points as fractions of TTL
const (
	FreshFraction = 0.5
	StaleFraction = 0.75
)

// Freshness classifies an entry by age
type Freshness uint8

const (
	// Fresh entries are younger than half the TTL
	Fresh Freshness = iota
	// Aging entries sit between the fresh and stale cut points
	Aging
	// Stale entries are past three quarters of the TTL but still served
	Stale
	// Expired entries are never served
	Expired
)

// String returns the wire name
func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "FRESH"
	case Aging:
		return "AGING"
	case Stale:
		return "STALE"
	default:
		return "EXPIRED"
	}
}

// MarshalText renders freshness by name in JSON
func (f Freshness) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText parses a freshness name
func (f *Freshness) UnmarshalText(b []byte) error {
	switch string(b) {
	case "FRESH":
		*f = Fresh
	case "AGING":
		*f = Aging
	case "STALE":
		*f = Stale
	case "EXPIRED":
		*f = Expired
	default:
		return perr.InvalidArgf("unknown freshness %q", b)
	}
	return nil
}

// Classify maps an age onto a freshness band
func Classify(age time.Duration) Freshness {
	switch {
	case age > TTL:
		return Expired
	case float64(age) > StaleFraction*float64(TTL):
		return Stale
	case float64(age) < FreshFraction*float64(TTL):
		return Fresh
	default:
		return Aging
	}
}

// Entry is one cached value and the time it was written
type Entry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Age is the time elapsed since the entry was written
func (e Entry[T]) Age(now time.Time) time.Duration { return now.Sub(e.CreatedAt) }

// Freshness classifies the entry at now
func (e Entry[T]) Freshness(now time.Time) Freshness { return Classify(e.Age(now)) }

// Expired reports whether the entry may no longer be served
func (e Entry[T]) Expired(now time.Time) bool { return e.Freshness(now) == Expired }

// Table names, also used in routes and blob keys
const (
	TableIdentifierLists = "identifier_lists"
	TableLineItems       = "line_items"
	TableStatusSnapshots = "status_snapshots"
	TableAllIDs          = "all_ids"
)

// Tables lists every table in a stable order
var Tables = []string{TableIdentifierLists, TableLineItems, TableStatusSnapshots, TableAllIDs}

// AllIDsKey is the single key of the unkeyed all-ids table
const AllIDsKey = "_"

// LineItem is one picklist row, keyed by name and variant
type LineItem struct {
	Name       string    `json:"name" validate:"required,max=256"`
	Variant    string    `json:"variant" validate:"max=256"`
	ProductKey string    `json:"product_key,omitempty" validate:"max=128"`
	Quantity   int       `json:"quantity" validate:"min=0"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Key is the composite identity used by merges and change detection
func (l LineItem) Key() string { return l.Name + "\x00" + l.Variant }

// StatusSnapshot is the last known picklist status
type StatusSnapshot struct {
	Status    string         `json:"status" validate:"required,max=64"`
	Picked    int            `json:"picked" validate:"min=0"`
	Total     int            `json:"total" validate:"min=0"`
	UpdatedAt time.Time      `json:"updated_at"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Equal is value equality, timestamps compared by instant
func (s StatusSnapshot) Equal(o StatusSnapshot) bool {
	if s.Status != o.Status || s.Picked != o.Picked || s.Total != o.Total || !s.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	if len(s.Extra) == 0 && len(o.Extra) == 0 {
		return true
	}
	// extras decode from JSON into nested maps and slices
	return reflect.DeepEqual(s.Extra, o.Extra)
}

// ChangeKind is the outcome of DetectChanges
type ChangeKind string

// Change kinds
const (
	NewData     ChangeKind = "NEW_DATA"
	NoChanges   ChangeKind = "NO_CHANGES"
	UpdatedData ChangeKind = "UPDATED_DATA"
)

// ChangeSet says whether fetched line items differ from the cached ones
type ChangeSet struct {
	Kind    ChangeKind `json:"kind"`
	Changed []LineItem `json:"changed,omitempty"`
}

// BlobStore snapshots whole tables, one blob per table
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}
