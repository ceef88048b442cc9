// Package domain defines the types and interfaces for the scan service
package domain

import "time"

// State is the scan session state
type State uint8

const (
	// StateIdle is the initial and terminal state, tag events are dropped
	StateIdle State = iota
	// StateScanning accepts tag events into the registry
	StateScanning
	// StateGracePeriod waits out late reads before the deferred lookup, tag events are dropped
	StateGracePeriod
)

// String returns the wire name of the state
func (s State) String() string {
	switch s {
	case StateScanning:
		return "SCANNING"
	case StateGracePeriod:
		return "GRACE_PERIOD"
	default:
		return "IDLE"
	}
}

// MarshalText renders the state by name in JSON
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// NotFoundKey marks an identifier the lookup service has no record for
const NotFoundKey = "NOT_FOUND"

// TagEvent is one accepted read from the driver
type TagEvent struct {
	Identifier string `json:"identifier"`
	Signal     int    `json:"signal"`
}

// ProductRecord is what the lookup service returns for a batch
// Identifiers lists which requested identifiers the record satisfies
type ProductRecord struct {
	ProductKey  string            `json:"product_key"`
	Name        string            `json:"name"`
	Variant     string            `json:"variant,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Identifiers []string          `json:"identifiers"`
}

// LookupResult is the resolution state of one identifier
type LookupResult struct {
	Identifier string            `json:"identifier"`
	ProductKey string            `json:"product_key"`
	Name       string            `json:"name,omitempty"`
	Variant    string            `json:"variant,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Resolved   bool              `json:"resolved"`
}

// NotFound builds the sentinel stored for identifiers the service does not know
func NotFound(identifier string) LookupResult {
	return LookupResult{Identifier: identifier, ProductKey: NotFoundKey}
}

// IsNotFound reports whether r is the not found sentinel
func (r LookupResult) IsNotFound() bool { return !r.Resolved && r.ProductKey == NotFoundKey }

// ResultFromRecord projects a product record onto one identifier
func ResultFromRecord(identifier string, rec ProductRecord) LookupResult {
	var attrs map[string]string
	if len(rec.Attributes) > 0 {
		attrs = make(map[string]string, len(rec.Attributes))
		for k, v := range rec.Attributes {
			attrs[k] = v
		}
	}
	return LookupResult{
		Identifier: identifier,
		ProductKey: rec.ProductKey,
		Name:       rec.Name,
		Variant:    rec.Variant,
		Attributes: attrs,
		Resolved:   true,
	}
}

// Stats are the local counters exposed to the UI
type Stats struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	NotFound int `json:"not_found"`
	InFlight int `json:"in_flight"`
}

// Snapshot is a point in time view of the engine
type Snapshot struct {
	State     State     `json:"state"`
	SessionID string    `json:"session_id,omitempty"`
	Registry  []string  `json:"registry"`
	Stats     Stats     `json:"stats"`
	Settings  Settings  `json:"settings"`
	At        time.Time `json:"at"`
}

// SessionSummary is recorded once a session's deferred lookup completes
type SessionSummary struct {
	SessionID string
	DeviceID  string
	StartedAt time.Time
	StoppedAt time.Time
	Tags      int
	Resolved  int
	NotFound  int
	Grace     bool
}
