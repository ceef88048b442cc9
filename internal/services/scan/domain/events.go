package domain

import "time"

// EventKind names a push notification
type EventKind string

// Notification kinds
const (
	EventTagDetected          EventKind = "tag_detected"
	EventScanStateChanged     EventKind = "scan_state_changed"
	EventError                EventKind = "error"
	EventGracePeriodCompleted EventKind = "grace_period_completed"
	EventLookupRequired       EventKind = "lookup_required"
	EventDataCleared          EventKind = "data_cleared"
)

// Event is one push notification; only the fields relevant to Kind are set
type Event struct {
	Kind        EventKind `json:"kind"`
	SessionID   string    `json:"session_id,omitempty"`
	Identifier  string    `json:"identifier,omitempty"`
	Signal      int       `json:"signal,omitempty"`
	Scanning    *bool     `json:"scanning,omitempty"`
	State       string    `json:"state,omitempty"`
	Message     string    `json:"message,omitempty"`
	Identifiers []string  `json:"identifiers,omitempty"`
	At          time.Time `json:"at"`
}
