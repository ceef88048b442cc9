// Package time holds clock helpers shared by the services and their tests
package time

import (
	"sync"
	"time"
)

// Clock is the time source services read through, time.Now in production
type Clock func() time.Time

// Ptr returns nil for the zero time
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Manual is a Clock that only moves when told to
type Manual struct {
	mu sync.Mutex
	t  time.Time
}

// NewManual starts a manual clock at t
func NewManual(t time.Time) *Manual { return &Manual{t: t} }

// Now reads the clock; pass m.Now wherever a Clock is wanted
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Advance moves the clock by d, negative d rewinds
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.t = m.t.Add(d)
	m.mu.Unlock()
}
