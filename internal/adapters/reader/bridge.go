// Package reader holds the reader drivers the scan engine can own
// Bridge accepts reads pushed over HTTP by an external reader process, Sim generates them
package reader

import (
	"context"
	"sync"

	"picktrack/internal/platform/logger"
	"picktrack/internal/services/scan/domain"
)

// Bridge is a driver fed by an external process through Push
type Bridge struct {
	mu       sync.Mutex
	handler  func(identifier, rawSignal string)
	settings domain.Settings
	enabled  bool
	log      *logger.Logger
}

// NewBridge returns a bridge with inventory disabled
func NewBridge() *Bridge { return &Bridge{log: logger.Named("reader.bridge")} }

// Configure records the settings the bridge reports back to its peer
func (b *Bridge) Configure(_ context.Context, s domain.Settings) error {
	b.mu.Lock()
	b.settings = s
	b.mu.Unlock()
	b.log.Debug().Int("power_level", s.PowerLevel).Msg("bridge configured")
	return nil
}

// StartInventory lets pushed reads through
func (b *Bridge) StartInventory(context.Context) error {
	b.mu.Lock()
	b.enabled = true
	b.mu.Unlock()
	return nil
}

// StopInventory drops pushed reads again
func (b *Bridge) StopInventory(context.Context) error {
	b.mu.Lock()
	b.enabled = false
	b.mu.Unlock()
	return nil
}

// OnTag installs the read handler
func (b *Bridge) OnTag(h func(identifier, rawSignal string)) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Push forwards one read and reports whether inventory was on to receive it
func (b *Bridge) Push(identifier, rawSignal string) bool {
	b.mu.Lock()
	h, on := b.handler, b.enabled
	b.mu.Unlock()
	if !on || h == nil {
		return false
	}
	h(identifier, rawSignal)
	return true
}

// Settings returns what the engine last pushed
func (b *Bridge) Settings() domain.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

// Enabled reports whether inventory is on
func (b *Bridge) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}
