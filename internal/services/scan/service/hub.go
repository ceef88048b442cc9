package service

import (
	"sync"

	"picktrack/internal/platform/logger"
	"picktrack/internal/services/scan/domain"
)

// Hub fans engine events out to subscribers without ever blocking the engine
type Hub struct {
	mu      sync.Mutex
	next    int
	subs    map[int]chan domain.Event
	dropped uint64
}

// NewHub returns an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan domain.Event)}
}

// Subscribe registers a listener with a buffer of size buf
// cancel is safe to call more than once
func (h *Hub) Subscribe(buf int) (<-chan domain.Event, func()) {
	if buf <= 0 {
		buf = 64
	}
	ch := make(chan domain.Event, buf)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Notify delivers ev to every subscriber with room in its buffer
func (h *Hub) Notify(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped++
			if h.dropped%100 == 1 {
				logger.Named("scan.hub").Warn().Str("kind", string(ev.Kind)).Uint64("dropped", h.dropped).Msg("slow subscriber, event dropped")
			}
		}
	}
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Notifiers fans one event out to several notifiers in order
type Notifiers []domain.Notifier

// Notify implements domain.Notifier
func (ns Notifiers) Notify(ev domain.Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(ev)
		}
	}
}

// LogFeedback stands in for audio on headless deployments by logging detections
type LogFeedback struct{ Log *logger.Logger }

// Detected implements domain.Feedback
func (f LogFeedback) Detected(identifier string, signal int) {
	l := f.Log
	if l == nil {
		l = logger.Named("scan.feedback")
	}
	l.Debug().Str("identifier", identifier).Int("signal", signal).Msg("beep")
}
