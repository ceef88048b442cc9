package reader

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"
	"picktrack/internal/services/scan/domain"
)

// SimOptions configures the simulated reader
type SimOptions struct {
	IDs      []string
	Interval time.Duration
	Seed     uint64
}

// Sim emits reads from a fixed identifier pool with jittered signal while inventory is on
type Sim struct {
	opts SimOptions
	log  *logger.Logger

	mu      sync.Mutex
	handler func(identifier, rawSignal string)
	power   int
	rng     *rand.Rand
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSim returns a simulated reader
func NewSim(o SimOptions) *Sim {
	if o.Interval <= 0 {
		o.Interval = 100 * time.Millisecond
	}
	return &Sim{
		opts:  o,
		log:   logger.Named("reader.sim"),
		power: domain.DefaultPowerLevel,
		rng:   rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15)),
	}
}

// Configure applies the power level, it shifts the simulated signal
func (s *Sim) Configure(_ context.Context, st domain.Settings) error {
	if st.PowerLevel < 1 || st.PowerLevel > 30 {
		return perr.InvalidArgf("power level %d out of range", st.PowerLevel)
	}
	s.mu.Lock()
	s.power = st.PowerLevel
	s.mu.Unlock()
	return nil
}

// StartInventory starts emitting reads, a second call is a no-op
func (s *Sim) StartInventory(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	if len(s.opts.IDs) == 0 {
		return perr.Driverf("simulated reader has no identifiers")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.log.Info().Int("ids", len(s.opts.IDs)).Dur("interval", s.opts.Interval).Msg("sim inventory on")
	return nil
}

// StopInventory stops emitting and waits for the loop to exit
func (s *Sim) StopInventory(context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// OnTag installs the read handler
func (s *Sim) OnTag(h func(identifier, rawSignal string)) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *Sim) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(s.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			id, sig, h := s.next()
			if h != nil {
				h(id, sig)
			}
		}
	}
}

// next picks an identifier and a signal around a power dependent mean
func (s *Sim) next() (string, string, func(string, string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.opts.IDs[s.rng.IntN(len(s.opts.IDs))]
	mean := -80 + s.power
	sig := mean + s.rng.IntN(21) - 10
	return id, strconv.Itoa(sig) + "dBm", s.handler
}
