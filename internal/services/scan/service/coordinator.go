package service

import (
	"context"
	"sync"
	"time"

	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"
	"picktrack/internal/services/scan/domain"
)

// DefaultLookupTimeout bounds one batch request
const DefaultLookupTimeout = 30 * time.Second

// CoordinatorConfig tunes the lookup coordinator
type CoordinatorConfig struct {
	Timeout time.Duration
	// OnFailure is told about every failed batch, ids are already released
	OnFailure func(ids []string, err error)
}

type job struct {
	requested []string
	fetch     []string
	done      func([]string)
}

// Coordinator resolves identifiers through one serialized worker while
// keeping results and in-flight ids disjoint
type Coordinator struct {
	resolver domain.Resolver
	cfg      CoordinatorConfig
	log      *logger.Logger

	mu       sync.Mutex
	results  map[string]domain.LookupResult
	inflight map[string]struct{}
	queue    []job
	wake     chan struct{}
}

// NewCoordinator builds a coordinator, call Run to start its worker
func NewCoordinator(r domain.Resolver, cfg CoordinatorConfig) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLookupTimeout
	}
	return &Coordinator{
		resolver: r,
		cfg:      cfg,
		log:      logger.Named("scan.lookup"),
		results:  make(map[string]domain.LookupResult),
		inflight: make(map[string]struct{}),
		wake:     make(chan struct{}, 1),
	}
}

// Resolve partitions ids and schedules one batch for the unknown ones
// done always receives the original ids; it runs synchronously when nothing needs fetching
func (c *Coordinator) Resolve(ids []string, done func([]string)) {
	requested := append([]string(nil), ids...)

	c.mu.Lock()
	var fetch []string
	seen := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := c.results[id]; ok {
			continue
		}
		if _, ok := c.inflight[id]; ok {
			continue
		}
		fetch = append(fetch, id)
	}
	if len(fetch) == 0 {
		c.mu.Unlock()
		if done != nil {
			done(requested)
		}
		return
	}
	for _, id := range fetch {
		c.inflight[id] = struct{}{}
	}
	c.queue = append(c.queue, job{requested: requested, fetch: fetch, done: done})
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run drains queued batches one at a time until ctx is done
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		j, ok := c.next()
		if !ok {
			select {
			case <-ctx.Done():
				c.abandon()
				return ctx.Err()
			case <-c.wake:
				continue
			}
		}
		c.process(ctx, j)
		if ctx.Err() != nil {
			c.abandon()
			return ctx.Err()
		}
	}
}

func (c *Coordinator) next() (job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return job{}, false
	}
	j := c.queue[0]
	c.queue[0] = job{}
	c.queue = c.queue[1:]
	return j, true
}

// abandon releases ids of batches that will never run and still reports
// them done, unresolved, so their sessions can finish
func (c *Coordinator) abandon() {
	c.mu.Lock()
	dropped := c.queue
	for _, j := range dropped {
		for _, id := range j.fetch {
			delete(c.inflight, id)
		}
	}
	c.queue = nil
	c.mu.Unlock()

	for _, j := range dropped {
		c.log.Warn().Int("ids", len(j.fetch)).Msg("batch abandoned at shutdown, ids released")
		if j.done != nil {
			j.done(j.requested)
		}
	}
}

func (c *Coordinator) process(ctx context.Context, j job) {
	start := time.Now()
	recs, err := c.call(ctx, j.fetch)

	c.mu.Lock()
	for _, id := range j.fetch {
		delete(c.inflight, id)
	}
	if err == nil {
		want := make(map[string]struct{}, len(j.fetch))
		for _, id := range j.fetch {
			want[id] = struct{}{}
		}
		for _, rec := range recs {
			for _, id := range rec.Identifiers {
				if _, ok := want[id]; !ok {
					continue
				}
				c.results[id] = domain.ResultFromRecord(id, rec)
			}
		}
		for _, id := range j.fetch {
			if _, ok := c.results[id]; !ok {
				c.results[id] = domain.NotFound(id)
			}
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn().Err(err).Int("ids", len(j.fetch)).Dur("elapsed", time.Since(start)).Msg("batch lookup failed, ids released")
		if c.cfg.OnFailure != nil {
			c.cfg.OnFailure(j.fetch, err)
		}
	} else {
		c.log.Debug().Int("ids", len(j.fetch)).Int("records", len(recs)).Dur("elapsed", time.Since(start)).Msg("batch lookup done")
	}
	if j.done != nil {
		j.done(j.requested)
	}
}

// call runs one remote request under the lookup timeout, panics count as failures
func (c *Coordinator) call(ctx context.Context, ids []string) (recs []domain.ProductRecord, err error) {
	if c.resolver == nil {
		return nil, perr.Lookupf("no resolver configured")
	}
	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	defer func() {
		if v := recover(); v != nil {
			err = perr.PanicErrf("resolver panic: %v", v)
		}
	}()
	recs, err = c.resolver.BatchResolve(cctx, ids)
	if err != nil && cctx.Err() == context.DeadlineExceeded {
		err = perr.Wrapf(err, perr.ErrorCodeTimeout, "lookup timed out after %s", c.cfg.Timeout)
	}
	return recs, err
}

// HasResult reports whether id already has a result or sentinel
func (c *Coordinator) HasResult(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.results[id]
	return ok
}

// Result returns the stored result for id
func (c *Coordinator) Result(id string) (domain.LookupResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[id]
	return r, ok
}

// Results returns every stored result in no particular order
func (c *Coordinator) Results() []domain.LookupResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.LookupResult, 0, len(c.results))
	for _, r := range c.results {
		out = append(out, r)
	}
	return out
}

// Seed stores results from a prior session, ids currently in flight are skipped
func (c *Coordinator) Seed(results map[string]domain.LookupResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, r := range results {
		if id == "" {
			continue
		}
		if _, busy := c.inflight[id]; busy {
			continue
		}
		r.Identifier = id
		c.results[id] = r
	}
}

// Remove deletes results for ids
func (c *Coordinator) Remove(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.results, id)
	}
}

// Clear drops every result, in-flight batches still land when they finish
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.results)
}

// Counts returns resolved, not found and in-flight totals
func (c *Coordinator) Counts() (resolved, notFound, inflight int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.results {
		switch {
		case r.Resolved:
			resolved++
		case r.IsNotFound():
			notFound++
		}
	}
	return resolved, notFound, len(c.inflight)
}

// CountsFor returns resolved and not found totals restricted to ids
func (c *Coordinator) CountsFor(ids []string) (resolved, notFound int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		r, ok := c.results[id]
		if !ok {
			continue
		}
		switch {
		case r.Resolved:
			resolved++
		case r.IsNotFound():
			notFound++
		}
	}
	return resolved, notFound
}

// InFlight reports whether id is awaiting a response
func (c *Coordinator) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}
