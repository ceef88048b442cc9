package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"picktrack/internal/adapters/lookup"
	perr "picktrack/internal/platform/errors"
	kit "picktrack/internal/platform/testkit"
	"picktrack/internal/services/scan/domain"
)

type fakeResolver struct {
	mu      sync.Mutex
	calls   [][]string
	known   map[string]domain.ProductRecord
	err     error
	block   chan struct{}
	active  map[string]int
	overlap bool
}

func newFakeResolver(known ...string) *fakeResolver {
	f := &fakeResolver{known: map[string]domain.ProductRecord{}, active: map[string]int{}}
	for _, id := range known {
		f.known[id] = domain.ProductRecord{ProductKey: "P-" + id, Name: "item " + id, Identifiers: []string{id}}
	}
	return f
}

func (f *fakeResolver) BatchResolve(ctx context.Context, ids []string) ([]domain.ProductRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	for _, id := range ids {
		f.active[id]++
		if f.active[id] > 1 {
			f.overlap = true
		}
	}
	block, err := f.block, f.err
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		for _, id := range ids {
			f.active[id]--
		}
		f.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ProductRecord
	for _, id := range ids {
		if rec, ok := f.known[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeResolver) Resolve(ctx context.Context, id string) (*domain.ProductRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.known[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (f *fakeResolver) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func startCoordinator(t *testing.T, r domain.Resolver, cfg CoordinatorConfig) *Coordinator {
	t.Helper()
	c := NewCoordinator(r, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return c
}

func resolveAndWait(t *testing.T, c *Coordinator, ids []string) []string {
	t.Helper()
	got := make(chan []string, 1)
	c.Resolve(ids, func(done []string) { got <- done })
	select {
	case ids := <-got:
		return ids
	case <-time.After(2 * time.Second):
		t.Fatalf("done callback never ran")
		return nil
	}
}

func TestCoordinator_SkipsKnownNotFound(t *testing.T) {
	r := newFakeResolver("Y")
	c := startCoordinator(t, r, CoordinatorConfig{})
	c.Seed(map[string]domain.LookupResult{"X": domain.NotFound("X")})

	done := resolveAndWait(t, c, []string{"X", "Y"})

	if !slices.Equal(done, []string{"X", "Y"}) {
		t.Fatalf("done got %v, want original ids", done)
	}
	calls := r.Calls()
	if len(calls) != 1 || !slices.Equal(calls[0], []string{"Y"}) {
		t.Fatalf("remote calls = %v, want [[Y]]", calls)
	}
	res, ok := c.Result("Y")
	if !ok || !res.Resolved || res.ProductKey != "P-Y" {
		t.Fatalf("Y result = %+v ok=%v", res, ok)
	}
}

func TestCoordinator_EveryIDGetsAResult(t *testing.T) {
	r := newFakeResolver("A", "C")
	c := startCoordinator(t, r, CoordinatorConfig{})

	resolveAndWait(t, c, []string{"A", "B", "C", "A"})

	for _, id := range []string{"A", "B", "C"} {
		if !c.HasResult(id) {
			t.Fatalf("%s has no result", id)
		}
	}
	b, _ := c.Result("B")
	if !b.IsNotFound() {
		t.Fatalf("B should be NOT_FOUND, got %+v", b)
	}
	if calls := r.Calls(); len(calls) != 1 || len(calls[0]) != 3 {
		t.Fatalf("want one call with three unique ids, got %v", calls)
	}
	resolved, notFound, inflight := c.Counts()
	if resolved != 2 || notFound != 1 || inflight != 0 {
		t.Fatalf("counts = %d/%d/%d", resolved, notFound, inflight)
	}
}

func TestCoordinator_AllKnownCallsDoneSynchronously(t *testing.T) {
	r := newFakeResolver()
	c := NewCoordinator(r, CoordinatorConfig{})
	c.Seed(map[string]domain.LookupResult{"A": domain.NotFound("A")})

	called := false
	c.Resolve([]string{"A"}, func(ids []string) { called = true })
	if !called {
		t.Fatalf("done should run before Resolve returns")
	}
	if len(r.Calls()) != 0 {
		t.Fatalf("no remote call expected")
	}
}

func TestCoordinator_NoOverlappingRequests(t *testing.T) {
	r := newFakeResolver("A", "B")
	r.block = make(chan struct{})
	c := startCoordinator(t, r, CoordinatorConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		c.Resolve([]string{"A", "B"}, func([]string) { wg.Done() })
	}
	kit.Eventually(t, time.Second, func() bool { return len(r.Calls()) == 1 }, "first batch never started")
	if !c.InFlight("A") || !c.InFlight("B") {
		t.Fatalf("A and B should be in flight")
	}
	close(r.block)
	wg.Wait()

	if len(r.Calls()) != 1 {
		t.Fatalf("want a single remote call, got %v", r.Calls())
	}
	if r.overlap {
		t.Fatalf("remote requests overlapped for the same id")
	}
}

func TestCoordinator_FailureReleasesIDs(t *testing.T) {
	r := newFakeResolver("A")
	r.err = errors.New("boom")
	var failed []string
	var mu sync.Mutex
	c := startCoordinator(t, r, CoordinatorConfig{OnFailure: func(ids []string, err error) {
		mu.Lock()
		failed = append(failed, ids...)
		mu.Unlock()
	}})

	resolveAndWait(t, c, []string{"A"})
	if c.HasResult("A") || c.InFlight("A") {
		t.Fatalf("A must be neither resolved nor in flight after a failure")
	}
	mu.Lock()
	if !slices.Equal(failed, []string{"A"}) {
		t.Fatalf("OnFailure got %v", failed)
	}
	mu.Unlock()

	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()
	resolveAndWait(t, c, []string{"A"})
	if res, ok := c.Result("A"); !ok || !res.Resolved {
		t.Fatalf("retry should resolve A, got %+v", res)
	}
	if len(r.Calls()) != 2 {
		t.Fatalf("want two remote calls, got %d", len(r.Calls()))
	}
}

func TestCoordinator_TimeoutReleasesIDs(t *testing.T) {
	r := newFakeResolver("A")
	r.block = make(chan struct{})
	defer close(r.block)
	var gotErr error
	var mu sync.Mutex
	c := startCoordinator(t, r, CoordinatorConfig{
		Timeout: 20 * time.Millisecond,
		OnFailure: func(_ []string, err error) {
			mu.Lock()
			gotErr = err
			mu.Unlock()
		},
	})

	resolveAndWait(t, c, []string{"A"})
	if c.InFlight("A") || c.HasResult("A") {
		t.Fatalf("A should be released after a timeout")
	}
	mu.Lock()
	defer mu.Unlock()
	if !perr.IsCode(gotErr, perr.ErrorCodeTimeout) {
		t.Fatalf("want timeout code, got %v", gotErr)
	}
}

type panicResolver struct{ fakeResolver }

func (p *panicResolver) BatchResolve(context.Context, []string) ([]domain.ProductRecord, error) {
	panic("kaboom")
}

func TestCoordinator_ResolverPanicIsAFailure(t *testing.T) {
	c := startCoordinator(t, &panicResolver{}, CoordinatorConfig{})
	resolveAndWait(t, c, []string{"A"})
	if c.InFlight("A") || c.HasResult("A") {
		t.Fatalf("panic should release A without a result")
	}
}

func TestCoordinator_IgnoresRecordsForUnrequestedIDs(t *testing.T) {
	r := newFakeResolver()
	r.known["A"] = domain.ProductRecord{ProductKey: "P", Identifiers: []string{"A", "Z"}}
	c := startCoordinator(t, r, CoordinatorConfig{})

	resolveAndWait(t, c, []string{"A"})
	if c.HasResult("Z") {
		t.Fatalf("Z was never requested")
	}
}

func TestCoordinator_SeedRemoveClear(t *testing.T) {
	c := NewCoordinator(newFakeResolver(), CoordinatorConfig{})
	c.Seed(map[string]domain.LookupResult{
		"A": {ProductKey: "P1", Resolved: true},
		"B": domain.NotFound("B"),
		"":  {ProductKey: "ignored"},
	})
	if len(c.Results()) != 2 {
		t.Fatalf("blank id should not be seeded")
	}
	if r, _ := c.Result("A"); r.Identifier != "A" {
		t.Fatalf("seed should stamp the identifier, got %+v", r)
	}
	c.Remove("A")
	if c.HasResult("A") {
		t.Fatalf("A should be removed")
	}
	resolved, notFound := c.CountsFor([]string{"A", "B"})
	if resolved != 0 || notFound != 1 {
		t.Fatalf("CountsFor = %d/%d", resolved, notFound)
	}
	c.Clear()
	if len(c.Results()) != 0 {
		t.Fatalf("Clear should drop everything")
	}
}

func TestCoordinator_MissingLookupRouteReleasesIDs(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	client := lookup.NewClient(lookup.Options{BaseURL: srv.URL, MaxRetries: -1})
	c := startCoordinator(t, client, CoordinatorConfig{})

	resolveAndWait(t, c, []string{"A", "B"})
	for _, id := range []string{"A", "B"} {
		if c.HasResult(id) || c.InFlight(id) {
			t.Fatalf("%s must be neither resolved nor in flight after a 404", id)
		}
	}
	if _, notFound, _ := c.Counts(); notFound != 0 {
		t.Fatalf("no NOT_FOUND should be recorded, got %d", notFound)
	}
}

func TestCoordinator_ShutdownReportsQueuedBatchesDone(t *testing.T) {
	r := newFakeResolver("A", "B")
	r.block = make(chan struct{})
	c := NewCoordinator(r, CoordinatorConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(stopped)
	}()

	first := make(chan []string, 1)
	second := make(chan []string, 1)
	c.Resolve([]string{"A"}, func(ids []string) { first <- ids })
	kit.Eventually(t, time.Second, func() bool { return len(r.Calls()) == 1 }, "first batch should reach the resolver")
	c.Resolve([]string{"B"}, func(ids []string) { second <- ids })

	cancel()
	<-stopped
	for name, ch := range map[string]chan []string{"running": first, "queued": second} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s batch never reported done", name)
		}
	}
	if c.InFlight("B") || c.HasResult("B") {
		t.Fatalf("abandoned id B must be released and unresolved")
	}
	if len(r.Calls()) != 1 {
		t.Fatalf("queued batch must not reach the resolver, calls=%v", r.Calls())
	}
}
