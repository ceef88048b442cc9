// Package http provides http transport for the scan engine
package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"time"

	"picktrack/internal/modkit/httpkit"
	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"
	"picktrack/internal/services/scan/domain"

	"github.com/go-chi/chi/v5"
)

// Streamer hands out event subscriptions
type Streamer interface {
	Subscribe(buf int) (<-chan domain.Event, func())
}

// Pusher accepts raw reads from a reader bridge
type Pusher interface {
	Push(identifier, rawSignal string) bool
}

// Diagnoser resolves a single identifier against the remote service
type Diagnoser interface {
	Lookup(ctx context.Context, identifier string) (*domain.ProductRecord, error)
}

// Deps are the optional collaborators beside the engine
type Deps struct {
	Events    Streamer
	Bridge    Pusher
	Diagnoser Diagnoser
	Heartbeat time.Duration
}

// lookupRouteTimeout caps the diagnostic lookup, which retries against a remote service
const lookupRouteTimeout = 45 * time.Second

type handlers struct {
	svc  domain.Service
	deps Deps
}

// Register mounts the scan routes
func Register(r httpkit.Router, s domain.Service, d Deps) {
	h := &handlers{svc: s, deps: d}

	httpkit.Get(r, "/state", h.state)
	httpkit.Post(r, "/start", h.start)
	httpkit.Post(r, "/stop", h.stop)
	httpkit.Post(r, "/stop-grace", h.stopGrace)
	httpkit.Post(r, "/cancel-grace", h.cancelGrace)

	httpkit.Get(r, "/registry", h.registry)
	httpkit.Delete(r, "/registry", h.clearRegistry)
	httpkit.PostJSON[domain.IDsInput](r, "/registry/seed", h.seedRegistry)
	httpkit.PostJSON[domain.IDsInput](r, "/registry/remove", h.remove)

	httpkit.Get(r, "/results", h.results)
	httpkit.Get(r, "/results/{id}", h.result)
	httpkit.PostJSON[domain.ResultsInput](r, "/results/seed", h.seedResults)
	httpkit.Post(r, "/clear", h.clearAll)
	httpkit.PostJSON[domain.IDsInput](r, "/prefetch", h.prefetch)

	httpkit.Get(r, "/stats", h.stats)
	httpkit.Get(r, "/settings", h.settings)
	httpkit.PutJSON[domain.Settings](r, "/settings", h.updateSettings)

	httpkit.PostJSON[domain.ReadsInput](r, "/reads", h.reads)
	httpkit.Bounded(r, lookupRouteTimeout, func(b httpkit.Router) {
		httpkit.Get(b, "/lookup/{id}", h.lookup)
	})
	r.Get("/events", h.events)
}

// swagger:route GET /scan/state Scan scanState
// @Summary Current session snapshot
// @Tags scan
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Router /scan/state [get]
func (h *handlers) state(_ *stdhttp.Request) (any, error) {
	return h.svc.Snapshot(), nil
}

// swagger:route POST /scan/start Scan scanStart
// @Summary Push settings to the reader and start inventory
// @Tags scan
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Failure 409 {object} httpkit.Envelope "grace period in progress"
// @Failure 503 {object} httpkit.Envelope "reader failure"
// @Router /scan/start [post]
func (h *handlers) start(r *stdhttp.Request) (any, error) {
	if err := h.svc.Start(r.Context()); err != nil {
		return nil, err
	}
	return h.svc.Snapshot(), nil
}

// swagger:route POST /scan/stop Scan scanStop
// @Summary Stop inventory and resolve the registry now
// @Tags scan
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Router /scan/stop [post]
func (h *handlers) stop(r *stdhttp.Request) (any, error) {
	if err := h.svc.Stop(r.Context()); err != nil {
		return nil, err
	}
	return h.svc.Snapshot(), nil
}

// swagger:route POST /scan/stop-grace Scan scanStopGrace
// @Summary Stop inventory and defer the lookup by the grace window
// @Tags scan
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Router /scan/stop-grace [post]
func (h *handlers) stopGrace(r *stdhttp.Request) (any, error) {
	if err := h.svc.StopWithGrace(r.Context()); err != nil {
		return nil, err
	}
	return h.svc.Snapshot(), nil
}

// swagger:route POST /scan/cancel-grace Scan scanCancelGrace
// @Summary Abandon the grace window without a lookup
// @Tags scan
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Router /scan/cancel-grace [post]
func (h *handlers) cancelGrace(_ *stdhttp.Request) (any, error) {
	h.svc.CancelGrace()
	return h.svc.Snapshot(), nil
}

func (h *handlers) registry(_ *stdhttp.Request) (any, error) {
	return h.svc.Registry(), nil
}

func (h *handlers) clearRegistry(_ *stdhttp.Request) (any, error) {
	n := len(h.svc.Registry())
	h.svc.ClearRegistry()
	return domain.RemovedOutput{Count: n}, nil
}

func (h *handlers) seedRegistry(_ *stdhttp.Request, in domain.IDsInput) (any, error) {
	h.svc.SeedRegistry(in.IDs)
	return h.svc.Registry(), nil
}

func (h *handlers) remove(_ *stdhttp.Request, in domain.IDsInput) (any, error) {
	h.svc.RemoveIDs(in.IDs)
	return domain.RemovedOutput{Count: len(in.IDs)}, nil
}

func (h *handlers) results(_ *stdhttp.Request) (any, error) {
	return h.svc.Results(), nil
}

// swagger:route GET /scan/results/{id} Scan scanResult
// @Summary Lookup result for one identifier
// @Tags scan
// @Produce json
// @Param id path string true "identifier"
// @Success 200 {object} domain.LookupResult "ok"
// @Failure 404 {object} httpkit.Envelope "no result yet"
// @Router /scan/results/{id} [get]
func (h *handlers) result(r *stdhttp.Request) (any, error) {
	id := chi.URLParam(r, "id")
	res, ok := h.svc.Result(id)
	if !ok {
		return nil, perr.NotFoundf("no result for %s", id)
	}
	return res, nil
}

func (h *handlers) seedResults(_ *stdhttp.Request, in domain.ResultsInput) (any, error) {
	h.svc.SeedResults(in.Results)
	return h.svc.Stats(), nil
}

func (h *handlers) clearAll(_ *stdhttp.Request) (any, error) {
	h.svc.ClearAll()
	return h.svc.Snapshot(), nil
}

func (h *handlers) prefetch(_ *stdhttp.Request, in domain.IDsInput) (any, error) {
	h.svc.Prefetch(in.IDs)
	return h.svc.Stats(), nil
}

func (h *handlers) stats(_ *stdhttp.Request) (any, error) {
	return h.svc.Stats(), nil
}

func (h *handlers) settings(_ *stdhttp.Request) (any, error) {
	return h.svc.Settings(), nil
}

// swagger:route PUT /scan/settings Scan scanSettings
// @Summary Replace reader settings, applied on the next start
// @Tags scan
// @Accept json
// @Produce json
// @Param payload body domain.Settings true "Settings"
// @Success 200 {object} domain.Settings "ok"
// @Failure 400 {object} httpkit.Envelope "validation"
// @Router /scan/settings [put]
func (h *handlers) updateSettings(r *stdhttp.Request, in domain.Settings) (any, error) {
	return h.svc.UpdateSettings(r.Context(), in)
}

// swagger:route POST /scan/reads Scan scanReads
// @Summary Push raw reads from a reader bridge
// @Tags scan
// @Accept json
// @Produce json
// @Param payload body domain.ReadsInput true "Reads"
// @Success 200 {object} domain.ReadsOutput "ok"
// @Router /scan/reads [post]
func (h *handlers) reads(_ *stdhttp.Request, in domain.ReadsInput) (any, error) {
	if h.deps.Bridge == nil {
		return nil, perr.Unavailablef("reader bridge is not enabled")
	}
	var out domain.ReadsOutput
	for _, rd := range in.Reads {
		if h.deps.Bridge.Push(rd.Identifier, rd.Signal) {
			out.Accepted++
		} else {
			out.Dropped++
		}
	}
	return out, nil
}

func (h *handlers) lookup(r *stdhttp.Request) (any, error) {
	if h.deps.Diagnoser == nil {
		return nil, perr.Unavailablef("lookup diagnostics are not enabled")
	}
	return h.deps.Diagnoser.Lookup(r.Context(), chi.URLParam(r, "id"))
}

// events streams engine notifications as server-sent events
func (h *handlers) events(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if h.deps.Events == nil {
		httpkit.WriteError(w, r, perr.Unavailablef("event stream is not enabled"))
		return
	}
	ctx := r.Context()
	sub, cancel := h.deps.Events.Subscribe(64)
	defer cancel()

	out := make(chan httpkit.SSEEvent)
	go func() {
		defer close(out)
		var seq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case ev, open := <-sub:
				if !open {
					return
				}
				seq++
				select {
				case out <- httpkit.SSEEvent{Name: string(ev.Kind), ID: strconv.FormatUint(seq, 10), Data: ev}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	hb := h.deps.Heartbeat
	if hb <= 0 {
		hb = 15 * time.Second
	}
	if err := httpkit.StreamSSE(ctx, w, out, httpkit.SSEOptions{Heartbeat: hb, Retry: 2 * time.Second}); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("event stream failed")
		httpkit.WriteError(w, r, err)
	}
}
