package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"picktrack/internal/platform/config"
	perr "picktrack/internal/platform/errors"
	phttp "picktrack/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type seedIn struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

func newRouter() phttp.Router { return phttp.AdaptChi(chi.NewRouter()) }

func do(t *testing.T, r phttp.Router, method, path, body string) (*httptest.ResponseRecorder, phttp.Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, req)
	var env phttp.Envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestRouter_RouteGroupAndVerbs(t *testing.T) {
	r := newRouter()
	var hits []string
	mark := func(tag string) phttp.Handler {
		return func(w http.ResponseWriter, _ *http.Request) {
			hits = append(hits, tag)
			w.WriteHeader(http.StatusAccepted)
		}
	}
	r.Route("/scan", func(s phttp.Router) {
		s.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("X-Module", "scan")
				next.ServeHTTP(w, req)
			})
		})
		s.Get("/state", mark("get"))
		s.Post("/start", mark("post"))
		s.Group(func(g phttp.Router) {
			g.Put("/settings", mark("put"))
			g.Delete("/registry", mark("delete"))
		})
	})
	r.Handle("/raw", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }))

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/scan/state", http.StatusAccepted},
		{http.MethodPost, "/scan/start", http.StatusAccepted},
		{http.MethodPut, "/scan/settings", http.StatusAccepted},
		{http.MethodDelete, "/scan/registry", http.StatusAccepted},
		{http.MethodGet, "/raw", http.StatusTeapot},
		{http.MethodPost, "/scan/state", http.StatusMethodNotAllowed},
	}
	for _, c := range cases {
		rec, _ := do(t, r, c.method, c.path, "")
		if rec.Code != c.want {
			t.Fatalf("%s %s = %d want %d", c.method, c.path, rec.Code, c.want)
		}
		if strings.HasPrefix(c.path, "/scan") && rec.Code != http.StatusMethodNotAllowed && rec.Header().Get("X-Module") != "scan" {
			t.Fatalf("%s %s missed the route middleware", c.method, c.path)
		}
	}
	if strings.Join(hits, ",") != "get,post,put,delete" {
		t.Fatalf("hits = %v", hits)
	}
}

func TestHandle_EnvelopeShapes(t *testing.T) {
	m := chi.NewRouter()
	m.Use(chimw.RequestID)
	r := phttp.AdaptChi(m)

	r.Get("/ok", phttp.Handle(func(*http.Request) phttp.Response { return phttp.OK(map[string]int{"picked": 2}) }))
	r.Post("/created", phttp.Handle(func(*http.Request) phttp.Response { return phttp.Created("E1") }))
	r.Delete("/gone", phttp.Handle(func(*http.Request) phttp.Response { return phttp.NoContent() }))
	r.Get("/missing", phttp.Handle(func(*http.Request) phttp.Response {
		return phttp.Error(perr.WithField(perr.NotFoundf("no result for E9"), "id"))
	}))
	r.Get("/plain", phttp.Handle(func(*http.Request) phttp.Response { return phttp.Error(errors.New("boom")) }))
	r.Get("/headers", phttp.Handle(func(*http.Request) phttp.Response {
		return phttp.Response{Body: "x", Header: http.Header{"X-Freshness": {"AGING"}}}
	}))

	rec, env := do(t, r, http.MethodGet, "/ok", "")
	if rec.Code != http.StatusOK || env.StatusCode != http.StatusOK || env.Status != "OK" || env.RequestID == "" {
		t.Fatalf("ok envelope = %d %+v", rec.Code, env)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}

	rec, env = do(t, r, http.MethodPost, "/created", "")
	if rec.Code != http.StatusCreated || env.Data != "E1" {
		t.Fatalf("created = %d %+v", rec.Code, env)
	}

	rec, _ = do(t, r, http.MethodDelete, "/gone", "")
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("no content = %d %q", rec.Code, rec.Body.String())
	}

	rec, env = do(t, r, http.MethodGet, "/missing", "")
	if rec.Code != http.StatusNotFound || env.Code != perr.ErrorCodeNotFound || env.Field != "id" || env.Error != "no result for E9" {
		t.Fatalf("not found = %d %+v", rec.Code, env)
	}

	rec, env = do(t, r, http.MethodGet, "/plain", "")
	if rec.Code != http.StatusInternalServerError || env.Error != "boom" {
		t.Fatalf("plain error = %d %+v", rec.Code, env)
	}

	rec, env = do(t, r, http.MethodGet, "/headers", "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Freshness") != "AGING" || env.Data != "x" {
		t.Fatalf("headers = %d %v %+v", rec.Code, rec.Header(), env)
	}
}

func TestJSONHandler_BindsAndValidates(t *testing.T) {
	r := newRouter()
	r.Post("/seed", phttp.JSONHandler(func(_ *http.Request, in seedIn) (any, error) {
		return len(in.IDs), nil
	}))
	r.Post("/fresh", phttp.JSONHandler(func(_ *http.Request, in seedIn) (any, error) {
		return phttp.Created(in.IDs[0]), nil
	}))

	rec, env := do(t, r, http.MethodPost, "/seed", `{"ids":["E1","E2"]}`)
	if rec.Code != http.StatusOK || env.Data != float64(2) {
		t.Fatalf("seed = %d %+v", rec.Code, env)
	}
	rec, env = do(t, r, http.MethodPost, "/fresh", `{"ids":["E3"]}`)
	if rec.Code != http.StatusCreated || env.Data != "E3" {
		t.Fatalf("fresh = %d %+v", rec.Code, env)
	}

	bad := []struct {
		name, body string
		code       perr.ErrorCode
	}{
		{"empty body", "", perr.ErrorCodeJSON},
		{"unknown field", `{"ids":["E1"],"extra":1}`, perr.ErrorCodeJSON},
		{"trailing data", `{"ids":["E1"]} {}`, perr.ErrorCodeJSON},
		{"empty list", `{"ids":[]}`, perr.ErrorCodeValidation},
	}
	for _, b := range bad {
		t.Run(b.name, func(t *testing.T) {
			rec, env := do(t, r, http.MethodPost, "/seed", b.body)
			if rec.Code != http.StatusBadRequest || env.Code != b.code {
				t.Fatalf("%s = %d %+v", b.name, rec.Code, env)
			}
		})
	}
}

func TestNoBody_PassesResponsesThrough(t *testing.T) {
	r := newRouter()
	r.Post("/stop", phttp.NoBody(func(*http.Request) (any, error) { return phttp.NoContent(), nil }))
	r.Get("/state", phttp.NoBody(func(*http.Request) (any, error) { return "IDLE", nil }))
	r.Post("/start", phttp.NoBody(func(*http.Request) (any, error) { return nil, perr.Conflictf("grace period in progress") }))

	if rec, _ := do(t, r, http.MethodPost, "/stop", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("stop = %d", rec.Code)
	}
	if rec, env := do(t, r, http.MethodGet, "/state", ""); rec.Code != http.StatusOK || env.Data != "IDLE" {
		t.Fatalf("state = %d %+v", rec.Code, env)
	}
	if rec, env := do(t, r, http.MethodPost, "/start", ""); rec.Code != http.StatusConflict || env.Code != perr.ErrorCodeConflict {
		t.Fatalf("start = %d %+v", rec.Code, env)
	}
}

func TestMountProfiler(t *testing.T) {
	off := newRouter()
	phttp.MountProfiler(off, "/debug", false)
	offRec := httptest.NewRecorder()
	off.Mux().ServeHTTP(offRec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if offRec.Code != http.StatusNotFound {
		t.Fatalf("disabled profiler answered %d", offRec.Code)
	}

	on := newRouter()
	phttp.MountProfiler(on, "/debug", true)
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rec := httptest.NewRecorder()
	on.Mux().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("profiler index = %d", rec.Code)
	}
}

func TestServer_ServeStopsOnContext(t *testing.T) {
	t.Setenv("HTTPTEST_PORT", "127.0.0.1:0")
	t.Setenv("HTTPTEST_SHUTDOWN_GRACE", "2s")
	srv := phttp.NewServer(config.New().Prefix("HTTPTEST_"))
	if srv.Addr() != "127.0.0.1:0" {
		t.Fatalf("addr = %q", srv.Addr())
	}
	srv.Router().Get("/ping", phttp.NoBody(func(*http.Request) (any, error) { return "pong", nil }))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		cancel()
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ping = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop")
	}
}
