package module

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"picktrack/internal/adapters/blob"
	"picktrack/internal/modkit"
	"picktrack/internal/platform/config"
	phttp "picktrack/internal/platform/net/http"
	kit "picktrack/internal/platform/testkit"
	"picktrack/internal/services/cache/domain"
	"picktrack/internal/services/cache/service"

	"github.com/go-chi/chi/v5"
)

func TestFromConfig(t *testing.T) {
	if got := FromConfig(config.New()).Debounce; got != service.DefaultDebounce {
		t.Fatalf("default debounce = %s", got)
	}
	t.Setenv("CACHE_PERSIST_DEBOUNCE", "2s")
	if got := FromConfig(config.New()).Debounce; got != 2*time.Second {
		t.Fatalf("debounce = %s", got)
	}
}

func TestNew_MountsAndPersists(t *testing.T) {
	store := blob.NewMemory()
	m := New(modkit.Deps{Cfg: config.New()}, Options{Debounce: 5 * time.Millisecond}, modkit.WithPorts(Ports{Blobs: store}))
	if m.Name() != "cache" || m.Prefix() != "/cache" {
		t.Fatalf("name=%s prefix=%s", m.Name(), m.Prefix())
	}
	ports := modkit.MustPortOf[Exposed](m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ports.Persister.Run(ctx) }()

	mux := chi.NewRouter()
	m.MountRoutes(phttp.AdaptChi(mux))
	req := httptest.NewRequest(http.MethodPut, "/cache/all-ids", strings.NewReader(`{"ids":["A"]}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /cache/all-ids = %d %s", rec.Code, rec.Body.String())
	}

	kit.Eventually(t, time.Second, func() bool {
		_, ok, _ := store.Get(context.Background(), service.BlobKey(domain.TableAllIDs))
		return ok
	}, "all ids snapshot persisted")
}

func TestNew_BadRulePanics(t *testing.T) {
	kit.MustPanic(t, func() {
		New(modkit.Deps{Cfg: config.New()}, Options{Rules: []service.Rule{{Name: "x", Expr: "nope("}}})
	})
}
