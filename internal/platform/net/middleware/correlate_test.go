package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pnet "picktrack/internal/platform/net"
	"picktrack/internal/platform/net/middleware"
)

func TestCorrelate_PropagatesIDs(t *testing.T) {
	var gotReq, gotDev string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = pnet.RequestID(r.Context())
		gotDev = pnet.DeviceID(r.Context())
	})

	h := middleware.RequestID()(middleware.Correlate(next))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "rid-42")
	req.Header.Set(middleware.HeaderDeviceID, " handheld-3 ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if gotReq != "rid-42" {
		t.Fatalf("request id = %q", gotReq)
	}
	if gotDev != "handheld-3" {
		t.Fatalf("device id = %q", gotDev)
	}
	if rr.Header().Get("X-Request-ID") != "rid-42" {
		t.Fatalf("expected request id mirrored in response header")
	}
}

func TestCorrelate_NoHeaders(t *testing.T) {
	var gotDev string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDev = pnet.DeviceID(r.Context())
	})
	rr := httptest.NewRecorder()
	middleware.Correlate(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if gotDev != "" {
		t.Fatalf("expected empty device id, got %q", gotDev)
	}
	if rr.Header().Get("X-Request-ID") != "" {
		t.Fatalf("expected no request id header without RequestID middleware")
	}
}
