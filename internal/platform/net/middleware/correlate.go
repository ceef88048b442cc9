package middleware

import (
	"net/http"
	"strings"

	"picktrack/internal/platform/logger"
	pnet "picktrack/internal/platform/net"
)

// HeaderDeviceID names the handheld that issued the request
const HeaderDeviceID = "X-Device-ID"

// Correlate copies the chi request id and the caller's device id onto the
// request context so logger.C and pnet getters see them. Mount after RequestID
func Correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := pnet.RequestID(ctx)
		ctx = logger.WithRequest(ctx, reqID)
		if dev := strings.TrimSpace(r.Header.Get(HeaderDeviceID)); dev != "" {
			ctx = pnet.WithDevice(ctx, dev)
		}
		if reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
