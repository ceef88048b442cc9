// Package middleware is the request pipeline: chi and cors adapters plus the
// in-house access log, panic recovery and correlation
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestID honors an inbound X-Request-Id or mints one
func RequestID() func(http.Handler) http.Handler { return chimw.RequestID }

// RealIP trusts X-Forwarded-For and X-Real-IP from the dock proxy
func RealIP() func(http.Handler) http.Handler { return chimw.RealIP }

// NoCache keeps clients and proxies from caching live scan state
func NoCache() func(http.Handler) http.Handler { return chimw.NoCache }

// StripSlashes routes /scan/state/ as /scan/state
func StripSlashes() func(http.Handler) http.Handler { return chimw.StripSlashes }

// Heartbeat answers GET path with 200 before routing
func Heartbeat(path string) func(http.Handler) http.Handler { return chimw.Heartbeat(path) }

// Timeout cancels the request context after d and answers 504 if the handler gave up
func Timeout(d time.Duration) func(http.Handler) http.Handler { return chimw.Timeout(d) }

// Compress encodes responses for clients that accept it at the given flate level
func Compress(level int) func(http.Handler) http.Handler {
	return chimw.NewCompressor(level).Handler
}
