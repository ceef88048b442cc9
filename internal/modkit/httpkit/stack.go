package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"picktrack/internal/platform/net/middleware"
)

// CommonStackWith is the middleware every versioned route runs behind.
// There is no request timeout here, the event stream is long lived; use Bounded
func CommonStackWith(cors middleware.CORSOptions) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.Correlate,
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: 500 * time.Millisecond}),
		middleware.CORS(cors),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
	}
}

// Bounded registers fn's routes behind a request timeout
func Bounded(r Router, d time.Duration, fn func(Router)) {
	r.Group(func(g Router) {
		g.Use(middleware.Timeout(d))
		fn(g)
	})
}

// MountAPIV1 mounts fn's routes under /api/v1 behind mw
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, fn func(Router)) {
	r.Route("/api/v1", func(api Router) {
		if len(mw) > 0 {
			api.Use(mw...)
		}
		fn(api)
	})
}
