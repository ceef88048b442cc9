package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSOptions is the subset of go-chi/cors the API exposes; empty lists take defaults
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

var (
	defaultMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	defaultHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", HeaderDeviceID}
)

// CORS applies o over the defaults; no origins means any origin
func CORS(o CORSOptions) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   o.AllowedOrigins,
		AllowedMethods:   orDefault(o.AllowedMethods, defaultMethods),
		AllowedHeaders:   orDefault(o.AllowedHeaders, defaultHeaders),
		ExposedHeaders:   orDefault(o.ExposedHeaders, []string{"X-Request-ID"}),
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	})
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
