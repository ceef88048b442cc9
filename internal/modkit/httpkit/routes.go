package httpkit

import (
	"net/http"

	phttp "picktrack/internal/platform/net/http"
)

// Get mounts a handler that reads only the path and query
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.NoBody(h))
}

// Post mounts a body-less command
func Post(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, phttp.NoBody(h))
}

// Delete mounts a body-less delete
func Delete(r Router, path string, h func(*http.Request) (any, error)) {
	r.Delete(path, phttp.NoBody(h))
}

// PostJSON mounts a handler whose body binds and validates as T
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}

// PutJSON mounts a replace whose body binds and validates as T
func PutJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Put(path, phttp.JSONHandler(h))
}
