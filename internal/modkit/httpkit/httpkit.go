// Package httpkit is the HTTP surface modules build routes with, so handler
// packages never import the platform transport directly
package httpkit

import (
	"context"
	"net/http"

	phttp "picktrack/internal/platform/net/http"
)

type (
	// Router is the mount seam
	Router = phttp.Router
	// Envelope is the JSON body shape, referenced by API docs
	Envelope = phttp.Envelope
	// Response lets a handler choose its status
	Response = phttp.Response
	// SSEEvent is one server-sent event
	SSEEvent = phttp.SSEEvent
	// SSEOptions tunes StreamSSE
	SSEOptions = phttp.SSEOptions
)

// NoContent answers a bare 204
func NoContent() Response { return phttp.NoContent() }

// WriteError writes err as an error envelope, for handlers that own the writer
func WriteError(w http.ResponseWriter, r *http.Request, err error) { phttp.RespondError(w, r, err) }

// StreamSSE streams ch as text/event-stream until ctx ends or ch closes
func StreamSSE(ctx context.Context, w http.ResponseWriter, ch <-chan SSEEvent, opt SSEOptions) error {
	return phttp.StreamSSE(ctx, w, ch, opt)
}
