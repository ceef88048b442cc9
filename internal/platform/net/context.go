// Package net holds request context helpers shared by the middleware and
// the transport: the chi request id and the calling device
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type deviceKey struct{}

// RequestID is the id chi's RequestID middleware stored, empty outside a request
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// WithDevice records which handheld sent the request
func WithDevice(ctx context.Context, deviceID string) context.Context {
	if deviceID == "" {
		return ctx
	}
	return context.WithValue(ctx, deviceKey{}, deviceID)
}

// DeviceID is the handheld recorded by WithDevice
func DeviceID(ctx context.Context) string {
	v, _ := ctx.Value(deviceKey{}).(string)
	return v
}
