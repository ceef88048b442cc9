package module

import (
	"context"

	"picktrack/internal/services/scan/domain"
)

// Blobs is the keyed byte store settings persist to
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Ports are injected into the scan module, Blobs is optional
type Ports struct {
	Blobs Blobs
}

// Exposed are the ports the scan module hands to other modules and main
type Exposed struct {
	Service domain.Service
	Worker  domain.WorkerPort
}
