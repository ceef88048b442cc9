package module

import "picktrack/internal/services/cache/domain"

// Ports are injected into the cache module, Blobs nil keeps the cache in memory
type Ports struct {
	Blobs domain.BlobStore
}

// Exposed are the ports the cache module hands to main
type Exposed struct {
	Service   domain.Service
	Persister domain.PersisterPort
}
