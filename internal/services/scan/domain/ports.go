package domain

import "context"

// Driver is the physical reader seam owned by one engine
type Driver interface {
	Configure(ctx context.Context, s Settings) error
	StartInventory(ctx context.Context) error
	StopInventory(ctx context.Context) error
	// OnTag installs the read callback; rawSignal is driver specific text
	OnTag(handler func(identifier, rawSignal string))
}

// Resolver is the remote product lookup service
type Resolver interface {
	BatchResolve(ctx context.Context, identifiers []string) ([]ProductRecord, error)
	Resolve(ctx context.Context, identifier string) (*ProductRecord, error)
}

// Notifier receives push notifications, implementations must not block
type Notifier interface {
	Notify(ev Event)
}

// Feedback is the audible side effect of a novel detection
type Feedback interface {
	Detected(identifier string, signal int)
}

// SessionSink records finished sessions
type SessionSink interface {
	Record(ctx context.Context, s SessionSummary) error
}

// SettingsStore persists reader settings between restarts
type SettingsStore interface {
	Load(ctx context.Context) (Settings, bool, error)
	Save(ctx context.Context, s Settings) error
}

// ControlPort drives the session state machine
type ControlPort interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	StopWithGrace(ctx context.Context) error
	CancelGrace()
}

// RegistryPort seeds and clears the session tables
type RegistryPort interface {
	SeedRegistry(ids []string)
	SeedResults(results map[string]LookupResult)
	RemoveIDs(ids []string)
	ClearRegistry()
	ClearAll()
	Prefetch(ids []string)
}

// QueryPort is the read surface for the UI
type QueryPort interface {
	Snapshot() Snapshot
	Registry() []string
	Result(identifier string) (LookupResult, bool)
	Results() []LookupResult
	Stats() Stats
	Settings() Settings
	UpdateSettings(ctx context.Context, s Settings) (Settings, error)
}

// Service is the whole scan surface
type Service interface {
	ControlPort
	RegistryPort
	QueryPort
	AddEvent(identifier string, signal int)
}

// WorkerPort runs the background lookup worker
type WorkerPort interface {
	Run(ctx context.Context) error
}
