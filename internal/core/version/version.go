// Package version reports build metadata stamped at link time
package version

// BuildInfo holds version information about the service build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information
// -ldflags "-X picktrack/internal/core/version.version=v0.3.0 -X picktrack/internal/core/version.commit=abcd"
func Info() BuildInfo {
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// UserAgent names this build in outbound requests
func UserAgent() string { return service + "/" + version }

var (
	service = "picktrack-api"
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
