package domain

// Settings are pushed to the driver on every start
type Settings struct {
	PowerLevel       int  `json:"power_level" validate:"min=1,max=30"`
	RSSIThreshold    int  `json:"rssi_threshold" validate:"min=-120,max=-1"`
	GracePeriodMs    int  `json:"grace_period_ms" validate:"min=0,max=600000"`
	DuplicateRemoval bool `json:"duplicate_removal"`
}

// Defaults for a fresh install
const (
	DefaultPowerLevel    = 1
	DefaultRSSIThreshold = -60
	DefaultGracePeriodMs = 0
)

// DefaultSettings returns the settings a device starts with
func DefaultSettings() Settings {
	return Settings{
		PowerLevel:       DefaultPowerLevel,
		RSSIThreshold:    DefaultRSSIThreshold,
		GracePeriodMs:    DefaultGracePeriodMs,
		DuplicateRemoval: true,
	}
}

// Normalized forces the invariants the engine depends on
func (s Settings) Normalized() Settings {
	s.DuplicateRemoval = true
	return s
}
