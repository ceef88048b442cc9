package module

import (
	"time"

	"picktrack/internal/platform/config"
	"picktrack/internal/platform/logger"
	"picktrack/internal/services/scan/domain"
)

// Driver kinds
const (
	DriverBridge = "bridge"
	DriverSim    = "sim"
)

// Options controls the scan engine and its collaborators
type Options struct {
	Settings      domain.Settings
	LookupTimeout time.Duration
	DeviceID      string
	Driver        string
	SimIDs        []string
	SimInterval   time.Duration
	Heartbeat     time.Duration

	Lookup LookupOptions
}

// LookupOptions configures the remote product lookup client
type LookupOptions struct {
	BaseURL   string        `env:"BASE_URL" envDefault:"http://127.0.0.1:8090"`
	Token     string        `env:"TOKEN"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"10s"`
	Retries   int           `env:"RETRIES" envDefault:"3"`
	RetryBase time.Duration `env:"RETRY_BASE" envDefault:"250ms"`
}

// FromConfig reads SCAN_ and LOOKUP_ prefixed settings
func FromConfig(cfg config.Conf) Options {
	s := cfg.Prefix("SCAN_")
	lk, err := config.Parse[LookupOptions](cfg.Prefix("LOOKUP_"))
	if err != nil {
		logger.Named("scan.module").Panic().Err(err).Msg("lookup settings rejected")
	}
	return Options{
		Settings: domain.Settings{
			PowerLevel:       s.MayInt("POWER_LEVEL", domain.DefaultPowerLevel),
			RSSIThreshold:    s.MayInt("RSSI_THRESHOLD", domain.DefaultRSSIThreshold),
			GracePeriodMs:    s.MayInt("GRACE_MS", domain.DefaultGracePeriodMs),
			DuplicateRemoval: true,
		},
		LookupTimeout: s.MayDuration("LOOKUP_TIMEOUT", 30*time.Second),
		DeviceID:      s.MayString("DEVICE_ID", "handheld"),
		Driver:        s.MayEnum("DRIVER", DriverBridge, DriverBridge, DriverSim),
		SimIDs:        s.MayCSV("SIM_IDS", []string{"E200001", "E200002", "E200003", "E200004"}),
		SimInterval:   s.MayDuration("SIM_INTERVAL", 150*time.Millisecond),
		Heartbeat:     s.MayDuration("SSE_HEARTBEAT", 15*time.Second),
		Lookup:        lk,
	}
}
