package domain

import "time"

// KeyStats are the access counters kept per table key
type KeyStats struct {
	Table          string     `json:"table"`
	Key            string     `json:"key"`
	Hits           int        `json:"hits"`
	Misses         int        `json:"misses"`
	HitRate        float64    `json:"hit_rate"`
	AvgFillMs      float64    `json:"avg_fill_ms"`
	AccessesPerMin float64    `json:"accesses_per_min"`
	LastAccess     *time.Time `json:"last_access,omitempty"`
	Freshness      string     `json:"freshness,omitempty"`
}

// Requests is hits plus misses
func (k KeyStats) Requests() int { return k.Hits + k.Misses }

// Recommendation is one rule that fired for a key
type Recommendation struct {
	Rule    string `json:"rule"`
	Table   string `json:"table"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Report is the analytics snapshot
type Report struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	Hits            int              `json:"hits"`
	Misses          int              `json:"misses"`
	HitRate         float64          `json:"hit_rate"`
	Keys            []KeyStats       `json:"keys"`
	Recommendations []Recommendation `json:"recommendations"`
}

// FreshnessCounts tallies live entries per band for one table
type FreshnessCounts struct {
	Fresh   int `json:"fresh"`
	Aging   int `json:"aging"`
	Stale   int `json:"stale"`
	Expired int `json:"expired"`
}

// FreshnessReport is the per table freshness breakdown
type FreshnessReport struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Tables      map[string]FreshnessCounts `json:"tables"`
}
