// Package modkit composes API modules: shared deps, build options, mounting and port lookup
package modkit

import (
	"database/sql"

	"picktrack/internal/modkit/repokit"
	"picktrack/internal/platform/config"
	"picktrack/internal/platform/logger"
	"picktrack/internal/platform/store"
)

// Deps is what every module constructor receives; storage seams may be nil
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
	// Lite is the on-device sqlite handle
	Lite *sql.DB
	// Probes ping whichever of the above are open
	Probes []store.Probe
}

// FromStore copies the opened backends into Deps
func FromStore(log logger.Logger, cfg config.Conf, st *store.Store) Deps {
	d := Deps{Log: log, Cfg: cfg}
	if st == nil {
		return d
	}
	d.PG, d.CH, d.Lite = st.PG, st.CH, st.Lite
	d.Probes = st.Probes()
	return d
}
