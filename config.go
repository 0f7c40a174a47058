package rproc

import (
	"github.com/behrlich/rproc/internal/interfaces"
	"github.com/behrlich/rproc/internal/xlate"
)

// Ops describes how to bring a single remote processor up and down: the
// backend v-table, the firmware identifier to fetch on first acquire, an
// optional address-translation map, and an opaque owner handle. Owner is
// stored with the processor record and is not read by the framework; it
// does not pin anything. Acquisition is guarded against a concurrent
// Unregister instead.
type Ops struct {
	Backend  interfaces.Backend
	Firmware string
	Maps     xlate.Map
	Owner    interface{}
}

// Config configures a Registry. There are no environment variables or
// config files — every knob is set here explicitly.
type Config struct {
	// Logger receives lifecycle and pipeline diagnostics. Defaults to the
	// package-level default logger if nil.
	Logger interfaces.Logger
	// Observer receives metrics observations. Defaults to a MetricsObserver
	// wrapped around Metrics if nil, so Metrics reports real numbers without
	// any extra wiring; supply a custom Observer to opt out.
	Observer Observer
	// Metrics is returned by Registry.Metrics. A Registry always owns one
	// even if Observer is overridden with something else.
	Metrics *Metrics
	// Fetcher retrieves a named firmware image's bytes. Required: without
	// one, every asynchronous load started by a first acquire fails and the
	// processor returns to OFFLINE.
	Fetcher interfaces.FirmwareFetcher
	// Mapper acquires host-visible mappings for section and trace-buffer
	// placement. Required for the same reason.
	Mapper interfaces.Mapper
}

// DefaultConfig returns a Config with a fresh Metrics instance wired to a
// MetricsObserver, and nil Fetcher/Mapper (callers must supply both — see
// the bundled internal/hostmem and sim packages for runnable defaults).
func DefaultConfig() Config {
	m := NewMetrics()
	return Config{
		Metrics:  m,
		Observer: NewMetricsObserver(m),
	}
}
