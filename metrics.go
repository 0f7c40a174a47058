package rproc

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the load-latency histogram buckets in nanoseconds,
// from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks lifecycle-level statistics across every processor sharing
// this instance.
type Metrics struct {
	Acquires         atomic.Uint64
	Releases         atomic.Uint64
	FastPathAcquires atomic.Uint64

	LoadsStarted   atomic.Uint64
	LoadsSucceeded atomic.Uint64
	LoadsFailed    atomic.Uint64

	BusyRejections       atomic.Uint64
	AsymmetricReleases   atomic.Uint64
	BackendStartFailures atomic.Uint64
	BackendStopFailures  atomic.Uint64

	ActiveTraceBindings atomic.Int64

	TotalLoadLatencyNs atomic.Uint64
	LoadCount          atomic.Uint64
	LoadLatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a new, zeroed metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordAcquire records an acquire, distinguishing the fast path (refcount
// was already positive) from one that kicked off a new load.
func (m *Metrics) RecordAcquire(fastPath bool) {
	m.Acquires.Add(1)
	if fastPath {
		m.FastPathAcquires.Add(1)
	}
}

// RecordRelease records a release.
func (m *Metrics) RecordRelease() {
	m.Releases.Add(1)
}

// RecordLoadStart records the start of an asynchronous firmware load.
func (m *Metrics) RecordLoadStart() {
	m.LoadsStarted.Add(1)
}

// RecordLoadDone records a load's terminal outcome and latency.
func (m *Metrics) RecordLoadDone(latencyNs uint64, success bool) {
	if success {
		m.LoadsSucceeded.Add(1)
	} else {
		m.LoadsFailed.Add(1)
	}
	m.TotalLoadLatencyNs.Add(latencyNs)
	m.LoadCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LoadLatencyBuckets[i].Add(1)
		}
	}
}

// RecordBusyRejection records an unregister/acquire rejected as Busy.
func (m *Metrics) RecordBusyRejection() {
	m.BusyRejections.Add(1)
}

// RecordAsymmetricRelease records a put() with refcount already zero.
func (m *Metrics) RecordAsymmetricRelease() {
	m.AsymmetricReleases.Add(1)
}

// RecordBackendStart records the outcome of a backend Start call.
func (m *Metrics) RecordBackendStart(success bool) {
	if !success {
		m.BackendStartFailures.Add(1)
	}
}

// RecordBackendStop records the outcome of a backend Stop call.
func (m *Metrics) RecordBackendStop(success bool) {
	if !success {
		m.BackendStopFailures.Add(1)
	}
}

// RecordTraceBinding records the number of currently active trace bindings
// for the processor reporting in; callers pass the post-change count.
func (m *Metrics) RecordTraceBinding(active int) {
	m.ActiveTraceBindings.Store(int64(active))
}

// MetricsSnapshot is a point-in-time copy of Metrics suitable for reporting.
type MetricsSnapshot struct {
	Acquires             uint64
	FastPathAcquires     uint64
	Releases             uint64
	LoadsStarted         uint64
	LoadsSucceeded       uint64
	LoadsFailed          uint64
	BusyRejections       uint64
	AsymmetricReleases   uint64
	BackendStartFailures uint64
	BackendStopFailures  uint64
	ActiveTraceBindings  int64
	AvgLoadLatencyNs     uint64
	LoadLatencyHistogram [numLatencyBuckets]uint64
	UptimeNs             uint64
}

// Snapshot returns a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Acquires:             m.Acquires.Load(),
		FastPathAcquires:     m.FastPathAcquires.Load(),
		Releases:             m.Releases.Load(),
		LoadsStarted:         m.LoadsStarted.Load(),
		LoadsSucceeded:       m.LoadsSucceeded.Load(),
		LoadsFailed:          m.LoadsFailed.Load(),
		BusyRejections:       m.BusyRejections.Load(),
		AsymmetricReleases:   m.AsymmetricReleases.Load(),
		BackendStartFailures: m.BackendStartFailures.Load(),
		BackendStopFailures:  m.BackendStopFailures.Load(),
		ActiveTraceBindings:  m.ActiveTraceBindings.Load(),
		UptimeNs:             uint64(time.Now().UnixNano() - m.StartTime.Load()),
	}

	loadCount := m.LoadCount.Load()
	if loadCount > 0 {
		snap.AvgLoadLatencyNs = m.TotalLoadLatencyNs.Load() / loadCount
	}
	for i := 0; i < numLatencyBuckets; i++ {
		snap.LoadLatencyHistogram[i] = m.LoadLatencyBuckets[i].Load()
	}
	return snap
}

// Observer is the pluggable metrics-collection contract. Implementations
// must be safe for concurrent use; methods are called from arbitrary
// worker threads (the async load callback runs on one it does not own).
// Every recordable event in the framework flows through exactly one
// Observer method — Metrics is only ever updated by a MetricsObserver, so
// wiring both a custom Observer and a *Metrics into the same Config never
// double-counts.
type Observer interface {
	ObserveAcquire(refcount int)
	ObserveRelease(refcount int)
	ObserveLoadStart()
	ObserveLoad(latencyNs uint64, success bool)
	ObserveBackendStart(success bool)
	ObserveBackendStop(success bool)
	ObserveTraceBinding(active int)
	ObserveBusyRejection()
	ObserveAsymmetricRelease()
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveAcquire(int)        {}
func (NoOpObserver) ObserveRelease(int)        {}
func (NoOpObserver) ObserveLoadStart()         {}
func (NoOpObserver) ObserveLoad(uint64, bool)  {}
func (NoOpObserver) ObserveBackendStart(bool)  {}
func (NoOpObserver) ObserveBackendStop(bool)   {}
func (NoOpObserver) ObserveTraceBinding(int)   {}
func (NoOpObserver) ObserveBusyRejection()     {}
func (NoOpObserver) ObserveAsymmetricRelease() {}

// MetricsObserver adapts a *Metrics to the Observer interface.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver returns an Observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveAcquire(refcount int) {
	o.metrics.RecordAcquire(refcount > 1)
}

func (o *MetricsObserver) ObserveRelease(refcount int) {
	o.metrics.RecordRelease()
}

func (o *MetricsObserver) ObserveLoadStart() {
	o.metrics.RecordLoadStart()
}

func (o *MetricsObserver) ObserveLoad(latencyNs uint64, success bool) {
	o.metrics.RecordLoadDone(latencyNs, success)
}

func (o *MetricsObserver) ObserveBackendStart(success bool) {
	o.metrics.RecordBackendStart(success)
}

func (o *MetricsObserver) ObserveBackendStop(success bool) {
	o.metrics.RecordBackendStop(success)
}

func (o *MetricsObserver) ObserveTraceBinding(active int) {
	o.metrics.RecordTraceBinding(active)
}

func (o *MetricsObserver) ObserveBusyRejection() {
	o.metrics.RecordBusyRejection()
}

func (o *MetricsObserver) ObserveAsymmetricRelease() {
	o.metrics.RecordAsymmetricRelease()
}

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = (*NoOpObserver)(nil)
)
