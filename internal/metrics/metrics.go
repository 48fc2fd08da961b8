// Package metrics provides lock-free operation counters.
//
// Counters live in cache-line-padded uint64 slots incremented via
// sync/atomic, so the write path is allocation-free. The package owns
// storage and snapshot creation only; it performs no I/O and imports no
// sibling package.
package metrics

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginMFARequired
	MetricSignupSuccess
	MetricSignupDuplicate
	MetricSessionCreated
	MetricSessionDeactivated
	MetricLogout
	MetricLogoutAll
	MetricPasswordChangeSuccess
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricCodeRejected
	MetricMFAEnabled
	MetricMFADisabled
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config controls whether counters record at all.
type Config struct {
	Enabled bool
}

// Metrics holds the engine's counters. A nil *Metrics is valid and inert.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Counters map[MetricID]uint64
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{Counters: map[MetricID]uint64{}}
	}

	s := Snapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
