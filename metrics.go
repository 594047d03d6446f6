package goConsole

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one shell counter or histogram.
type MetricID uint16

const (
	// MetricNavigation counts navigation requests that passed the permission check.
	MetricNavigation MetricID = iota
	// MetricNavigationDenied counts navigation requests rejected by the gate.
	MetricNavigationDenied
	// MetricMissingTarget counts affordances activated without a module target.
	MetricMissingTarget
	// MetricModuleLoaded counts fragments rendered into the content region.
	MetricModuleLoaded
	// MetricModuleFailed counts fragment retrievals that failed.
	MetricModuleFailed
	// MetricResultDiscarded counts retrieval completions dropped because a
	// newer navigation superseded them.
	MetricResultDiscarded
	// MetricSearch counts debounced searches that ran against the index.
	MetricSearch
	// MetricSearchSelected counts selected search results.
	MetricSearchSelected
	// MetricLogin counts sessions accepted from the login surface.
	MetricLogin
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricSessionExpired counts sessions ended by expiry.
	MetricSessionExpired
	// MetricMalformedToken counts tokens rejected as undecodable.
	MetricMalformedToken
	// MetricModuleLoadLatency is the fragment retrieval latency histogram.
	MetricModuleLoadLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free shell counters. All methods are safe for
// concurrent use and are no-ops on a nil or disabled receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and enabled
// histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a Metrics set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricModuleLoadLatency is a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricModuleLoadLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, the latency histogram.
// A disabled receiver yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricModuleLoadLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricModuleLoadLatency].buckets[i])
		}
		s.Histograms[MetricModuleLoadLatency] = buckets
	}

	return s
}

// bucketIndex maps a retrieval latency to one of the upper bounds
// 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s and +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 10:
		return 0
	case ms <= 25:
		return 1
	case ms <= 50:
		return 2
	case ms <= 100:
		return 3
	case ms <= 250:
		return 4
	case ms <= 500:
		return 5
	case ms <= 1000:
		return 6
	default:
		return 7
	}
}
