package goGuard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricAccessIssued counts signed access tokens.
	MetricAccessIssued MetricID = iota
	// MetricRefreshIssued counts signed refresh tokens.
	MetricRefreshIssued
	// MetricVerifyFailure counts tokens rejected by signature, shape or lifetime checks.
	MetricVerifyFailure
	// MetricBlacklistHit counts tokens rejected by the ledger.
	MetricBlacklistHit
	// MetricDeviceMismatch counts tokens presented from a different user agent.
	MetricDeviceMismatch
	// MetricIncidentRevoked counts tokens issued before the incident clock.
	MetricIncidentRevoked
	// MetricVerifierMismatch counts access tokens with a wrong verifier.
	MetricVerifierMismatch
	// MetricRevocation counts explicit revocation calls.
	MetricRevocation
	// MetricLoginSuccess counts issued token pairs.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected credential attempts.
	MetricLoginFailure
	// MetricLogout counts logouts.
	MetricLogout
	// MetricRefresh counts refreshed token pairs.
	MetricRefresh
	// MetricLedgerConflict counts lost compare-and-swap rounds.
	MetricLedgerConflict
	// MetricAuthenticateLatency is the only metric with a histogram.
	MetricAuthenticateLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricAccessIssued:        "access_issued",
	MetricRefreshIssued:       "refresh_issued",
	MetricVerifyFailure:       "verify_failure",
	MetricBlacklistHit:        "blacklist_hit",
	MetricDeviceMismatch:      "device_mismatch",
	MetricIncidentRevoked:     "incident_revoked",
	MetricVerifierMismatch:    "verifier_mismatch",
	MetricRevocation:          "revocation",
	MetricLoginSuccess:        "login_success",
	MetricLoginFailure:        "login_failure",
	MetricLogout:              "logout",
	MetricRefresh:             "refresh",
	MetricLedgerConflict:      "ledger_conflict",
	MetricAuthenticateLatency: "authenticate_latency",
}

// String returns the snake_case metric name used by exporters.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs returns every defined metric in declaration order.
func MetricIDs() []MetricID {
	out := make([]MetricID, 0, metricIDCount)
	for id := MetricID(0); id < metricIDCount; id++ {
		out = append(out, id)
	}
	return out
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBounds are the upper bounds of the first seven latency buckets; the last is +Inf.
var HistogramBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil or disabled Metrics ignores all writes.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram of id. Only MetricAuthenticateLatency keeps one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricAuthenticateLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

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
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
