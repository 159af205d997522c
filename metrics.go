package linking

import "sync/atomic"

// MetricID indexes one outcome counter.
type MetricID uint16

const (
	// MetricIssueSuccess counts issued confirmation codes.
	MetricIssueSuccess MetricID = iota
	// MetricIssueFailure counts failed issue attempts.
	MetricIssueFailure
	// MetricConsumeSuccess counts redeemed codes.
	MetricConsumeSuccess
	// MetricConsumeNotFound counts redemption attempts against absent or
	// expired records.
	MetricConsumeNotFound
	// MetricConsumeMismatch counts wrong-code attempts.
	MetricConsumeMismatch
	// MetricStoreUnavailable counts backend timeouts and outages.
	MetricStoreUnavailable
	// MetricProviderConnected counts confirmed provider bindings.
	MetricProviderConnected
	// MetricProviderConflict counts upserts rejected because the identity
	// was bound elsewhere.
	MetricProviderConflict
	// MetricProviderDisabled counts confirmed provider unlinks.
	MetricProviderDisabled
	// MetricTOTPEnabled counts activated second factors.
	MetricTOTPEnabled
	// MetricTOTPDisabled counts deactivated second factors.
	MetricTOTPDisabled
	// MetricAccountRestored counts confirmed account restores.
	MetricAccountRestored
	// MetricDeliveryFailure counts out-of-band delivery failures.
	MetricDeliveryFailure

	metricCount
)

// Metrics is a fixed array of lock-free counters. Disabled metrics make
// Inc a no-op.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricCount),
	}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
