package obs

import (
	"sync/atomic"
	"time"

	"main/internal/model/enum"
)

// Metrics collects lightweight counters and latency stats for the ledger
// engine. All methods are safe on a nil receiver.
type Metrics struct {
	appliedCounts   [10]uint64 // indexed by enum.ExecType
	unknownSecurity uint64
	ignoredTrans    uint64

	journalAppends uint64
	queueDrops     uint64
	queueClosed    uint64

	publisherRuns  uint64
	publisherLines uint64

	applyLatency   LatencyStats
	publishLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	AppliedCounts   map[enum.ExecType]uint64
	UnknownSecurity uint64
	IgnoredTrans    uint64
	JournalAppends  uint64
	QueueDrops      uint64
	QueueClosed     uint64
	PublisherRuns   uint64
	PublisherLines  uint64
	ApplyLatency    LatencySnapshot
	PublishLatency  LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveApply counts an applied confirmation and its apply latency.
func (m *Metrics) ObserveApply(execType enum.ExecType, d time.Duration) {
	if m == nil {
		return
	}
	idx := int(execType)
	if idx >= 0 && idx < len(m.appliedCounts) {
		atomic.AddUint64(&m.appliedCounts[idx], 1)
	}
	m.applyLatency.Observe(d)
}

// IncUnknownSecurity counts an event or journal row skipped because its
// security is not in the directory.
func (m *Metrics) IncUnknownSecurity() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.unknownSecurity, 1)
}

// IncIgnoredTrans counts a fill confirmation ignored for its trans type.
func (m *Metrics) IncIgnoredTrans() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ignoredTrans, 1)
}

// IncJournalAppend counts an enqueued journal write.
func (m *Metrics) IncJournalAppend() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.journalAppends, 1)
}

// IncQueueDrop records a confirmation queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// ObservePublish counts one publisher pass, the lines it emitted, and its
// duration.
func (m *Metrics) ObservePublish(lines int, d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.publisherRuns, 1)
	if lines > 0 {
		atomic.AddUint64(&m.publisherLines, uint64(lines))
	}
	m.publishLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	applied := make(map[enum.ExecType]uint64)
	for i := range m.appliedCounts {
		if v := atomic.LoadUint64(&m.appliedCounts[i]); v > 0 {
			applied[enum.ExecType(i)] = v
		}
	}
	return Snapshot{
		AppliedCounts:   applied,
		UnknownSecurity: atomic.LoadUint64(&m.unknownSecurity),
		IgnoredTrans:    atomic.LoadUint64(&m.ignoredTrans),
		JournalAppends:  atomic.LoadUint64(&m.journalAppends),
		QueueDrops:      atomic.LoadUint64(&m.queueDrops),
		QueueClosed:     atomic.LoadUint64(&m.queueClosed),
		PublisherRuns:   atomic.LoadUint64(&m.publisherRuns),
		PublisherLines:  atomic.LoadUint64(&m.publisherLines),
		ApplyLatency:    m.applyLatency.Snapshot(),
		PublishLatency:  m.publishLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
