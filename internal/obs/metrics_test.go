package obs

import (
	"testing"
	"time"

	"main/internal/model/enum"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.ObserveApply(enum.ExecFilled, 2*time.Microsecond)
	m.ObserveApply(enum.ExecFilled, 4*time.Microsecond)
	m.ObserveApply(enum.ExecUnconfirmedNew, 3*time.Microsecond)
	m.IncUnknownSecurity()
	m.IncJournalAppend()
	m.IncQueueDrop()
	m.ObservePublish(2, time.Millisecond)

	snap := m.Snapshot()
	if snap.AppliedCounts[enum.ExecFilled] != 2 {
		t.Fatalf("filled count: got %d want 2", snap.AppliedCounts[enum.ExecFilled])
	}
	if snap.AppliedCounts[enum.ExecUnconfirmedNew] != 1 {
		t.Fatalf("new count: got %d want 1", snap.AppliedCounts[enum.ExecUnconfirmedNew])
	}
	if snap.UnknownSecurity != 1 || snap.JournalAppends != 1 || snap.QueueDrops != 1 {
		t.Fatalf("counter mismatch: %+v", snap)
	}
	if snap.PublisherRuns != 1 || snap.PublisherLines != 2 {
		t.Fatalf("publisher counters: %+v", snap)
	}
	if snap.ApplyLatency.Count != 3 {
		t.Fatalf("latency count: got %d want 3", snap.ApplyLatency.Count)
	}
	if snap.ApplyLatency.Min != 2*time.Microsecond || snap.ApplyLatency.Max != 4*time.Microsecond {
		t.Fatalf("latency min/max: %+v", snap.ApplyLatency)
	}
	if snap.ApplyLatency.Avg != 3*time.Microsecond {
		t.Fatalf("latency avg: %v", snap.ApplyLatency.Avg)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.ObserveApply(enum.ExecFilled, time.Microsecond)
	m.IncUnknownSecurity()
	m.IncIgnoredTrans()
	m.IncJournalAppend()
	m.IncQueueDrop()
	m.IncQueueClosed()
	m.ObservePublish(1, time.Microsecond)
	snap := m.Snapshot()
	if snap.ApplyLatency.Count != 0 {
		t.Fatalf("nil metrics recorded samples")
	}
}
