package obs

import (
	"sync/atomic"
	"time"

	"main/internal/model"
)

const (
	maxEventKind = int(model.EventInvariantViolation)
)

// Metrics collects lightweight counters and latency stats for the trading
// pipeline.
type Metrics struct {
	eventCounts [maxEventKind + 1]uint64
	queueDrops  uint64
	queueClosed uint64

	evalLatency   LatencyStats
	submitLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// Observe folds one sample into the stats.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	v := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, v)
	for {
		cur := atomic.LoadUint64(&l.min)
		if cur != 0 && v >= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, cur, v) {
			break
		}
	}
	for {
		cur := atomic.LoadUint64(&l.max)
		if v <= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, cur, v) {
			break
		}
	}
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

func (l *LatencyStats) snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts   map[model.EventKind]uint64
	QueueDrops    uint64
	QueueClosed   uint64
	EvalLatency   LatencySnapshot
	SubmitLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncEvent counts one observability event.
func (m *Metrics) IncEvent(kind model.EventKind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// IncQueueDrop records a dropped observability event.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a publish attempt on a closed queue.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// ObserveEval records one strategy-evaluation cycle duration.
func (m *Metrics) ObserveEval(d time.Duration) {
	if m == nil {
		return
	}
	m.evalLatency.Observe(d)
}

// ObserveSubmit records one signal-to-submission duration.
func (m *Metrics) ObserveSubmit(d time.Duration) {
	if m == nil {
		return
	}
	m.submitLatency.Observe(d)
}

// Snapshot captures the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		EventCounts: make(map[model.EventKind]uint64),
		QueueDrops:  atomic.LoadUint64(&m.queueDrops),
		QueueClosed: atomic.LoadUint64(&m.queueClosed),
	}
	for i := range m.eventCounts {
		if count := atomic.LoadUint64(&m.eventCounts[i]); count > 0 {
			snap.EventCounts[model.EventKind(i)] = count
		}
	}
	snap.EvalLatency = m.evalLatency.snapshot()
	snap.SubmitLatency = m.submitLatency.snapshot()
	return snap
}
