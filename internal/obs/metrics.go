package obs

import (
	"sync/atomic"

	"main/internal/event"
	"main/internal/model"
)

const maxEventKind = int(event.KindStrategyControl)

// Metrics collects lightweight counters and latency stats for one
// simulation run. All methods are safe from any goroutine and a nil
// receiver disables collection.
type Metrics struct {
	eventCounts   [maxEventKind + 1]uint64
	acksEmitted   uint64
	fillsEmitted  uint64
	mailboxDrops  uint64
	workerPanics  uint64
	requestsDrain uint64

	fillAckLatency LatencyStats
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
	Min   model.Duration
	Max   model.Duration
	Avg   model.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts    map[event.Kind]uint64
	AcksEmitted    uint64
	FillsEmitted   uint64
	MailboxDrops   uint64
	WorkerPanics   uint64
	RequestsDrain  uint64
	FillAckLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveDispatch counts one event popped from the scheduler.
func (m *Metrics) ObserveDispatch(kind event.Kind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// IncAck counts an acknowledgement pushed into the scheduler.
func (m *Metrics) IncAck() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.acksEmitted, 1)
}

// IncFill counts a fill event pushed into the scheduler.
func (m *Metrics) IncFill() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fillsEmitted, 1)
}

// IncMailboxDrop records a delivery to a closed mailbox.
func (m *Metrics) IncMailboxDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.mailboxDrops, 1)
}

// IncWorkerPanic records a recovered strategy callback panic.
func (m *Metrics) IncWorkerPanic() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.workerPanics, 1)
}

// IncRequestsDrained counts order requests consumed from the queue.
func (m *Metrics) IncRequestsDrained() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.requestsDrain, 1)
}

// ObserveFillAck measures decision-to-fill-ack latency in sim time.
func (m *Metrics) ObserveFillAck(d model.Duration) {
	if m == nil {
		return
	}
	m.fillAckLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[event.Kind]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[event.Kind(i)] = v
		}
	}
	return Snapshot{
		EventCounts:    eventCounts,
		AcksEmitted:    atomic.LoadUint64(&m.acksEmitted),
		FillsEmitted:   atomic.LoadUint64(&m.fillsEmitted),
		MailboxDrops:   atomic.LoadUint64(&m.mailboxDrops),
		WorkerPanics:   atomic.LoadUint64(&m.workerPanics),
		RequestsDrain:  atomic.LoadUint64(&m.requestsDrain),
		FillAckLatency: m.fillAckLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d model.Duration) {
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
		Min:   model.Duration(min),
		Max:   model.Duration(max),
		Avg:   model.Duration(sum / count),
	}
}
