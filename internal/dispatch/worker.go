package dispatch

import (
	"sync/atomic"

	"github.com/yanun0323/logs"

	"main/internal/event"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/queue"
	"main/internal/strategy"
)

// runner owns one strategy: its mailbox and its worker goroutine. The
// worker is the sole consumer of the mailbox; the dispatch goroutine is
// the sole producer. pending counts delivered-but-unprocessed events:
// the dispatch loop reads it to know the strategy may still be about to
// submit orders, so end-of-feed is never declared under its feet.
type runner struct {
	id      model.StrategyID
	strat   strategy.Strategy
	mailbox *queue.Blocking[event.Event]
	metrics *obs.Metrics
	pending atomic.Int64
}

func newRunner(id model.StrategyID, strat strategy.Strategy, capacity int, metrics *obs.Metrics) *runner {
	return &runner{
		id:      id,
		strat:   strat,
		mailbox: queue.NewBlocking[event.Event](capacity),
		metrics: metrics,
	}
}

// run is the worker loop. A Shutdown control is delivered through
// OnSimControl and then ends the loop; OnShutdown fires exactly once on
// the way out. Callback panics are contained: a crashed callback never
// takes the simulation down.
func (r *runner) run(initTS model.Timestamp) {
	lastTS := initTS
	r.invoke(func() { r.strat.OnInit(initTS) })

	for {
		ev, status := r.mailbox.WaitPop()
		if status != queue.PopOK {
			break
		}
		ts := ev.EffectiveTS()
		lastTS = ts

		shutdown := false
		switch e := ev.(type) {
		case *event.Quote:
			r.invoke(func() { r.strat.OnQuote(e, ts) })
		case *event.Trade:
			r.invoke(func() { r.strat.OnTrade(e, ts) })
		case *event.OrderAck:
			r.invoke(func() { r.strat.OnOrderAck(e, ts) })
		case *event.StrategyControl:
			r.invoke(func() { r.strat.OnSimControl(e, ts) })
			shutdown = e.Control == event.ControlShutdown
		default:
			logs.Warnf("strategy %s: unexpected %s event in mailbox", r.id, ev.Kind())
		}
		// The decrement follows every callback, so any order the
		// strategy submitted is already queued when the dispatch loop
		// observes the drop.
		r.pending.Add(-1)
		if shutdown {
			break
		}
	}

	r.invoke(func() { r.strat.OnShutdown(lastTS) })
}

// invoke shields the worker loop from a panicking callback.
func (r *runner) invoke(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.IncWorkerPanic()
			logs.Errorf("strategy %s: callback panic recovered: %v", r.id, rec)
		}
	}()
	fn()
}

// deliver pushes a fresh event copy into the mailbox.
func (r *runner) deliver(ev event.Event) {
	if r.mailbox.IsClosed() {
		r.metrics.IncMailboxDrop()
		return
	}
	r.pending.Add(1)
	r.mailbox.Push(ev)
}
