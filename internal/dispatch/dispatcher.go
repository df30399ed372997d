// Package dispatch owns the simulation core: the central event
// scheduler (MEPQ), the order lifecycle simulator, the strategy
// workers, and the run loop that ties them together. The whole
// simulation is a reduction over (scheduler, latency model, book).
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/event"
	"main/internal/latency"
	"main/internal/metrics"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/queue"
	"main/internal/recorder"
	"main/internal/risk"
	"main/internal/state"
	"main/internal/strategy"
	"main/pkg/exception"
)

const (
	// defaultMailboxCapacity bounds each strategy mailbox.
	defaultMailboxCapacity = 10_000
	// orderRequestInterval paces the periodic ProcessOrderRequests
	// event, in simulated time.
	orderRequestInterval = 10 * model.Millisecond
	// idleSleep is the only wall-clock wait in the core: it yields the
	// dispatch thread while strategy responses are in flight.
	idleSleep = time.Millisecond
)

// Feed is the finite iterator of historical market events the core
// consumes. Next returns exception.ErrFeedExhausted when done.
type Feed interface {
	Next() (event.Event, error)
}

// Config assembles the dispatcher's collaborators. Metrics, Risk and
// Trace are optional.
type Config struct {
	Latency         latency.Model
	MailboxCapacity int
	Metrics         metrics.Sink
	Obs             *obs.Metrics
	Risk            *risk.Engine
	Trace           *recorder.Trace
}

// Dispatcher drives the simulation: it is the sole mutator of the
// MEPQ, the book store, the lifecycle state and the simulated clock.
type Dispatcher struct {
	cfg     Config
	latency latency.Model

	books      *book.Store
	requests   *queue.Blocking[event.OrderRequest]
	pq         *mepq
	runners    []*runner
	runnerByID map[model.StrategyID]*runner
	positions  *state.Reducer

	currentSimTime  model.Timestamp
	nextExchangeOID model.OrderID
	endOfFeedDone   bool

	running atomic.Bool
	stop    atomic.Bool
	wg      sync.WaitGroup
}

// New creates a dispatcher. Strategies are registered afterwards,
// before Run.
func New(cfg Config) *Dispatcher {
	if cfg.MailboxCapacity <= 0 {
		cfg.MailboxCapacity = defaultMailboxCapacity
	}
	return &Dispatcher{
		cfg:             cfg,
		latency:         cfg.Latency,
		books:           book.NewStore(),
		requests:        queue.NewBlocking[event.OrderRequest](0),
		pq:              newMEPQ(),
		runnerByID:      make(map[model.StrategyID]*runner),
		positions:       state.NewReducer(),
		currentSimTime:  model.TimestampMin,
		nextExchangeOID: 1,
	}
}

// AddStrategy registers a strategy before the run starts. Registration
// order fixes broadcast order.
func (d *Dispatcher) AddStrategy(id model.StrategyID, factory strategy.Factory) error {
	if d.running.Load() {
		return exception.ErrDispatchRunning
	}
	if _, ok := d.runnerByID[id]; ok {
		return fmt.Errorf("%w: %s", exception.ErrDispatchDuplicateStrategy, id)
	}
	strat := factory(id, d)
	if strat == nil {
		return fmt.Errorf("%w: %s", exception.ErrDispatchNilStrategy, id)
	}
	r := newRunner(id, strat, d.cfg.MailboxCapacity, d.cfg.Obs)
	d.runners = append(d.runners, r)
	d.runnerByID[id] = r
	logs.Infof("dispatcher: added strategy %s", id)
	return nil
}

// SubmitOrder enqueues an order request. Strategy workers call this
// from their own goroutines.
func (d *Dispatcher) SubmitOrder(req event.OrderRequest) {
	d.requests.Push(req)
}

// RequestStop aborts the run loop at the next iteration. The shutdown
// protocol still closes every mailbox and joins every worker.
func (d *Dispatcher) RequestStop() {
	d.stop.Store(true)
}

// CurrentSimTime returns the simulated clock. Only meaningful from the
// dispatch goroutine or after Run returns.
func (d *Dispatcher) CurrentSimTime() model.Timestamp {
	return d.currentSimTime
}

// Books exposes the top-of-book store for post-run inspection.
func (d *Dispatcher) Books() *book.Store {
	return d.books
}

// Run loads the feed, starts the workers, and drives the event loop to
// completion. It blocks until the simulation terminates, then closes
// every mailbox and joins every worker.
func (d *Dispatcher) Run(f Feed) error {
	if !d.running.CompareAndSwap(false, true) {
		return exception.ErrDispatchRunning
	}
	if len(d.runners) == 0 {
		logs.Warnf("dispatcher: no strategies registered, running without strategies")
	}

	count, err := d.loadInitialData(f)
	if err != nil {
		return err
	}
	logs.Infof("dispatcher: loaded %d market events", count)

	initTS := model.TimestampMin
	if ts, ok := d.pq.PeekTS(); ok {
		initTS = ts
	}
	d.currentSimTime = initTS

	// The initial periodic drain guarantees order-request processing
	// progresses even if the market data stream goes quiet.
	d.pq.PushEvent(&event.DispatcherControl{
		TsArrival: initTS,
		Control:   event.ControlProcessOrderRequests,
	})

	for _, r := range d.runners {
		d.wg.Add(1)
		go func(r *runner) {
			defer d.wg.Done()
			r.run(initTS)
		}(r)
	}

	logs.Info("dispatcher: starting main event loop")
	d.loop()
	logs.Info("dispatcher: main event loop finished")

	d.shutdown()
	return nil
}

func (d *Dispatcher) loadInitialData(f Feed) (int, error) {
	if f == nil {
		return 0, nil
	}
	count := 0
	for {
		ev, err := f.Next()
		if err != nil {
			if errors.Is(err, exception.ErrFeedExhausted) {
				return count, nil
			}
			return count, fmt.Errorf("load historical data: %w", err)
		}
		switch e := ev.(type) {
		case *event.Quote:
			e.TsArrival = d.latency.MDArrival(e.TsExchange)
		case *event.Trade:
			e.TsArrival = d.latency.MDArrival(e.TsExchange)
		default:
			logs.Warnf("dispatcher: feed produced %s event, ignoring", ev.Kind())
			continue
		}
		d.pq.PushEvent(ev)
		count++
	}
}

func (d *Dispatcher) loop() {
	for {
		if d.stop.Load() {
			logs.Warnf("dispatcher: stop requested, aborting at sim time %s", d.currentSimTime)
			return
		}

		d.drainOrderRequests()

		if d.pq.Len() == 0 {
			if d.endOfFeedDone {
				if d.requests.Len() == 0 {
					return
				}
			} else if d.strategiesQuiescent() && d.requests.Len() == 0 {
				// All market data dispatched and every worker idle:
				// once quiescence is observed, any submitted order is
				// already visible in the request queue, so the empty
				// check cannot miss one. Signal the end of the feed
				// exactly once.
				d.pq.PushEvent(&event.StrategyControl{
					TsArrival: d.currentSimTime.Add(model.Nanosecond),
					Control:   event.ControlEndOfDataFeed,
				})
				d.endOfFeedDone = true
				continue
			}
			time.Sleep(idleSleep)
			continue
		}

		ev := d.pq.PopMin()
		d.currentSimTime = ev.EffectiveTS()
		d.cfg.Obs.ObserveDispatch(ev.Kind())
		if err := d.cfg.Trace.AppendEvent(ev); err != nil {
			logs.Errorf("dispatcher: trace append failed: %+v", err)
		}
		d.processEvent(ev)
	}
}

func (d *Dispatcher) processEvent(ev event.Event) {
	switch e := ev.(type) {
	case *event.Quote:
		d.books.Get(e.Symbol).ApplyQuote(e)
		for _, r := range d.runners {
			r.deliver(e.Clone())
		}
	case *event.Trade:
		for _, r := range d.runners {
			r.deliver(e.Clone())
		}
	case *event.OrderAck:
		r, ok := d.runnerByID[e.StrategyID]
		if !ok {
			// Indicates a lifecycle bug; acks only exist for
			// registered strategies.
			logs.Warnf("dispatcher: no strategy %s for ack client=%d, discarding", e.StrategyID, e.ClientOrderID)
			return
		}
		r.deliver(e.Clone())
	case *event.DispatcherControl:
		d.handleDispatcherControl(e)
	case *event.StrategyControl:
		d.handleStrategyControl(e)
	default:
		logs.Warnf("dispatcher: unknown event kind %s in MEPQ", ev.Kind())
	}
}

func (d *Dispatcher) handleDispatcherControl(e *event.DispatcherControl) {
	if e.Control != event.ControlProcessOrderRequests {
		logs.Warnf("dispatcher: unexpected dispatcher control %s", e.Control)
		return
	}
	d.drainOrderRequests()
	// Re-arm only while other events keep the queue alive; the idle
	// branch of the loop takes over otherwise.
	if d.pq.Len() > 0 {
		d.pq.PushEvent(&event.DispatcherControl{
			TsArrival: d.currentSimTime.Add(orderRequestInterval),
			Control:   event.ControlProcessOrderRequests,
		})
	}
}

func (d *Dispatcher) handleStrategyControl(e *event.StrategyControl) {
	if e.Control != event.ControlEndOfDataFeed {
		logs.Warnf("dispatcher: unexpected strategy control %s in MEPQ", e.Control)
		return
	}
	logs.Info("dispatcher: end of data feed, signaling strategies to shut down")
	for _, r := range d.runners {
		r.deliver(&event.StrategyControl{
			TsArrival:        d.currentSimTime,
			Control:          event.ControlShutdown,
			TargetStrategyID: r.id,
		})
	}
}

// strategiesQuiescent reports whether every worker has processed all
// events delivered to it. While false, a strategy callback may still be
// about to submit an order, so the feed cannot be declared over.
func (d *Dispatcher) strategiesQuiescent() bool {
	for _, r := range d.runners {
		if r.pending.Load() != 0 {
			return false
		}
	}
	return true
}

func (d *Dispatcher) drainOrderRequests() {
	for {
		req, status := d.requests.TryPop()
		if status != queue.PopOK {
			return
		}
		d.cfg.Obs.IncRequestsDrained()
		d.simulateOrderLifecycle(req)
	}
}

func (d *Dispatcher) shutdown() {
	for _, r := range d.runners {
		r.mailbox.Close()
	}
	d.wg.Wait()
	d.requests.Close()
	logs.Info("dispatcher: all strategy workers joined")
}
