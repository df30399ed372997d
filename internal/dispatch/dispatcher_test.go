package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/event"
	"main/internal/latency"
	"main/internal/metrics"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/risk"
	"main/internal/strategy"
	"main/pkg/exception"
)

// sliceFeed replays a fixed set of market events.
type sliceFeed struct {
	events []event.Event
	next   int
}

func (f *sliceFeed) Next() (event.Event, error) {
	if f.next >= len(f.events) {
		return nil, exception.ErrFeedExhausted
	}
	ev := f.events[f.next]
	f.next++
	return ev, nil
}

// callback is one recorded strategy invocation.
type callback struct {
	name string
	ts   model.Timestamp
	ack  event.OrderAck
}

// probe records every callback it receives; onQuote optionally reacts.
type probe struct {
	strategy.Base
	calls   []callback
	onQuote func(p *probe, q *event.Quote, ts model.Timestamp)
}

func newProbeFactory(out **probe, onQuote func(p *probe, q *event.Quote, ts model.Timestamp)) strategy.Factory {
	return func(id model.StrategyID, submitter strategy.Submitter) strategy.Strategy {
		p := &probe{Base: strategy.NewBase(id, submitter), onQuote: onQuote}
		*out = p
		return p
	}
}

func (p *probe) OnInit(ts model.Timestamp) {
	p.calls = append(p.calls, callback{name: "init", ts: ts})
}

func (p *probe) OnQuote(q *event.Quote, ts model.Timestamp) {
	p.calls = append(p.calls, callback{name: "quote", ts: ts})
	if p.onQuote != nil {
		p.onQuote(p, q, ts)
	}
}

func (p *probe) OnTrade(t *event.Trade, ts model.Timestamp) {
	p.calls = append(p.calls, callback{name: "trade", ts: ts})
}

func (p *probe) OnOrderAck(a *event.OrderAck, ts model.Timestamp) {
	p.calls = append(p.calls, callback{name: "ack", ts: ts, ack: *a})
}

func (p *probe) OnSimControl(c *event.StrategyControl, ts model.Timestamp) {
	p.calls = append(p.calls, callback{name: "control:" + c.Control.String(), ts: ts})
}

func (p *probe) OnShutdown(ts model.Timestamp) {
	p.calls = append(p.calls, callback{name: "shutdown", ts: ts})
}

func (p *probe) acks() []event.OrderAck {
	var out []event.OrderAck
	for _, c := range p.calls {
		if c.name == "ack" {
			out = append(out, c.ack)
		}
	}
	return out
}

func testLatency(t *testing.T) latency.Model {
	t.Helper()
	m, err := latency.New(latency.Config{
		MarketDataFeed:          50 * model.Microsecond,
		StrategyProcessing:      5 * model.Microsecond,
		OrderNetworkStratToExch: 20 * model.Microsecond,
		ExchangeOrderProcessing: 10 * model.Microsecond,
		ExchangeFillProcessing:  15 * model.Microsecond,
		AckNetworkExchToStrat:   20 * model.Microsecond,
	})
	require.NoError(t, err)
	return m
}

func eurusdQuote(ts model.Timestamp, bidSz, askSz model.Quantity) *event.Quote {
	return &event.Quote{
		TsExchange: ts,
		Symbol:     "EURUSD",
		BidPrice:   1.07100,
		BidSize:    bidSz,
		AskPrice:   1.07105,
		AskSize:    askSz,
	}
}

func TestEmptyFeedOneStrategy(t *testing.T) {
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics()})
	var p *probe
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p, nil)))
	require.NoError(t, d.Run(&sliceFeed{}))

	var names []string
	for _, c := range p.calls {
		names = append(names, c.name)
	}
	assert.Equal(t, []string{"init", "control:SHUTDOWN", "shutdown"}, names)
	assert.Empty(t, p.acks())
}

func TestSingleQuoteNoOrders(t *testing.T) {
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics()})
	var p *probe
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p, nil)))

	feed := &sliceFeed{events: []event.Event{eurusdQuote(1_000_000_000, 100_000, 100_000)}}
	require.NoError(t, d.Run(feed))

	var quotes []callback
	for _, c := range p.calls {
		if c.name == "quote" {
			quotes = append(quotes, c)
		}
	}
	require.Len(t, quotes, 1)
	assert.Equal(t, model.Timestamp(1_000_050_000), quotes[0].ts)

	tob := d.Books().Get("EURUSD")
	px, sz, ok := tob.Bid()
	require.True(t, ok)
	assert.InDelta(t, 1.07100, float64(px), model.PriceEpsilon)
	assert.Equal(t, model.Quantity(100_000), sz)
	px, sz, ok = tob.Ask()
	require.True(t, ok)
	assert.InDelta(t, 1.07105, float64(px), model.PriceEpsilon)
	assert.Equal(t, model.Quantity(100_000), sz)
}

func TestMarketBuyAfterQuote(t *testing.T) {
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics()})
	var p *probe
	buyOnce := func(p *probe, q *event.Quote, ts model.Timestamp) {
		if len(p.acks()) == 0 && p.callCount("quote") == 1 {
			p.Submit(q.Symbol, model.SideBuy, model.OrderTypeMarket, model.InvalidPrice(), 1_000, ts)
		}
	}
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p, buyOnce)))

	feed := &sliceFeed{events: []event.Event{eurusdQuote(1_000_000_000, 100_000, 100_000)}}
	require.NoError(t, d.Run(feed))

	acks := p.acks()
	require.Len(t, acks, 2)

	assert.Equal(t, model.OrderStatusAcknowledged, acks[0].Status)
	assert.Equal(t, model.Timestamp(1_000_105_000), acks[0].TsArrival)
	assert.Equal(t, model.OrderID(1), acks[0].ClientOrderID)
	assert.Equal(t, model.Quantity(1_000), acks[0].LeavesQty)
	assert.Equal(t, model.Quantity(0), acks[0].CumQty)

	assert.Equal(t, model.OrderStatusFilled, acks[1].Status)
	assert.Equal(t, model.Timestamp(1_000_110_000), acks[1].TsArrival)
	assert.InDelta(t, 1.07105, float64(acks[1].LastFillPrice), model.PriceEpsilon)
	assert.Equal(t, model.Quantity(1_000), acks[1].LastFillQty)
	assert.Equal(t, model.Quantity(1_000), acks[1].CumQty)
	assert.Equal(t, model.Quantity(0), acks[1].LeavesQty)
}

func (p *probe) callCount(name string) int {
	n := 0
	for _, c := range p.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func TestMarketBuyInsufficientDepth(t *testing.T) {
	collector := metrics.NewCollector()
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics(), Metrics: collector})
	var p *probe
	buyOnce := func(p *probe, q *event.Quote, ts model.Timestamp) {
		if p.callCount("quote") == 1 {
			p.Submit(q.Symbol, model.SideBuy, model.OrderTypeMarket, model.InvalidPrice(), 1_000, ts)
		}
	}
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p, buyOnce)))

	feed := &sliceFeed{events: []event.Event{eurusdQuote(1_000_000_000, 100_000, 500)}}
	require.NoError(t, d.Run(feed))

	acks := p.acks()
	require.Len(t, acks, 2)
	assert.Equal(t, model.OrderStatusPartiallyFilled, acks[1].Status)
	assert.Equal(t, model.Quantity(500), acks[1].LastFillQty)
	assert.Equal(t, model.Quantity(500), acks[1].LeavesQty)
	assert.Equal(t, model.Quantity(500), acks[1].CumQty)

	_, _, ok := d.Books().Get("EURUSD").Ask()
	assert.False(t, ok, "consumed ask side must be absent")

	trades := collector.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, model.Quantity(500), trades[0].Quantity)
	assert.InDelta(t, 1.07105, float64(trades[0].Price), model.PriceEpsilon)
}

func TestPassiveLimit(t *testing.T) {
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics()})
	var p *probe
	limitOnce := func(p *probe, q *event.Quote, ts model.Timestamp) {
		if p.callCount("quote") == 1 {
			p.Submit(q.Symbol, model.SideBuy, model.OrderTypeLimit, 1.07090, 1_000, ts)
		}
	}
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p, limitOnce)))

	feed := &sliceFeed{events: []event.Event{eurusdQuote(1_000_000_000, 100_000, 100_000)}}
	require.NoError(t, d.Run(feed))

	acks := p.acks()
	require.Len(t, acks, 1)
	assert.Equal(t, model.OrderStatusAcknowledged, acks[0].Status)
	assert.Equal(t, model.Quantity(1_000), acks[0].LeavesQty)

	tob := d.Books().Get("EURUSD")
	_, sz, ok := tob.Ask()
	require.True(t, ok)
	assert.Equal(t, model.Quantity(100_000), sz)
	_, sz, ok = tob.Bid()
	require.True(t, ok)
	assert.Equal(t, model.Quantity(100_000), sz)
}

func TestTwoStrategiesSeeSameQuoteOnce(t *testing.T) {
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics()})
	var p1, p2 *probe
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p1, nil)))
	require.NoError(t, d.AddStrategy("s2", newProbeFactory(&p2, nil)))

	feed := &sliceFeed{events: []event.Event{eurusdQuote(1_000_000_000, 100_000, 100_000)}}
	require.NoError(t, d.Run(feed))

	for _, p := range []*probe{p1, p2} {
		require.Equal(t, 1, p.callCount("quote"))
		// The quote precedes the shutdown in each strategy's local order.
		var sawQuote bool
		for _, c := range p.calls {
			if c.name == "quote" {
				sawQuote = true
			}
			if c.name == "control:SHUTDOWN" {
				assert.True(t, sawQuote, "quote must arrive before shutdown")
			}
		}
	}
}

func TestBroadcastCompleteness(t *testing.T) {
	events := []event.Event{
		eurusdQuote(1_000_000_000, 100_000, 100_000),
		&event.Trade{TsExchange: 1_000_000_200, Symbol: "EURUSD", Price: 1.07102, Size: 500},
		eurusdQuote(1_000_000_400, 90_000, 90_000),
	}
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics()})
	var p *probe
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p, nil)))
	require.NoError(t, d.Run(&sliceFeed{events: events}))

	assert.Equal(t, 2, p.callCount("quote"))
	assert.Equal(t, 1, p.callCount("trade"))
	assert.Equal(t, "shutdown", p.calls[len(p.calls)-1].name)

	// The mailbox delivered in non-decreasing timestamp order.
	prev := model.TimestampMin
	for _, c := range p.calls[1:] { // skip init
		assert.GreaterOrEqual(t, int64(c.ts), int64(prev))
		prev = c.ts
	}
}

func TestMonotonicClockAndCausality(t *testing.T) {
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics()})
	var p *probe
	decision := model.Timestamp(0)
	buyEvery := func(p *probe, q *event.Quote, ts model.Timestamp) {
		decision = ts
		p.Submit(q.Symbol, model.SideBuy, model.OrderTypeMarket, model.InvalidPrice(), 100, ts)
	}
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p, buyEvery)))

	events := []event.Event{
		eurusdQuote(1_000_000_000, 100_000, 100_000),
		eurusdQuote(1_000_000_300, 100_000, 100_000),
	}
	require.NoError(t, d.Run(&sliceFeed{events: events}))

	acks := p.acks()
	require.Len(t, acks, 4)
	byClient := make(map[model.OrderID][]event.OrderAck)
	for _, a := range acks {
		byClient[a.ClientOrderID] = append(byClient[a.ClientOrderID], a)
	}
	require.Len(t, byClient, 2)

	exchangeIDs := make(map[model.OrderID]model.OrderID)
	for client, pair := range byClient {
		require.Len(t, pair, 2)
		ack, fill := pair[0], pair[1]
		assert.Equal(t, model.OrderStatusAcknowledged, ack.Status)
		assert.Equal(t, model.OrderStatusFilled, fill.Status)
		// Strict causality: ack after the decision, fill at least 1ns
		// after the ack.
		assert.Greater(t, int64(ack.TsArrival), int64(decision))
		assert.GreaterOrEqual(t, int64(fill.TsArrival), int64(ack.TsArrival)+1)
		// Conservation of quantity per request.
		assert.Equal(t, model.Quantity(100), fill.CumQty+fill.LeavesQty)
		exchangeIDs[client] = ack.ExchangeOrderID
	}
	assert.NotEqual(t, exchangeIDs[1], exchangeIDs[2], "exchange order ids are unique")
}

func TestRiskRejection(t *testing.T) {
	engine := risk.NewEngine(risk.Config{MaxOrderQty: 500})
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics(), Risk: engine})
	var p *probe
	buyBig := func(p *probe, q *event.Quote, ts model.Timestamp) {
		if p.callCount("quote") == 1 {
			p.Submit(q.Symbol, model.SideBuy, model.OrderTypeMarket, model.InvalidPrice(), 1_000, ts)
		}
	}
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p, buyBig)))

	feed := &sliceFeed{events: []event.Event{eurusdQuote(1_000_000_000, 100_000, 100_000)}}
	require.NoError(t, d.Run(feed))

	acks := p.acks()
	require.Len(t, acks, 1)
	assert.Equal(t, model.OrderStatusRejected, acks[0].Status)
	assert.Equal(t, model.Timestamp(1_000_105_000), acks[0].TsArrival)

	// The book is untouched by a rejected order.
	_, sz, ok := d.Books().Get("EURUSD").Ask()
	require.True(t, ok)
	assert.Equal(t, model.Quantity(100_000), sz)
}

func TestPanickingStrategyDoesNotStopSimulation(t *testing.T) {
	obsM := obs.NewMetrics()
	d := New(Config{Latency: testLatency(t), Obs: obsM})
	var p1, p2 *probe
	panicOnQuote := func(p *probe, q *event.Quote, ts model.Timestamp) {
		panic("strategy bug")
	}
	require.NoError(t, d.AddStrategy("bad", newProbeFactory(&p1, panicOnQuote)))
	require.NoError(t, d.AddStrategy("good", newProbeFactory(&p2, nil)))

	events := []event.Event{
		eurusdQuote(1_000_000_000, 100_000, 100_000),
		eurusdQuote(1_000_000_300, 100_000, 100_000),
	}
	require.NoError(t, d.Run(&sliceFeed{events: events}))

	assert.Equal(t, 2, p2.callCount("quote"))
	assert.Equal(t, 2, p1.callCount("quote"), "crashed worker keeps consuming its queue")
	assert.Equal(t, uint64(2), obsM.Snapshot().WorkerPanics)
	assert.Equal(t, "shutdown", p1.calls[len(p1.calls)-1].name)
}

func TestRegistrationRules(t *testing.T) {
	d := New(Config{Latency: testLatency(t), Obs: obs.NewMetrics()})
	var p *probe
	require.NoError(t, d.AddStrategy("s1", newProbeFactory(&p, nil)))

	err := d.AddStrategy("s1", newProbeFactory(&p, nil))
	assert.ErrorIs(t, err, exception.ErrDispatchDuplicateStrategy)

	require.NoError(t, d.Run(&sliceFeed{}))
	err = d.AddStrategy("s2", newProbeFactory(&p, nil))
	assert.ErrorIs(t, err, exception.ErrDispatchRunning)
}
