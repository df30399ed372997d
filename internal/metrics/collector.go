// Package metrics collects the simulation's outputs: the fill log, the
// latency log, and the per-strategy PnL summary. Recording is
// fire-and-forget; reports are written once at the end of the run.
package metrics

import (
	"sync"

	"main/internal/model"
	"main/internal/state"
)

// SimulatedTrade is one fill the core synthesised.
type SimulatedTrade struct {
	Timestamp       model.Timestamp
	StrategyID      model.StrategyID
	Symbol          string
	Side            model.Side
	Price           model.Price
	Quantity        model.Quantity
	ClientOrderID   model.OrderID
	ExchangeOrderID model.OrderID
}

// LatencyRecord is one observed latency at a point of interest.
type LatencyRecord struct {
	EventTime model.Timestamp
	Source    string
	Latency   model.Duration
	Notes     string
}

// Sink is what the core emits to. A nil Sink disables recording.
type Sink interface {
	RecordTrade(trade SimulatedTrade)
	RecordLatency(source string, latency model.Duration, ts model.Timestamp)
}

var _ Sink = (*Collector)(nil)

// Collector is the default Sink: it buffers trades and latencies in
// memory and folds fills into a position reducer for the PnL summary.
// Safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	trades    []SimulatedTrade
	latencies []LatencyRecord
	positions *state.Reducer
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{positions: state.NewReducer()}
}

// RecordTrade appends a fill and updates the position book.
func (c *Collector) RecordTrade(trade SimulatedTrade) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades = append(c.trades, trade)
	c.positions.ApplyFill(trade.StrategyID, trade.Symbol, trade.Side, trade.Price, trade.Quantity)
}

// RecordLatency appends a latency observation.
func (c *Collector) RecordLatency(source string, latency model.Duration, ts model.Timestamp) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies = append(c.latencies, LatencyRecord{
		EventTime: ts,
		Source:    source,
		Latency:   latency,
	})
}

// Trades returns a copy of the recorded fills.
func (c *Collector) Trades() []SimulatedTrade {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SimulatedTrade, len(c.trades))
	copy(out, c.trades)
	return out
}

// Latencies returns a copy of the recorded latency observations.
func (c *Collector) Latencies() []LatencyRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LatencyRecord, len(c.latencies))
	copy(out, c.latencies)
	return out
}
