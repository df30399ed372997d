// Package latency turns physical boundary crossings (feed to strategy,
// strategy to exchange, exchange to strategy) into scheduled simulated
// times. The model is a pure function of its config; any randomisation
// belongs behind this interface.
package latency

import (
	"github.com/yanun0323/errors"

	"main/internal/model"
)

// Config holds the six constant latency components, in nanoseconds.
type Config struct {
	MarketDataFeed          model.Duration
	StrategyProcessing      model.Duration
	OrderNetworkStratToExch model.Duration
	ExchangeOrderProcessing model.Duration
	ExchangeFillProcessing  model.Duration
	AckNetworkExchToStrat   model.Duration
}

// Validate rejects negative components.
func (c Config) Validate() error {
	if c.MarketDataFeed < 0 || c.StrategyProcessing < 0 ||
		c.OrderNetworkStratToExch < 0 || c.ExchangeOrderProcessing < 0 ||
		c.ExchangeFillProcessing < 0 || c.AckNetworkExchToStrat < 0 {
		return errors.New("latency config: components must be >= 0")
	}
	return nil
}

// Model computes destination timestamps from source timestamps. All
// additions saturate.
type Model struct {
	cfg Config
}

// New validates the config and builds a model.
func New(cfg Config) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return Model{}, err
	}
	return Model{cfg: cfg}, nil
}

// Config returns the model's configuration.
func (m Model) Config() Config { return m.cfg }

// MDArrival is when a feed event with the given exchange timestamp
// lands in strategy mailboxes.
func (m Model) MDArrival(tsExchange model.Timestamp) model.Timestamp {
	return tsExchange.Add(m.cfg.MarketDataFeed)
}

// OrderArrivalAtExchange is when an order decided at tsDecision reaches
// the exchange: decision + strategy processing + outbound network.
func (m Model) OrderArrivalAtExchange(tsDecision model.Timestamp) model.Timestamp {
	return tsDecision.Add(m.cfg.StrategyProcessing).Add(m.cfg.OrderNetworkStratToExch)
}

// AckArrivalAtStrategy is when the exchange's acknowledgement of an
// order that arrived at tExch lands back at the strategy.
func (m Model) AckArrivalAtStrategy(tExch model.Timestamp) model.Timestamp {
	return tExch.Add(m.cfg.ExchangeOrderProcessing).Add(m.cfg.AckNetworkExchToStrat)
}

// FillArrivalAtStrategy is when the fill report for an order that
// arrived at tExch lands back at the strategy.
func (m Model) FillArrivalAtStrategy(tExch model.Timestamp) model.Timestamp {
	return tExch.Add(m.cfg.ExchangeFillProcessing).Add(m.cfg.AckNetworkExchToStrat)
}
