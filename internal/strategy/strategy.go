// Package strategy defines the callback contract trading strategies
// implement and the bundled example strategies.
package strategy

import (
	"main/internal/event"
	"main/internal/model"
)

// Submitter accepts order requests from a strategy. It must only be
// called from the strategy's own worker goroutine, and TsDecision must
// equal the arrival timestamp of the event that caused the decision.
type Submitter interface {
	SubmitOrder(req event.OrderRequest)
}

// Strategy is the capability each registered strategy implements. Every
// callback receives the event's effective arrival timestamp: that is
// the strategy's view of "now".
type Strategy interface {
	OnInit(ts model.Timestamp)
	OnQuote(quote *event.Quote, tsArrival model.Timestamp)
	OnTrade(trade *event.Trade, tsArrival model.Timestamp)
	OnOrderAck(ack *event.OrderAck, tsArrival model.Timestamp)
	OnSimControl(ctrl *event.StrategyControl, tsArrival model.Timestamp)
	OnShutdown(ts model.Timestamp)
}

// Factory builds a strategy bound to its id and submitter.
type Factory func(id model.StrategyID, submitter Submitter) Strategy

// Base carries the plumbing every concrete strategy needs: identity,
// the submitter, and a client order id counter.
type Base struct {
	id            model.StrategyID
	submitter     Submitter
	nextClientOID model.OrderID
}

// NewBase initialises the shared strategy state.
func NewBase(id model.StrategyID, submitter Submitter) Base {
	return Base{id: id, submitter: submitter, nextClientOID: 1}
}

// ID returns the strategy's identifier.
func (b *Base) ID() model.StrategyID { return b.id }

// NextClientOrderID hands out 1, 2, 3, ...
func (b *Base) NextClientOrderID() model.OrderID {
	id := b.nextClientOID
	b.nextClientOID++
	return id
}

// Submit builds and enqueues an order request, returning its client
// order id.
func (b *Base) Submit(symbol string, side model.Side, typ model.OrderType, price model.Price, qty model.Quantity, tsDecision model.Timestamp) model.OrderID {
	clientOID := b.NextClientOrderID()
	b.submitter.SubmitOrder(event.OrderRequest{
		StrategyID:    b.id,
		ClientOrderID: clientOID,
		Symbol:        symbol,
		Side:          side,
		Type:          typ,
		Price:         price,
		Quantity:      qty,
		TsDecision:    tsDecision,
	})
	return clientOID
}
