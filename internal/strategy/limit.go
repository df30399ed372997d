package strategy

import (
	"github.com/yanun0323/logs"

	"main/internal/event"
	"main/internal/model"
)

// LimitOnQuote submits one limit order at a configured offset from the
// first quote's opposite top. A zero offset crosses the spread; a
// negative offset (further from the touch) rests passively and is
// acknowledged without fill.
type LimitOnQuote struct {
	Base
	symbol   string
	side     model.Side
	quantity model.Quantity
	offset   model.Price
	sent     bool
}

// NewLimitOnQuote builds a factory for a one-shot limit order strategy.
func NewLimitOnQuote(symbol string, side model.Side, quantity model.Quantity, offset model.Price) Factory {
	return func(id model.StrategyID, submitter Submitter) Strategy {
		return &LimitOnQuote{
			Base:     NewBase(id, submitter),
			symbol:   symbol,
			side:     side,
			quantity: quantity,
			offset:   offset,
		}
	}
}

func (s *LimitOnQuote) OnInit(ts model.Timestamp) {
	logs.Infof("strategy %s: initialized at %s", s.ID(), ts)
}

func (s *LimitOnQuote) OnQuote(quote *event.Quote, tsArrival model.Timestamp) {
	if s.sent || quote.Symbol != s.symbol {
		return
	}

	var limit model.Price
	if s.side == model.SideBuy {
		if model.IsInvalidPrice(quote.AskPrice) || quote.AskPrice <= 0 || quote.AskSize == 0 {
			return
		}
		limit = quote.AskPrice + s.offset
	} else {
		if model.IsInvalidPrice(quote.BidPrice) || quote.BidPrice <= 0 || quote.BidSize == 0 {
			return
		}
		limit = quote.BidPrice - s.offset
	}

	clientOID := s.Submit(s.symbol, s.side, model.OrderTypeLimit, limit, s.quantity, tsArrival)
	s.sent = true
	logs.Infof("strategy %s: submitted %s limit order %d for %d %s @ %f",
		s.ID(), s.side, clientOID, s.quantity, s.symbol, limit)
}

func (s *LimitOnQuote) OnTrade(*event.Trade, model.Timestamp) {}

func (s *LimitOnQuote) OnOrderAck(ack *event.OrderAck, tsArrival model.Timestamp) {
	logs.Debugf("strategy %s: ack client=%d status=%s leaves=%d",
		s.ID(), ack.ClientOrderID, ack.Status, ack.LeavesQty)
}

func (s *LimitOnQuote) OnSimControl(*event.StrategyControl, model.Timestamp) {}

func (s *LimitOnQuote) OnShutdown(ts model.Timestamp) {
	logs.Infof("strategy %s: shutting down at %s", s.ID(), ts)
}
