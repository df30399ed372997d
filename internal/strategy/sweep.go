package strategy

import (
	"github.com/yanun0323/logs"

	"main/internal/event"
	"main/internal/model"
)

// MarketSweep submits one market order on the first quote it sees for
// its symbol, then tracks the resulting acks.
type MarketSweep struct {
	Base
	symbol   string
	side     model.Side
	quantity model.Quantity
	sent     bool
}

// NewMarketSweep builds a factory for the given symbol, side and size.
func NewMarketSweep(symbol string, side model.Side, quantity model.Quantity) Factory {
	return func(id model.StrategyID, submitter Submitter) Strategy {
		return &MarketSweep{
			Base:     NewBase(id, submitter),
			symbol:   symbol,
			side:     side,
			quantity: quantity,
		}
	}
}

func (s *MarketSweep) OnInit(ts model.Timestamp) {
	logs.Infof("strategy %s: initialized at %s", s.ID(), ts)
}

func (s *MarketSweep) OnQuote(quote *event.Quote, tsArrival model.Timestamp) {
	if s.sent || quote.Symbol != s.symbol {
		return
	}
	// Only sweep a side that is actually quoted.
	if s.side == model.SideBuy {
		if model.IsInvalidPrice(quote.AskPrice) || quote.AskPrice <= 0 || quote.AskSize == 0 {
			return
		}
	} else {
		if model.IsInvalidPrice(quote.BidPrice) || quote.BidPrice <= 0 || quote.BidSize == 0 {
			return
		}
	}

	clientOID := s.Submit(s.symbol, s.side, model.OrderTypeMarket, model.InvalidPrice(), s.quantity, tsArrival)
	s.sent = true
	logs.Infof("strategy %s: submitted %s market order %d for %d %s",
		s.ID(), s.side, clientOID, s.quantity, s.symbol)
}

func (s *MarketSweep) OnTrade(*event.Trade, model.Timestamp) {}

func (s *MarketSweep) OnOrderAck(ack *event.OrderAck, tsArrival model.Timestamp) {
	logs.Debugf("strategy %s: ack client=%d status=%s leaves=%d",
		s.ID(), ack.ClientOrderID, ack.Status, ack.LeavesQty)
}

func (s *MarketSweep) OnSimControl(ctrl *event.StrategyControl, tsArrival model.Timestamp) {
	logs.Debugf("strategy %s: control %s at %s", s.ID(), ctrl.Control, tsArrival)
}

func (s *MarketSweep) OnShutdown(ts model.Timestamp) {
	logs.Infof("strategy %s: shutting down at %s", s.ID(), ts)
}
