package dispatch

import (
	"github.com/yanun0323/logs"

	"main/internal/event"
	"main/internal/metrics"
	"main/internal/model"
	"main/internal/risk"
)

// simulateOrderLifecycle consumes one order request and pushes the
// resulting acknowledgement, and at most one fill, back into the MEPQ.
// Matching uses the book state at the time the lifecycle runs (the
// current simulated time), not at the order's exchange arrival.
func (d *Dispatcher) simulateOrderLifecycle(req event.OrderRequest) {
	exchangeOID := d.nextExchangeOID
	d.nextExchangeOID++

	tExch := d.latency.OrderArrivalAtExchange(req.TsDecision)
	tAck := d.latency.AckArrivalAtStrategy(tExch)

	if d.cfg.Risk != nil {
		decision := d.cfg.Risk.Evaluate(req, risk.StateView{
			Position:       d.positions.Net(req.StrategyID, req.Symbol),
			ReferencePrice: d.referencePrice(req),
			Now:            d.currentSimTime,
		})
		if decision.Action == risk.ActionDeny {
			logs.Warnf("dispatcher: risk rejected order client=%d strategy=%s reason=%s",
				req.ClientOrderID, req.StrategyID, decision.Reason)
			d.pq.PushEvent(&event.OrderAck{
				TsArrival:       tAck,
				StrategyID:      req.StrategyID,
				ClientOrderID:   req.ClientOrderID,
				ExchangeOrderID: exchangeOID,
				Symbol:          req.Symbol,
				Status:          model.OrderStatusRejected,
				LastFillPrice:   model.InvalidPrice(),
			})
			d.cfg.Obs.IncAck()
			return
		}
	}

	d.pq.PushEvent(&event.OrderAck{
		TsArrival:       tAck,
		StrategyID:      req.StrategyID,
		ClientOrderID:   req.ClientOrderID,
		ExchangeOrderID: exchangeOID,
		Symbol:          req.Symbol,
		Status:          model.OrderStatusAcknowledged,
		LastFillPrice:   model.InvalidPrice(),
		LeavesQty:       req.Quantity,
	})
	d.cfg.Obs.IncAck()

	tob := d.books.Get(req.Symbol)
	var fillPx model.Price
	var fillQty model.Quantity
	switch req.Type {
	case model.OrderTypeMarket:
		fillPx, fillQty = tob.MatchMarket(req.Side, req.Quantity)
	case model.OrderTypeLimit:
		fillPx, fillQty = tob.MatchLimit(req.Side, req.Price, req.Quantity)
	}

	if fillQty == 0 || model.IsInvalidPrice(fillPx) {
		// Market with no liquidity, or a passive limit: the
		// acknowledgement's leaves already reflect the remainder.
		logs.Debugf("dispatcher: order client=%d strategy=%s unfilled (type=%s)",
			req.ClientOrderID, req.StrategyID, req.Type)
		return
	}

	// A fill never reaches the strategy before its acknowledgement.
	tFill := d.latency.FillArrivalAtStrategy(tExch)
	if minFill := tAck.Add(model.Nanosecond); tFill < minFill {
		tFill = minFill
	}

	status := model.OrderStatusFilled
	if fillQty < req.Quantity {
		status = model.OrderStatusPartiallyFilled
	}
	d.pq.PushEvent(&event.OrderAck{
		TsArrival:       tFill,
		StrategyID:      req.StrategyID,
		ClientOrderID:   req.ClientOrderID,
		ExchangeOrderID: exchangeOID,
		Symbol:          req.Symbol,
		Status:          status,
		LastFillPrice:   fillPx,
		LastFillQty:     fillQty,
		CumQty:          fillQty,
		LeavesQty:       req.Quantity - fillQty,
	})
	d.cfg.Obs.IncFill()
	d.cfg.Obs.ObserveFillAck(tFill.Sub(req.TsDecision))
	d.positions.ApplyFill(req.StrategyID, req.Symbol, req.Side, fillPx, fillQty)

	if d.cfg.Metrics != nil {
		d.cfg.Metrics.RecordTrade(metrics.SimulatedTrade{
			Timestamp:       tFill,
			StrategyID:      req.StrategyID,
			Symbol:          req.Symbol,
			Side:            req.Side,
			Price:           fillPx,
			Quantity:        fillQty,
			ClientOrderID:   req.ClientOrderID,
			ExchangeOrderID: exchangeOID,
		})
		d.cfg.Metrics.RecordLatency(
			string(req.StrategyID)+"_OrderFillAckLatency",
			tFill.Sub(req.TsDecision),
			tFill,
		)
	}
}

// referencePrice prices risk checks for market orders: the opposite
// top of book, when present.
func (d *Dispatcher) referencePrice(req event.OrderRequest) model.Price {
	if req.Type == model.OrderTypeLimit && !model.IsInvalidPrice(req.Price) {
		return req.Price
	}
	tob := d.books.Get(req.Symbol)
	if req.Side == model.SideBuy {
		if px, _, ok := tob.Ask(); ok {
			return px
		}
	} else {
		if px, _, ok := tob.Bid(); ok {
			return px
		}
	}
	return model.InvalidPrice()
}
