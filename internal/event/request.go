package event

import "main/internal/model"

// OrderRequest is what a strategy hands the dispatcher. It is not an
// Event: it travels through the order request queue, not the scheduler.
// TsDecision must equal the arrival timestamp of the event that caused
// the strategy to decide.
type OrderRequest struct {
	StrategyID    model.StrategyID
	ClientOrderID model.OrderID
	Symbol        string
	Side          model.Side
	Type          model.OrderType
	Price         model.Price
	Quantity      model.Quantity
	TsDecision    model.Timestamp
}
