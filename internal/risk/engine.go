// Package risk applies pre-trade checks to order requests before the
// lifecycle simulator acknowledges them. The engine is optional: a nil
// engine allows everything. All clocks here are simulated time, so
// runs stay deterministic.
package risk

import (
	"main/internal/event"
	"main/internal/model"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Action is the outcome of a risk decision.
type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

// Reason is a coarse reason code for risk decisions.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonMaxQty
	ReasonMaxNotional
	ReasonRateLimit
	ReasonPositionLimit
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill_switch"
	case ReasonMaxQty:
		return "max_qty"
	case ReasonMaxNotional:
		return "max_notional"
	case ReasonRateLimit:
		return "rate_limit"
	case ReasonPositionLimit:
		return "position_limit"
	default:
		return "unknown"
	}
}

// Config defines simple risk limits. Zero values disable a check.
type Config struct {
	KillSwitch       bool           `json:"killSwitch"`
	MaxOrderQty      model.Quantity `json:"maxOrderQty"`
	MaxOrderNotional float64        `json:"maxOrderNotional"`
	MaxPosition      model.Quantity `json:"maxPosition"`
	OrderRateLimit   int            `json:"orderRateLimit"`
	OrderRateWindow  model.Duration `json:"orderRateWindow"`
}

// StateView provides the evaluation context for one request.
type StateView struct {
	// Position is the strategy's signed net position in the symbol.
	Position int64
	// ReferencePrice prices market orders for the notional check; the
	// caller passes the relevant top of book, or InvalidPrice when the
	// book is empty.
	ReferencePrice model.Price
	// Now is the current simulated time.
	Now model.Timestamp
}

// Decision is the outcome of evaluating one request.
type Decision struct {
	Action Action
	Reason Reason
}

// Engine evaluates risk decisions. Single-threaded: only the dispatch
// loop calls it.
type Engine struct {
	cfg             Config
	rateWindowStart model.Timestamp
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, rateWindowStart: model.TimestampMin}
}

// Evaluate applies the configured checks to an order request.
func (e *Engine) Evaluate(req event.OrderRequest, view StateView) Decision {
	if e == nil {
		return Decision{Action: ActionAllow}
	}

	if e.cfg.KillSwitch {
		return Decision{Action: ActionDeny, Reason: ReasonKillSwitch}
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		if e.rateWindowStart == model.TimestampMin || view.Now.Sub(e.rateWindowStart) >= e.cfg.OrderRateWindow {
			e.rateWindowStart = view.Now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return Decision{Action: ActionDeny, Reason: ReasonRateLimit}
		}
	}

	if e.cfg.MaxOrderQty > 0 && req.Quantity > e.cfg.MaxOrderQty {
		return Decision{Action: ActionDeny, Reason: ReasonMaxQty}
	}

	if e.cfg.MaxOrderNotional > 0 {
		price := req.Price
		if req.Type == model.OrderTypeMarket || model.IsInvalidPrice(price) {
			price = view.ReferencePrice
		}
		if !model.IsInvalidPrice(price) && price > 0 {
			if float64(price)*float64(req.Quantity) > e.cfg.MaxOrderNotional {
				return Decision{Action: ActionDeny, Reason: ReasonMaxNotional}
			}
		}
	}

	if e.cfg.MaxPosition > 0 {
		next := applySide(view.Position, req.Side, req.Quantity)
		if absInt64(next) > int64(e.cfg.MaxPosition) {
			return Decision{Action: ActionDeny, Reason: ReasonPositionLimit}
		}
	}

	return Decision{Action: ActionAllow}
}

func applySide(pos int64, side model.Side, qty model.Quantity) int64 {
	q := int64(qty)
	if q < 0 {
		q = maxInt64
	}
	switch side {
	case model.SideBuy:
		return pos + q
	case model.SideSell:
		return pos - q
	default:
		return pos
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
