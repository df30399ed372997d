// Package book holds per-symbol top-of-book state. One resting level
// per side is all the matching model needs: fills execute at the top
// price, never at depth.
package book

import (
	"main/internal/event"
	"main/internal/model"
)

// TopOfBook is the best bid and ask for one symbol. Each side is
// independently present or absent; when present, price and size are
// strictly positive.
type TopOfBook struct {
	symbol   string
	bidPrice model.Price
	bidSize  model.Quantity
	askPrice model.Price
	askSize  model.Quantity
	hasBid   bool
	hasAsk   bool
}

// NewTopOfBook creates an empty book for one symbol.
func NewTopOfBook(symbol string) *TopOfBook {
	return &TopOfBook{symbol: symbol}
}

func (b *TopOfBook) Symbol() string { return b.symbol }

// Bid returns the resting bid, if present.
func (b *TopOfBook) Bid() (model.Price, model.Quantity, bool) {
	return b.bidPrice, b.bidSize, b.hasBid
}

// Ask returns the resting ask, if present.
func (b *TopOfBook) Ask() (model.Price, model.Quantity, bool) {
	return b.askPrice, b.askSize, b.hasAsk
}

// ApplyQuote overwrites each side from the quote. A side with a
// non-positive price or size is cleared. Trades never touch the book.
func (b *TopOfBook) ApplyQuote(q *event.Quote) {
	if q.Symbol != b.symbol {
		return
	}

	if !model.IsInvalidPrice(q.BidPrice) && q.BidPrice > 0 && q.BidSize > 0 {
		b.bidPrice = q.BidPrice
		b.bidSize = q.BidSize
		b.hasBid = true
	} else {
		b.hasBid = false
	}

	if !model.IsInvalidPrice(q.AskPrice) && q.AskPrice > 0 && q.AskSize > 0 {
		b.askPrice = q.AskPrice
		b.askSize = q.AskSize
		b.hasAsk = true
	} else {
		b.hasAsk = false
	}
}

// MatchMarket fills a market order against the opposite top. The fill
// price is the resting price; the fill quantity is min(qty, top size).
// A consumed level is cleared. No liquidity returns (InvalidPrice, 0).
func (b *TopOfBook) MatchMarket(side model.Side, qty model.Quantity) (model.Price, model.Quantity) {
	if qty == 0 {
		return model.InvalidPrice(), 0
	}
	if side == model.SideBuy {
		return b.consumeAsk(qty)
	}
	return b.consumeBid(qty)
}

// MatchLimit fills a limit order iff it crosses the opposite top
// (within epsilon). Aggressive limits fill exactly like markets, at
// the resting price rather than the limit. Passive limits return
// (InvalidPrice, 0) and are not retained.
func (b *TopOfBook) MatchLimit(side model.Side, limitPx model.Price, qty model.Quantity) (model.Price, model.Quantity) {
	if qty == 0 || model.IsInvalidPrice(limitPx) {
		return model.InvalidPrice(), 0
	}
	if side == model.SideBuy {
		if b.hasAsk && float64(limitPx) >= float64(b.askPrice)-model.PriceEpsilon {
			return b.consumeAsk(qty)
		}
		return model.InvalidPrice(), 0
	}
	if b.hasBid && float64(limitPx) <= float64(b.bidPrice)+model.PriceEpsilon {
		return b.consumeBid(qty)
	}
	return model.InvalidPrice(), 0
}

func (b *TopOfBook) consumeAsk(qty model.Quantity) (model.Price, model.Quantity) {
	if !b.hasAsk {
		return model.InvalidPrice(), 0
	}
	px := b.askPrice
	filled := qty
	if b.askSize < filled {
		filled = b.askSize
	}
	b.askSize -= filled
	if b.askSize == 0 {
		b.hasAsk = false
	}
	return px, filled
}

func (b *TopOfBook) consumeBid(qty model.Quantity) (model.Price, model.Quantity) {
	if !b.hasBid {
		return model.InvalidPrice(), 0
	}
	px := b.bidPrice
	filled := qty
	if b.bidSize < filled {
		filled = b.bidSize
	}
	b.bidSize -= filled
	if b.bidSize == 0 {
		b.hasBid = false
	}
	return px, filled
}

// Store maps symbols to their books, creating entries lazily. Only the
// dispatch thread touches it.
type Store struct {
	books map[string]*TopOfBook
}

// NewStore creates an empty book store.
func NewStore() *Store {
	return &Store{books: make(map[string]*TopOfBook)}
}

// Get returns the book for a symbol, creating it on first reference.
func (s *Store) Get(symbol string) *TopOfBook {
	b, ok := s.books[symbol]
	if !ok {
		b = NewTopOfBook(symbol)
		s.books[symbol] = b
	}
	return b
}

// Len returns the number of symbols seen so far.
func (s *Store) Len() int { return len(s.books) }
