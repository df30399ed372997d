// Package codec serializes simulator events into the fixed-layout
// binary payloads carried by the trace WAL. Layouts are little-endian;
// symbols and strategy ids are length-prefixed because they are the
// only variable-width fields.
package codec

import (
	"encoding/binary"
	"math"

	"main/internal/event"
	"main/internal/model"
)

const quoteFixedSize = 8 + 8 + 8 + 8 + 8 + 8 // ts pair + two px/sz pairs

// EncodeQuote serializes a quote payload.
func EncodeQuote(dst []byte, q *event.Quote) []byte {
	dst = appendUint64(dst, uint64(q.TsExchange))
	dst = appendUint64(dst, uint64(q.TsArrival))
	dst = appendFloat64(dst, float64(q.BidPrice))
	dst = appendUint64(dst, uint64(q.BidSize))
	dst = appendFloat64(dst, float64(q.AskPrice))
	dst = appendUint64(dst, uint64(q.AskSize))
	dst = appendString(dst, q.Symbol)
	return dst
}

// DecodeQuote parses a quote payload.
func DecodeQuote(src []byte) (*event.Quote, bool) {
	if len(src) < quoteFixedSize {
		return nil, false
	}
	q := &event.Quote{
		TsExchange: model.Timestamp(binary.LittleEndian.Uint64(src[0:8])),
		TsArrival:  model.Timestamp(binary.LittleEndian.Uint64(src[8:16])),
		BidPrice:   model.Price(math.Float64frombits(binary.LittleEndian.Uint64(src[16:24]))),
		BidSize:    model.Quantity(binary.LittleEndian.Uint64(src[24:32])),
		AskPrice:   model.Price(math.Float64frombits(binary.LittleEndian.Uint64(src[32:40]))),
		AskSize:    model.Quantity(binary.LittleEndian.Uint64(src[40:48])),
	}
	symbol, _, ok := readString(src[quoteFixedSize:])
	if !ok {
		return nil, false
	}
	q.Symbol = symbol
	return q, true
}

const tradeFixedSize = 8 + 8 + 8 + 8

// EncodeTrade serializes a trade payload.
func EncodeTrade(dst []byte, t *event.Trade) []byte {
	dst = appendUint64(dst, uint64(t.TsExchange))
	dst = appendUint64(dst, uint64(t.TsArrival))
	dst = appendFloat64(dst, float64(t.Price))
	dst = appendUint64(dst, uint64(t.Size))
	dst = appendString(dst, t.Symbol)
	return dst
}

// DecodeTrade parses a trade payload.
func DecodeTrade(src []byte) (*event.Trade, bool) {
	if len(src) < tradeFixedSize {
		return nil, false
	}
	t := &event.Trade{
		TsExchange: model.Timestamp(binary.LittleEndian.Uint64(src[0:8])),
		TsArrival:  model.Timestamp(binary.LittleEndian.Uint64(src[8:16])),
		Price:      model.Price(math.Float64frombits(binary.LittleEndian.Uint64(src[16:24]))),
		Size:       model.Quantity(binary.LittleEndian.Uint64(src[24:32])),
	}
	symbol, _, ok := readString(src[tradeFixedSize:])
	if !ok {
		return nil, false
	}
	t.Symbol = symbol
	return t, true
}

const orderAckFixedSize = 8 + 8 + 8 + 1 + 8 + 8 + 8 + 8

// EncodeOrderAck serializes an acknowledgement payload.
func EncodeOrderAck(dst []byte, a *event.OrderAck) []byte {
	dst = appendUint64(dst, uint64(a.TsArrival))
	dst = appendUint64(dst, uint64(a.ClientOrderID))
	dst = appendUint64(dst, uint64(a.ExchangeOrderID))
	dst = append(dst, byte(a.Status))
	dst = appendFloat64(dst, float64(a.LastFillPrice))
	dst = appendUint64(dst, uint64(a.LastFillQty))
	dst = appendUint64(dst, uint64(a.CumQty))
	dst = appendUint64(dst, uint64(a.LeavesQty))
	dst = appendString(dst, string(a.StrategyID))
	dst = appendString(dst, a.Symbol)
	return dst
}

// DecodeOrderAck parses an acknowledgement payload.
func DecodeOrderAck(src []byte) (*event.OrderAck, bool) {
	if len(src) < orderAckFixedSize {
		return nil, false
	}
	a := &event.OrderAck{
		TsArrival:       model.Timestamp(binary.LittleEndian.Uint64(src[0:8])),
		ClientOrderID:   model.OrderID(binary.LittleEndian.Uint64(src[8:16])),
		ExchangeOrderID: model.OrderID(binary.LittleEndian.Uint64(src[16:24])),
		Status:          model.OrderStatus(src[24]),
		LastFillPrice:   model.Price(math.Float64frombits(binary.LittleEndian.Uint64(src[25:33]))),
		LastFillQty:     model.Quantity(binary.LittleEndian.Uint64(src[33:41])),
		CumQty:          model.Quantity(binary.LittleEndian.Uint64(src[41:49])),
		LeavesQty:       model.Quantity(binary.LittleEndian.Uint64(src[49:57])),
	}
	rest := src[orderAckFixedSize:]
	strategyID, n, ok := readString(rest)
	if !ok {
		return nil, false
	}
	symbol, _, ok := readString(rest[n:])
	if !ok {
		return nil, false
	}
	a.StrategyID = model.StrategyID(strategyID)
	a.Symbol = symbol
	return a, true
}

const controlSize = 8 + 1

// EncodeControl serializes either control variant; the target strategy
// is only present for strategy controls.
func EncodeControl(dst []byte, ts model.Timestamp, control event.ControlKind, target model.StrategyID) []byte {
	dst = appendUint64(dst, uint64(ts))
	dst = append(dst, byte(control))
	dst = appendString(dst, string(target))
	return dst
}

// DecodeControl parses a control payload.
func DecodeControl(src []byte) (model.Timestamp, event.ControlKind, model.StrategyID, bool) {
	if len(src) < controlSize {
		return 0, 0, "", false
	}
	ts := model.Timestamp(binary.LittleEndian.Uint64(src[0:8]))
	control := event.ControlKind(src[8])
	target, _, ok := readString(src[controlSize:])
	if !ok {
		return 0, 0, "", false
	}
	return ts, control, model.StrategyID(target), true
}

func appendUint64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

func appendFloat64(dst []byte, v float64) []byte {
	return appendUint64(dst, math.Float64bits(v))
}

func appendString(dst []byte, s string) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(len(s)))
	dst = append(dst, buf[:]...)
	return append(dst, s...)
}

func readString(src []byte) (string, int, bool) {
	if len(src) < 2 {
		return "", 0, false
	}
	n := int(binary.LittleEndian.Uint16(src[0:2]))
	if len(src) < 2+n {
		return "", 0, false
	}
	return string(src[2 : 2+n]), 2 + n, true
}
