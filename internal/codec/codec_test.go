package codec

import (
	"testing"

	"main/internal/event"
	"main/internal/model"
)

func TestQuoteRoundTrip(t *testing.T) {
	orig := &event.Quote{
		TsExchange: 1_000_000_000,
		TsArrival:  1_000_050_000,
		Symbol:     "EURUSD",
		BidPrice:   1.07100,
		BidSize:    100_000,
		AskPrice:   1.07105,
		AskSize:    100_000,
	}

	encoded := EncodeQuote(nil, orig)
	decoded, ok := DecodeQuote(encoded)
	if !ok {
		t.Fatal("decode quote failed")
	}
	if *decoded != *orig {
		t.Fatalf("quote round-trip mismatch: got %+v want %+v", decoded, orig)
	}
}

func TestOrderAckRoundTrip(t *testing.T) {
	orig := &event.OrderAck{
		TsArrival:       1_000_110_000,
		StrategyID:      "sweep-1",
		ClientOrderID:   1,
		ExchangeOrderID: 7,
		Symbol:          "EURUSD",
		Status:          model.OrderStatusFilled,
		LastFillPrice:   1.07105,
		LastFillQty:     1_000,
		CumQty:          1_000,
		LeavesQty:       0,
	}

	encoded := EncodeOrderAck(nil, orig)
	decoded, ok := DecodeOrderAck(encoded)
	if !ok {
		t.Fatal("decode ack failed")
	}
	if *decoded != *orig {
		t.Fatalf("ack round-trip mismatch: got %+v want %+v", decoded, orig)
	}
}

func TestControlRoundTrip(t *testing.T) {
	encoded := EncodeControl(nil, 42, event.ControlShutdown, "sweep-1")
	ts, control, target, ok := DecodeControl(encoded)
	if !ok {
		t.Fatal("decode control failed")
	}
	if ts != 42 || control != event.ControlShutdown || target != "sweep-1" {
		t.Fatalf("control round-trip mismatch: %d %v %s", ts, control, target)
	}
}

func TestDecodeRejectsShortPayloads(t *testing.T) {
	if _, ok := DecodeQuote([]byte{1, 2, 3}); ok {
		t.Fatal("short quote should fail")
	}
	if _, ok := DecodeTrade(nil); ok {
		t.Fatal("nil trade should fail")
	}
	full := EncodeTrade(nil, &event.Trade{Symbol: "EURUSD"})
	if _, ok := DecodeTrade(full[:len(full)-3]); ok {
		t.Fatal("truncated symbol should fail")
	}
}
