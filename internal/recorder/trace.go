package recorder

import (
	"main/internal/codec"
	"main/internal/event"
)

// Trace records dispatched events in order. A nil Trace is a no-op, so
// the dispatcher can carry one unconditionally.
type Trace struct {
	w       *Writer
	seq     uint64
	payload []byte
}

// NewTrace opens a trace under the given config.
func NewTrace(cfg Config) (*Trace, error) {
	w, err := NewWriter(cfg)
	if err != nil {
		return nil, err
	}
	return &Trace{w: w}, nil
}

// AppendEvent serializes and appends one dispatched event.
func (t *Trace) AppendEvent(ev event.Event) error {
	if t == nil {
		return nil
	}

	t.payload = t.payload[:0]
	switch e := ev.(type) {
	case *event.Quote:
		t.payload = codec.EncodeQuote(t.payload, e)
	case *event.Trade:
		t.payload = codec.EncodeTrade(t.payload, e)
	case *event.OrderAck:
		t.payload = codec.EncodeOrderAck(t.payload, e)
	case *event.DispatcherControl:
		t.payload = codec.EncodeControl(t.payload, e.TsArrival, e.Control, "")
	case *event.StrategyControl:
		t.payload = codec.EncodeControl(t.payload, e.TsArrival, e.Control, e.TargetStrategyID)
	default:
		return nil
	}

	t.seq++
	return t.w.Append(RecordHeader{
		Kind:        ev.Kind(),
		Seq:         t.seq,
		TsEffective: ev.EffectiveTS(),
	}, t.payload)
}

// Close flushes the trace. Safe on nil.
func (t *Trace) Close() error {
	if t == nil {
		return nil
	}
	return t.w.Close()
}
