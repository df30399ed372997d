package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/yanun0323/logs"

	"main/internal/codec"
	"main/internal/event"
	"main/internal/recorder"
)

func main() {
	dir := flag.String("dir", "", "Trace WAL directory (required)")
	prefix := flag.String("prefix", "", "Trace file prefix (default: trace)")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	flag.Parse()

	if *dir == "" {
		logs.Error("usage: trace -dir <trace-dir> [-prefix trace]")
		os.Exit(1)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	fmt.Fprintln(w, "SEQ,EFFECTIVE_TS,KIND,DETAIL")

	opts := recorder.ReaderOptions{
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	}
	count := 0
	err := recorder.Scan(*dir, *prefix, opts, func(h recorder.RecordHeader, payload []byte) error {
		count++
		fmt.Fprintf(w, "%d,%d,%s,%s\n", h.Seq, h.TsEffective, h.Kind, detail(h.Kind, payload))
		return nil
	})
	if err != nil {
		logs.Errorf("trace scan failed: %+v", err)
		os.Exit(1)
	}
	logs.Infof("dumped %d trace records", count)
}

func detail(kind event.Kind, payload []byte) string {
	switch kind {
	case event.KindQuote:
		q, ok := codec.DecodeQuote(payload)
		if !ok {
			return "decode-error"
		}
		return fmt.Sprintf("%s bid=%g/%d ask=%g/%d", q.Symbol, q.BidPrice, q.BidSize, q.AskPrice, q.AskSize)
	case event.KindTrade:
		t, ok := codec.DecodeTrade(payload)
		if !ok {
			return "decode-error"
		}
		return fmt.Sprintf("%s px=%g sz=%d", t.Symbol, t.Price, t.Size)
	case event.KindOrderAck:
		a, ok := codec.DecodeOrderAck(payload)
		if !ok {
			return "decode-error"
		}
		return fmt.Sprintf("%s %s client=%d exch=%d status=%s fill=%g/%d leaves=%d",
			a.StrategyID, a.Symbol, a.ClientOrderID, a.ExchangeOrderID, a.Status,
			a.LastFillPrice, a.LastFillQty, a.LeavesQty)
	case event.KindDispatcherControl, event.KindStrategyControl:
		_, control, target, ok := codec.DecodeControl(payload)
		if !ok {
			return "decode-error"
		}
		if target != "" {
			return fmt.Sprintf("%s target=%s", control, target)
		}
		return control.String()
	default:
		return "unknown"
	}
}
