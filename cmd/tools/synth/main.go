package main

import (
	"flag"
	"os"
	"strings"

	"github.com/yanun0323/logs"

	"main/internal/mdg"
)

func main() {
	out := flag.String("out", "ticks.csv", "Output CSV path")
	symbols := flag.String("symbols", "EURUSD", "Comma-separated symbol list")
	seed := flag.Int64("seed", 1, "Random walk seed")
	startTs := flag.Int64("start-ts", 1_000_000_000, "First timestamp (epoch ns)")
	intervalNs := flag.Int64("interval", 100_000, "Nanoseconds between records")
	count := flag.Int("count", 10_000, "Number of records")
	basePips := flag.Int64("base-pips", 107_105, "Starting mid price in pips")
	spreadPips := flag.Int64("spread-pips", 3, "Half-spread in pips")
	maxStepPips := flag.Int64("max-step-pips", 5, "Max mid move per record in pips")
	priceScale := flag.Int("price-scale", 5, "Decimal places per pip")
	baseSize := flag.Uint64("base-size", 100_000, "Quoted size per side")
	tradeEvery := flag.Int("trade-every", 10, "Emit a trade every N records (0=quotes only)")
	malformedPct := flag.Int("malformed-pct", 0, "Percent of deliberately malformed records")
	flag.Parse()

	gen, err := mdg.NewGenerator(mdg.Config{
		Symbols:      strings.Split(*symbols, ","),
		Seed:         *seed,
		StartTs:      *startTs,
		IntervalNs:   *intervalNs,
		Count:        *count,
		BasePips:     *basePips,
		SpreadPips:   *spreadPips,
		MaxStepPips:  *maxStepPips,
		PriceScale:   *priceScale,
		BaseSize:     *baseSize,
		TradeEvery:   *tradeEvery,
		MalformedPct: *malformedPct,
	})
	if err != nil {
		logs.Errorf("bad generator config: %+v", err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		logs.Errorf("create output: %+v", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := gen.WriteCSV(f); err != nil {
		logs.Errorf("write ticks: %+v", err)
		os.Exit(1)
	}
	logs.Infof("wrote %d records to %s", *count, *out)
}
