// Package mdg generates synthetic tick files in the simulator's input
// format: a deterministic random-walk of quotes with occasional trades,
// ascending epoch-nanosecond timestamps, prices rendered as scaled
// integers so generated ladders stay on exact ticks.
package mdg

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"main/internal/model"
)

const header = "TYPE,TIMESTAMP_NS,SYMBOL,PRICE,SIZE,BID_PRICE,BID_SIZE,ASK_PRICE,ASK_SIZE\n"

// Config controls generation. Prices are integer pips scaled by
// PriceScale decimal places.
type Config struct {
	Symbols      []string
	Seed         int64
	StartTs      int64
	IntervalNs   int64
	Count        int
	BasePips     int64
	SpreadPips   int64
	MaxStepPips  int64
	PriceScale   int
	BaseSize     uint64
	TradeEvery   int
	MalformedPct int
}

// Validate rejects unusable configurations.
func (c Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("mdg config: no symbols")
	}
	if c.Count <= 0 {
		return fmt.Errorf("mdg config: count must be > 0")
	}
	if c.IntervalNs <= 0 {
		return fmt.Errorf("mdg config: interval must be > 0")
	}
	if c.BasePips <= 0 || c.SpreadPips < 0 || c.MaxStepPips < 0 {
		return fmt.Errorf("mdg config: bad price parameters")
	}
	if c.PriceScale < 0 {
		return fmt.Errorf("mdg config: price scale must be >= 0")
	}
	if c.MalformedPct < 0 || c.MalformedPct > 100 {
		return fmt.Errorf("mdg config: malformedPct must be within [0,100]")
	}
	return nil
}

// Generator walks one mid price per symbol.
type Generator struct {
	cfg  Config
	rng  *rand.Rand
	mids []int64
	ts   int64
	buf  []byte
}

// NewGenerator validates the config and seeds the walk.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseSize == 0 {
		cfg.BaseSize = 100_000
	}
	mids := make([]int64, len(cfg.Symbols))
	for i := range mids {
		mids[i] = cfg.BasePips
	}
	return &Generator{
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
		mids: mids,
		ts:   cfg.StartTs,
	}, nil
}

// WriteCSV emits the header plus Count records.
func (g *Generator) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(header); err != nil {
		return err
	}
	for i := 0; i < g.cfg.Count; i++ {
		if _, err := bw.Write(g.nextLine(i)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (g *Generator) nextLine(i int) []byte {
	symIdx := i % len(g.cfg.Symbols)
	symbol := g.cfg.Symbols[symIdx]
	g.ts += g.cfg.IntervalNs

	if g.cfg.MalformedPct > 0 && g.rng.Intn(100) < g.cfg.MalformedPct {
		g.buf = g.buf[:0]
		g.buf = append(g.buf, "GARBAGE,"...)
		g.buf = strconv.AppendInt(g.buf, g.ts, 10)
		g.buf = append(g.buf, ',')
		g.buf = append(g.buf, symbol...)
		g.buf = append(g.buf, '\n')
		return g.buf
	}

	if g.cfg.MaxStepPips > 0 {
		step := g.rng.Int63n(2*g.cfg.MaxStepPips+1) - g.cfg.MaxStepPips
		g.mids[symIdx] += step
		if g.mids[symIdx] <= g.cfg.SpreadPips {
			g.mids[symIdx] = g.cfg.SpreadPips + 1
		}
	}
	mid := g.mids[symIdx]

	if g.cfg.TradeEvery > 0 && i%g.cfg.TradeEvery == g.cfg.TradeEvery-1 {
		return g.tradeLine(symbol, mid)
	}
	return g.quoteLine(symbol, mid)
}

func (g *Generator) quoteLine(symbol string, mid int64) []byte {
	bid := mid - g.cfg.SpreadPips
	ask := mid + g.cfg.SpreadPips
	size := g.cfg.BaseSize

	g.buf = g.buf[:0]
	g.buf = append(g.buf, "QUOTE,"...)
	g.buf = strconv.AppendInt(g.buf, g.ts, 10)
	g.buf = append(g.buf, ',')
	g.buf = append(g.buf, symbol...)
	g.buf = append(g.buf, ",,,"...)
	g.buf = model.AppendScaledInt(g.buf, bid, g.cfg.PriceScale)
	g.buf = append(g.buf, ',')
	g.buf = strconv.AppendUint(g.buf, size, 10)
	g.buf = append(g.buf, ',')
	g.buf = model.AppendScaledInt(g.buf, ask, g.cfg.PriceScale)
	g.buf = append(g.buf, ',')
	g.buf = strconv.AppendUint(g.buf, size, 10)
	g.buf = append(g.buf, '\n')
	return g.buf
}

func (g *Generator) tradeLine(symbol string, mid int64) []byte {
	size := g.cfg.BaseSize / 100
	if size == 0 {
		size = 1
	}

	g.buf = g.buf[:0]
	g.buf = append(g.buf, "TRADE,"...)
	g.buf = strconv.AppendInt(g.buf, g.ts, 10)
	g.buf = append(g.buf, ',')
	g.buf = append(g.buf, symbol...)
	g.buf = append(g.buf, ',')
	g.buf = model.AppendScaledInt(g.buf, mid, g.cfg.PriceScale)
	g.buf = append(g.buf, ',')
	g.buf = strconv.AppendUint(g.buf, size, 10)
	g.buf = append(g.buf, '\n')
	return g.buf
}
