package metrics

import (
	"bufio"
	"os"
	"sort"
	"strconv"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/state"
)

// ReportPaths names the three CSV outputs. Empty paths skip that report.
type ReportPaths struct {
	Trades  string
	Latency string
	PnL     string
}

// ReportFinal writes the trades log, latency log and PnL summary. It is
// called once, after the dispatch loop returns.
func (c *Collector) ReportFinal(paths ReportPaths) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if paths.Trades != "" {
		if err := c.writeTradesLocked(paths.Trades); err != nil {
			return errors.Wrap(err, "write trades log")
		}
		logs.Infof("trades log written: %s (%d fills)", paths.Trades, len(c.trades))
	}
	if paths.Latency != "" {
		if err := c.writeLatenciesLocked(paths.Latency); err != nil {
			return errors.Wrap(err, "write latency log")
		}
		logs.Infof("latency log written: %s (%d records)", paths.Latency, len(c.latencies))
	}
	if paths.PnL != "" {
		if err := c.writePnLLocked(paths.PnL); err != nil {
			return errors.Wrap(err, "write pnl summary")
		}
		logs.Infof("pnl summary written: %s", paths.PnL)
	}
	return nil
}

func (c *Collector) writeTradesLocked(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("TimestampNS,StrategyID,Symbol,Side,Price,Quantity,ClientOrderID,ExchangeOrderID\n"); err != nil {
		return err
	}

	var buf []byte
	for _, trade := range c.trades {
		buf = buf[:0]
		buf = trade.Timestamp.AppendString(buf)
		buf = append(buf, ',')
		buf = append(buf, trade.StrategyID...)
		buf = append(buf, ',')
		buf = append(buf, trade.Symbol...)
		buf = append(buf, ',')
		buf = append(buf, trade.Side.String()...)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, float64(trade.Price), 'f', 5, 64)
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, uint64(trade.Quantity), 10)
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, uint64(trade.ClientOrderID), 10)
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, uint64(trade.ExchangeOrderID), 10)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (c *Collector) writeLatenciesLocked(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("EventTimestampNS,SourceDescription,LatencyNS,Notes\n"); err != nil {
		return err
	}

	var buf []byte
	for _, rec := range c.latencies {
		buf = buf[:0]
		buf = rec.EventTime.AppendString(buf)
		buf = append(buf, ',')
		buf = append(buf, rec.Source...)
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, rec.Latency.Nanoseconds(), 10)
		buf = append(buf, ',')
		buf = append(buf, rec.Notes...)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (c *Collector) writePnLLocked(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("StrategyID,Symbol,FinalPosition,TotalVolumeTraded\n"); err != nil {
		return err
	}

	type row struct {
		key state.Key
		pos state.Position
	}
	rows := make([]row, 0, c.positions.Count())
	c.positions.Each(func(key state.Key, pos state.Position) {
		rows = append(rows, row{key: key, pos: pos})
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].key.StrategyID != rows[j].key.StrategyID {
			return rows[i].key.StrategyID < rows[j].key.StrategyID
		}
		return rows[i].key.Symbol < rows[j].key.Symbol
	})

	var buf []byte
	for _, r := range rows {
		buf = buf[:0]
		buf = append(buf, r.key.StrategyID...)
		buf = append(buf, ',')
		buf = append(buf, r.key.Symbol...)
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, r.pos.Net, 10)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, r.pos.VolumeTraded, 'f', 2, 64)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}
