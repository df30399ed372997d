package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
)

func TestRecordTradeTracksPositions(t *testing.T) {
	c := NewCollector()
	c.RecordTrade(SimulatedTrade{
		Timestamp:  1_000_110_000,
		StrategyID: "s1",
		Symbol:     "EURUSD",
		Side:       model.SideBuy,
		Price:      1.07105,
		Quantity:   1_000,
	})
	c.RecordTrade(SimulatedTrade{
		Timestamp:  1_000_120_000,
		StrategyID: "s1",
		Symbol:     "EURUSD",
		Side:       model.SideSell,
		Price:      1.07110,
		Quantity:   300,
	})

	require.Len(t, c.Trades(), 2)
	assert.Equal(t, int64(700), c.positions.Net("s1", "EURUSD"))
}

func TestReportFinalWritesCSVs(t *testing.T) {
	dir := t.TempDir()
	paths := ReportPaths{
		Trades:  filepath.Join(dir, "trades.csv"),
		Latency: filepath.Join(dir, "latency.csv"),
		PnL:     filepath.Join(dir, "pnl.csv"),
	}

	c := NewCollector()
	c.RecordTrade(SimulatedTrade{
		Timestamp:       1_000_110_000,
		StrategyID:      "s1",
		Symbol:          "EURUSD",
		Side:            model.SideBuy,
		Price:           1.07105,
		Quantity:        1_000,
		ClientOrderID:   1,
		ExchangeOrderID: 1,
	})
	c.RecordLatency("s1_OrderFillAckLatency", 60*model.Microsecond, 1_000_110_000)

	require.NoError(t, c.ReportFinal(paths))

	trades, err := os.ReadFile(paths.Trades)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(trades)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "TimestampNS,StrategyID,Symbol,Side,Price,Quantity,ClientOrderID,ExchangeOrderID", lines[0])
	assert.Equal(t, "1000110000,s1,EURUSD,BUY,1.07105,1000,1,1", lines[1])

	latency, err := os.ReadFile(paths.Latency)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(latency)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1000110000,s1_OrderFillAckLatency,60000,", lines[1])

	pnl, err := os.ReadFile(paths.PnL)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(pnl)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "s1,EURUSD,1000,1071.05", lines[1])
}

func TestEmptyPathsSkipReports(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.ReportFinal(ReportPaths{}))
}
