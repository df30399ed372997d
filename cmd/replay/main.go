package main

import (
	"flag"
	"os"

	"github.com/google/uuid"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/dispatch"
	"main/internal/feed"
	"main/internal/latency"
	"main/internal/metrics"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/risk"
	"main/internal/store"
	"main/internal/strategy"
)

func main() {
	dataPath := flag.String("data", "", "Path to tick data CSV (required)")
	configPath := flag.String("config", "", "Path to JSON config")

	mdLatency := flag.String("md-latency", "", "Market data feed latency (e.g. 50us)")
	stratLatency := flag.String("strat-latency", "", "Strategy processing latency")
	orderNet := flag.String("order-net", "", "Order network latency, strategy to exchange")
	exchAck := flag.String("exch-ack", "", "Exchange order processing latency")
	exchFill := flag.String("exch-fill", "", "Exchange fill processing latency")
	ackNet := flag.String("ack-net", "", "Ack network latency, exchange to strategy")

	tradesOut := flag.String("trades-out", "", "Trades log output (default sim_trades.csv without -config)")
	latencyOut := flag.String("latency-out", "", "Latency log output (default sim_latency.csv without -config)")
	pnlOut := flag.String("pnl-out", "", "PnL summary output (default sim_pnl.csv without -config)")

	mailboxCap := flag.Int("mailbox-capacity", 0, "Strategy mailbox capacity (0=default)")
	traceDir := flag.String("trace-dir", "", "Event trace WAL directory (empty=disabled)")
	pgDSN := flag.String("pg-dsn", "", "Postgres DSN for trade persistence (empty=disabled)")
	pyroscopeAddr := flag.String("pyroscope-addr", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	if *dataPath == "" {
		logs.Error("usage: replay -data <ticks.csv> [-config sim.json] [flags]")
		os.Exit(1)
	}

	loaded, err := loadConfig(*configPath)
	if err != nil {
		logs.Errorf("config load failed: %+v", err)
		os.Exit(1)
	}
	if err := applyLatencyFlags(&loaded,
		*mdLatency, *stratLatency, *orderNet, *exchAck, *exchFill, *ackNet); err != nil {
		logs.Errorf("bad latency flag: %+v", err)
		os.Exit(1)
	}
	applyOutputFlags(&loaded, *tradesOut, *latencyOut, *pnlOut, *traceDir, *pgDSN)
	if *mailboxCap > 0 {
		loaded.MailboxCapacity = *mailboxCap
	}

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "market-replay",
			ServerAddress:   *pyroscopeAddr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("pyroscope start failed: %+v", err)
			os.Exit(1)
		}
		defer func() { _ = profiler.Stop() }()
	}

	if err := run(*dataPath, loaded); err != nil {
		logs.Errorf("simulation failed: %+v", err)
		os.Exit(1)
	}
}

func run(dataPath string, loaded ops.Loaded) error {
	runID := uuid.New().String()
	logs.Infof("market replay starting: run=%s data=%s", runID, dataPath)

	latencyModel, err := latency.New(loaded.Latency)
	if err != nil {
		return err
	}

	parser, err := feed.NewParser(dataPath)
	if err != nil {
		return err
	}
	defer parser.Close()

	var trace *recorder.Trace
	if loaded.TraceDir != "" {
		cfg := recorder.DefaultConfig(loaded.TraceDir)
		cfg.FilePrefix = loaded.TracePrefix
		cfg.RunID = runID[:8]
		trace, err = recorder.NewTrace(cfg)
		if err != nil {
			return err
		}
		defer trace.Close()
	}

	var riskEngine *risk.Engine
	if loaded.Risk != nil {
		riskEngine = risk.NewEngine(*loaded.Risk)
	}

	collector := metrics.NewCollector()
	engineMetrics := obs.NewMetrics()
	d := dispatch.New(dispatch.Config{
		Latency:         latencyModel,
		MailboxCapacity: loaded.MailboxCapacity,
		Metrics:         collector,
		Obs:             engineMetrics,
		Risk:            riskEngine,
		Trace:           trace,
	})

	specs := loaded.Strategies
	if len(specs) == 0 {
		specs = []ops.StrategySpec{{
			ID:      "basic-1",
			Factory: strategy.NewMarketSweep("EURUSD", model.SideBuy, 1_000),
		}}
	}
	for _, spec := range specs {
		if err := d.AddStrategy(spec.ID, spec.Factory); err != nil {
			return err
		}
	}

	go func() {
		<-sys.Shutdown()
		logs.Warn("interrupt received, stopping simulation")
		d.RequestStop()
	}()

	runErr := d.Run(parser)
	if parser.Skipped() > 0 {
		logs.Warnf("feed: skipped %d malformed records", parser.Skipped())
	}

	// Reports flush even after a failed run; partial results still
	// matter for diagnosis.
	if err := collector.ReportFinal(loaded.Reports); err != nil {
		if runErr == nil {
			return err
		}
		logs.Errorf("report write failed: %+v", err)
	}
	if runErr != nil {
		return runErr
	}

	if loaded.StoreDSN != "" {
		if err := persistTrades(loaded.StoreDSN, runID, collector); err != nil {
			// The CSV reports are the source of truth; persistence is
			// best-effort.
			logs.Errorf("trade persistence failed: %+v", err)
		}
	}

	snap := engineMetrics.Snapshot()
	logs.Infof("run %s complete: events=%v acks=%d fills=%d drops=%d panics=%d fill_ack_latency=%+v",
		runID[:8], snap.EventCounts, snap.AcksEmitted, snap.FillsEmitted,
		snap.MailboxDrops, snap.WorkerPanics, snap.FillAckLatency)
	return nil
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return ops.Loaded{
			Reports: metrics.ReportPaths{
				Trades:  "sim_trades.csv",
				Latency: "sim_latency.csv",
				PnL:     "sim_pnl.csv",
			},
		}, nil
	}
	return ops.Load(path)
}

func applyLatencyFlags(loaded *ops.Loaded, md, strat, orderNet, exchAck, exchFill, ackNet string) error {
	set := func(dst *model.Duration, value string) error {
		if value == "" {
			return nil
		}
		d, err := model.ParseDuration(value)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
	if err := set(&loaded.Latency.MarketDataFeed, md); err != nil {
		return err
	}
	if err := set(&loaded.Latency.StrategyProcessing, strat); err != nil {
		return err
	}
	if err := set(&loaded.Latency.OrderNetworkStratToExch, orderNet); err != nil {
		return err
	}
	if err := set(&loaded.Latency.ExchangeOrderProcessing, exchAck); err != nil {
		return err
	}
	if err := set(&loaded.Latency.ExchangeFillProcessing, exchFill); err != nil {
		return err
	}
	return set(&loaded.Latency.AckNetworkExchToStrat, ackNet)
}

func applyOutputFlags(loaded *ops.Loaded, trades, latencyOut, pnl, traceDir, pgDSN string) {
	if trades != "" {
		loaded.Reports.Trades = trades
	}
	if latencyOut != "" {
		loaded.Reports.Latency = latencyOut
	}
	if pnl != "" {
		loaded.Reports.PnL = pnl
	}
	if traceDir != "" {
		loaded.TraceDir = traceDir
	}
	if pgDSN != "" {
		loaded.StoreDSN = pgDSN
	}
}

func persistTrades(dsn, runID string, collector *metrics.Collector) error {
	tradeStore, err := store.Open(dsn)
	if err != nil {
		return err
	}
	defer tradeStore.Close()

	trades := collector.Trades()
	if err := tradeStore.SaveTrades(runID, trades); err != nil {
		return err
	}
	logs.Infof("persisted %d trades to postgres (run=%s)", len(trades), runID[:8])
	return nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
