// Package ops loads the simulator's JSON configuration and resolves it
// into ready-to-use collaborators.
package ops

import (
	"encoding/json"
	"fmt"
	"os"

	"main/internal/latency"
	"main/internal/metrics"
	"main/internal/model"
	"main/internal/risk"
	"main/internal/strategy"
)

// FileConfig mirrors the JSON config layout. Durations are strings
// like "50us"; see model.ParseDuration.
type FileConfig struct {
	Latency         LatencyConfig    `json:"latency"`
	MailboxCapacity int              `json:"mailboxCapacity"`
	Strategies      []StrategyConfig `json:"strategies"`
	Risk            *risk.Config     `json:"risk"`
	Reports         ReportsConfig    `json:"reports"`
	Trace           TraceConfig      `json:"trace"`
	Store           StoreConfig      `json:"store"`
}

// LatencyConfig holds the six latency components as duration strings.
type LatencyConfig struct {
	MarketDataFeed          string `json:"marketDataFeed"`
	StrategyProcessing      string `json:"strategyProcessing"`
	OrderNetworkStratToExch string `json:"orderNetworkStratToExch"`
	ExchangeOrderProcessing string `json:"exchangeOrderProcessing"`
	ExchangeFillProcessing  string `json:"exchangeFillProcessing"`
	AckNetworkExchToStrat   string `json:"ackNetworkExchToStrat"`
}

// StrategyConfig describes one registered strategy.
type StrategyConfig struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity uint64  `json:"quantity"`
	Offset   float64 `json:"offset"`
}

// ReportsConfig names the CSV outputs.
type ReportsConfig struct {
	Trades  string `json:"trades"`
	Latency string `json:"latency"`
	PnL     string `json:"pnl"`
}

// TraceConfig enables the event-trace WAL when Dir is set.
type TraceConfig struct {
	Dir        string `json:"dir"`
	FilePrefix string `json:"filePrefix"`
}

// StoreConfig enables Postgres trade persistence when DSN is set.
type StoreConfig struct {
	DSN string `json:"dsn"`
}

// StrategySpec is a resolved strategy registration.
type StrategySpec struct {
	ID      model.StrategyID
	Factory strategy.Factory
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Latency         latency.Config
	MailboxCapacity int
	Strategies      []StrategySpec
	Risk            *risk.Config
	Reports         metrics.ReportPaths
	TraceDir        string
	TracePrefix     string
	StoreDSN        string
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// Resolve validates a FileConfig and builds the Loaded form.
func Resolve(cfg FileConfig) (Loaded, error) {
	latencyCfg, err := resolveLatency(cfg.Latency)
	if err != nil {
		return Loaded{}, err
	}
	if cfg.MailboxCapacity < 0 {
		return Loaded{}, fmt.Errorf("mailboxCapacity must be >= 0")
	}

	specs := make([]StrategySpec, 0, len(cfg.Strategies))
	seen := make(map[string]bool, len(cfg.Strategies))
	for _, sc := range cfg.Strategies {
		spec, err := resolveStrategy(sc)
		if err != nil {
			return Loaded{}, err
		}
		if seen[sc.ID] {
			return Loaded{}, fmt.Errorf("duplicate strategy id: %s", sc.ID)
		}
		seen[sc.ID] = true
		specs = append(specs, spec)
	}

	return Loaded{
		Latency:         latencyCfg,
		MailboxCapacity: cfg.MailboxCapacity,
		Strategies:      specs,
		Risk:            cfg.Risk,
		Reports: metrics.ReportPaths{
			Trades:  cfg.Reports.Trades,
			Latency: cfg.Reports.Latency,
			PnL:     cfg.Reports.PnL,
		},
		TraceDir:    cfg.Trace.Dir,
		TracePrefix: cfg.Trace.FilePrefix,
		StoreDSN:    cfg.Store.DSN,
	}, nil
}

func resolveLatency(cfg LatencyConfig) (latency.Config, error) {
	parse := func(name, value string) (model.Duration, error) {
		d, err := model.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("latency.%s: %w", name, err)
		}
		if d < 0 {
			return 0, fmt.Errorf("latency.%s must be >= 0", name)
		}
		return d, nil
	}

	var out latency.Config
	var err error
	if out.MarketDataFeed, err = parse("marketDataFeed", cfg.MarketDataFeed); err != nil {
		return out, err
	}
	if out.StrategyProcessing, err = parse("strategyProcessing", cfg.StrategyProcessing); err != nil {
		return out, err
	}
	if out.OrderNetworkStratToExch, err = parse("orderNetworkStratToExch", cfg.OrderNetworkStratToExch); err != nil {
		return out, err
	}
	if out.ExchangeOrderProcessing, err = parse("exchangeOrderProcessing", cfg.ExchangeOrderProcessing); err != nil {
		return out, err
	}
	if out.ExchangeFillProcessing, err = parse("exchangeFillProcessing", cfg.ExchangeFillProcessing); err != nil {
		return out, err
	}
	if out.AckNetworkExchToStrat, err = parse("ackNetworkExchToStrat", cfg.AckNetworkExchToStrat); err != nil {
		return out, err
	}
	return out, nil
}

func resolveStrategy(cfg StrategyConfig) (StrategySpec, error) {
	if cfg.ID == "" {
		return StrategySpec{}, fmt.Errorf("strategy id is empty")
	}
	if cfg.Symbol == "" {
		return StrategySpec{}, fmt.Errorf("strategy %s: symbol is empty", cfg.ID)
	}
	if cfg.Quantity == 0 {
		return StrategySpec{}, fmt.Errorf("strategy %s: quantity must be > 0", cfg.ID)
	}

	var side model.Side
	switch cfg.Side {
	case "BUY", "buy", "":
		side = model.SideBuy
	case "SELL", "sell":
		side = model.SideSell
	default:
		return StrategySpec{}, fmt.Errorf("strategy %s: unknown side %q", cfg.ID, cfg.Side)
	}

	var factory strategy.Factory
	switch cfg.Kind {
	case "market-sweep", "":
		factory = strategy.NewMarketSweep(cfg.Symbol, side, model.Quantity(cfg.Quantity))
	case "limit-on-quote":
		factory = strategy.NewLimitOnQuote(cfg.Symbol, side, model.Quantity(cfg.Quantity), model.Price(cfg.Offset))
	default:
		return StrategySpec{}, fmt.Errorf("strategy %s: unknown kind %q", cfg.ID, cfg.Kind)
	}

	return StrategySpec{ID: model.StrategyID(cfg.ID), Factory: factory}, nil
}
