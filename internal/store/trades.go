// Package store persists simulation results to Postgres. It is an
// optional sink: the CSV reports remain the source of truth, and
// persistence failures never abort a run.
package store

import (
	"github.com/yanun0323/errors"

	"main/internal/metrics"
	"main/pkg/conn"
)

// TradeRow is the persisted form of one simulated fill.
type TradeRow struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	RunID           string `gorm:"index;size:64"`
	TimestampNS     int64
	StrategyID      string `gorm:"size:128"`
	Symbol          string `gorm:"size:32"`
	Side            string `gorm:"size:8"`
	Price           float64
	Quantity        uint64
	ClientOrderID   uint64
	ExchangeOrderID uint64
}

// TableName fixes the table name regardless of gorm's pluralisation.
func (TradeRow) TableName() string { return "sim_trades" }

// TradeStore writes fill logs into Postgres.
type TradeStore struct {
	client *conn.Client
}

// Open connects and migrates the trades table.
func Open(dsn string) (*TradeStore, error) {
	client, err := conn.New(conn.Option{ConnString: dsn})
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := client.DB().AutoMigrate(&TradeRow{}); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "migrate sim_trades")
	}
	return &TradeStore{client: client}, nil
}

// SaveTrades bulk-inserts one run's fill log.
func (s *TradeStore) SaveTrades(runID string, trades []metrics.SimulatedTrade) error {
	if s == nil || len(trades) == 0 {
		return nil
	}
	rows := make([]TradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, TradeRow{
			RunID:           runID,
			TimestampNS:     int64(t.Timestamp),
			StrategyID:      string(t.StrategyID),
			Symbol:          t.Symbol,
			Side:            t.Side.String(),
			Price:           float64(t.Price),
			Quantity:        uint64(t.Quantity),
			ClientOrderID:   uint64(t.ClientOrderID),
			ExchangeOrderID: uint64(t.ExchangeOrderID),
		})
	}
	if err := s.client.DB().CreateInBatches(rows, 500).Error; err != nil {
		return errors.Wrap(err, "insert sim_trades")
	}
	return nil
}

// Close releases the connection pool.
func (s *TradeStore) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
