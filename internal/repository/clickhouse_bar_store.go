package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"MarketSage/internal/domain/models"
	pkgch "MarketSage/pkg/clickhouse"
	applogger "MarketSage/pkg/logger"
)

// BarSchema holds the idempotent DDL for the bar table.
var BarSchema = []string{
	`CREATE TABLE IF NOT EXISTS market_bars (
		ts DateTime64(3, 'UTC'),
		symbol LowCardinality(String),
		open Float64,
		high Float64,
		low Float64,
		close Float64,
		volume Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (symbol, ts)`,
}

// CHBarStore implements BarStore backed by ClickHouse.
type CHBarStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client) *CHBarStore {
	return &CHBarStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

// InsertBars writes bars for one symbol. Inserts go through a transaction
// with a prepared statement so the driver can batch them.
func (s *CHBarStore) InsertBars(ctx context.Context, symbol string, bars models.PriceSeries) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO market_bars (ts, symbol, open, high, low, close, volume)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Timestamp, symbol, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert bar: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestBars returns up to n bars for symbol, oldest first.
func (s *CHBarStore) LatestBars(ctx context.Context, symbol string, n int) (models.PriceSeries, error) {
	start := time.Now()
	const q = `
        SELECT ts, open, high, low, close, volume
        FROM market_bars
        WHERE symbol = ?
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_bars query error",
				applogger.String("symbol", symbol),
				applogger.Int("n", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest bars: %w", err)
	}
	defer rows.Close()

	out := make(models.PriceSeries, 0, n)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse latest_bars scan error",
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// Rows arrive newest first; flip to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	if s.l != nil {
		s.l.Debug("clickhouse latest_bars ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}
