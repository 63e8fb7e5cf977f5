package repository

import (
	"context"
	"time"

	"MarketSage/internal/domain/models"
)

// BarStore provides read-only access to persisted price bars.
type BarStore interface {
	// LatestBars returns up to n bars for symbol, oldest first.
	LatestBars(ctx context.Context, symbol string, n int) (models.PriceSeries, error)
}

// BarWriter ingests bars into persistent storage.
type BarWriter interface {
	InsertBars(ctx context.Context, symbol string, bars models.PriceSeries) error
}

// PredictionStore owns prediction records and their factor rows.
type PredictionStore interface {
	// CreateWithFactors persists a record and its factors in one
	// transaction: either both land or neither does. The stored record
	// carries the assigned identifier on return.
	CreateWithFactors(ctx context.Context, rec *models.PredictionRecord, factors []models.Factor) error

	// ListPendingExpired selects pending records with expires_at <= now,
	// optionally restricted to a symbol set.
	ListPendingExpired(ctx context.Context, now time.Time, symbols []string) ([]models.PredictionRecord, error)

	// MarkOutcome transitions one record out of pending. Records no
	// longer pending are left untouched and reported as not updated.
	MarkOutcome(ctx context.Context, id int64, outcome models.Outcome, verifiedAt time.Time, price, accuracy float64) (bool, error)

	// History lists records newest first, factors included.
	History(ctx context.Context, symbol string, limit int) ([]models.PredictionRecord, error)

	// AccuracyStats aggregates verified outcomes, optionally per symbol.
	AccuracyStats(ctx context.Context, symbol string) (models.AccuracyStats, error)

	Health(ctx context.Context) error
	Close() error
}

// EventPublisher fans prediction lifecycle events out to a broker.
// Publishing is best effort; failures never block the caller's flow.
type EventPublisher interface {
	PublishCreated(ctx context.Context, rec *models.PredictionRecord) error
	PublishVerified(ctx context.Context, rec *models.PredictionRecord) error
	Close() error
}

// Metrics records operational counters for the analysis core.
type Metrics interface {
	RecordAnalysis(symbol, kind string)
	RecordCache(kind string, hit bool)
	RecordPrediction(symbol, direction string)
	RecordVerification(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
