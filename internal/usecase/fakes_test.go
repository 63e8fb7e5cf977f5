package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"MarketSage/internal/domain/models"
	"MarketSage/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type fakeBarStore struct {
	mu     sync.Mutex
	series map[string]models.PriceSeries
	calls  int
	lastN  int
	err    error
}

func (f *fakeBarStore) LatestBars(_ context.Context, symbol string, n int) (models.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastN = n
	if f.err != nil {
		return nil, f.err
	}
	series, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("no bars for %s", symbol)
	}
	if n > 0 && len(series) > n {
		series = series[len(series)-n:]
	}
	return series, nil
}

type fakePredictionStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*models.PredictionRecord
	factors map[int64][]models.Factor

	createErr error
}

func newFakePredictionStore() *fakePredictionStore {
	return &fakePredictionStore{
		records: make(map[int64]*models.PredictionRecord),
		factors: make(map[int64][]models.Factor),
	}
}

func (f *fakePredictionStore) CreateWithFactors(_ context.Context, rec *models.PredictionRecord, factors []models.Factor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	rec.ID = f.nextID
	stored := *rec
	f.records[rec.ID] = &stored
	f.factors[rec.ID] = factors
	return nil
}

func (f *fakePredictionStore) ListPendingExpired(_ context.Context, now time.Time, symbols []string) ([]models.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PredictionRecord
	for _, rec := range f.records {
		if rec.Outcome != models.OutcomePending || rec.ExpiresAt.After(now) {
			continue
		}
		if len(symbols) > 0 && !contains(symbols, rec.Symbol) {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakePredictionStore) MarkOutcome(_ context.Context, id int64, outcome models.Outcome, verifiedAt time.Time, price, accuracy float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.Outcome != models.OutcomePending {
		return false, nil
	}
	rec.Outcome = outcome
	rec.OutcomeVerifiedAt = &verifiedAt
	rec.PriceAtVerification = &price
	rec.AccuracyScore = &accuracy
	return true, nil
}

func (f *fakePredictionStore) History(_ context.Context, symbol string, limit int) ([]models.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PredictionRecord
	for id := f.nextID; id >= 1 && len(out) < limit; id-- {
		rec, ok := f.records[id]
		if !ok {
			continue
		}
		if symbol != "" && rec.Symbol != symbol {
			continue
		}
		withFactors := *rec
		withFactors.Factors = f.factors[id]
		out = append(out, withFactors)
	}
	return out, nil
}

func (f *fakePredictionStore) AccuracyStats(_ context.Context, symbol string) (models.AccuracyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := models.AccuracyStats{Symbol: symbol}
	for _, rec := range f.records {
		if symbol != "" && rec.Symbol != symbol {
			continue
		}
		switch rec.Outcome {
		case models.OutcomeCorrect:
			stats.Total++
			stats.Correct++
		case models.OutcomeIncorrect:
			stats.Total++
		}
	}
	if stats.Total > 0 {
		stats.AccuracyPercent = float64(stats.Correct) / float64(stats.Total) * 100
	}
	return stats, nil
}

func (f *fakePredictionStore) Health(context.Context) error { return nil }
func (f *fakePredictionStore) Close() error                 { return nil }

func (f *fakePredictionStore) get(id int64) *models.PredictionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

type fakePublisher struct {
	mu       sync.Mutex
	created  []int64
	verified []int64
	err      error
}

func (f *fakePublisher) PublishCreated(_ context.Context, rec *models.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, rec.ID)
	return nil
}

func (f *fakePublisher) PublishVerified(_ context.Context, rec *models.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.verified = append(f.verified, rec.ID)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeSentiment struct {
	score *models.SentimentScore
	err   error
	calls int
}

func (f *fakeSentiment) ScoreSymbol(context.Context, string, time.Duration) (*models.SentimentScore, error) {
	f.calls++
	return f.score, f.err
}

type fakePriceLookup struct {
	prices map[string]float64
	err    error
}

func (f *fakePriceLookup) CurrentPrice(_ context.Context, symbol string) (float64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	price, ok := f.prices[symbol]
	return price, ok, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordAnalysis(string, string)   {}
func (noopMetrics) RecordCache(string, bool)        {}
func (noopMetrics) RecordPrediction(string, string) {}
func (noopMetrics) RecordVerification(string)       {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLatency(string, float64)   {}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func seriesFromCloses(closes []float64) models.PriceSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.PriceSeries, 0, len(closes))
	for i, c := range closes {
		series = append(series, models.PriceBar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000 + float64(i),
		})
	}
	return series
}

func flatCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func risingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}
