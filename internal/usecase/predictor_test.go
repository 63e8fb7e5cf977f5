package usecase

import (
	"context"
	"testing"
	"time"

	"MarketSage/internal/domain/models"
	"MarketSage/internal/services/forecast"
	"MarketSage/pkg/cache"
)

type predictorFixture struct {
	uc        *PredictorUseCase
	bars      *fakeBarStore
	store     *fakePredictionStore
	publisher *fakePublisher
	sentiment *fakeSentiment
}

func newPredictor(t *testing.T, series map[string]models.PriceSeries, sentiment *fakeSentiment) *predictorFixture {
	t.Helper()
	mc := cache.NewMemoryCache(cache.WithCleanupInterval(time.Hour))
	t.Cleanup(func() { mc.Close() })

	bars := &fakeBarStore{series: series}
	store := newFakePredictionStore()
	publisher := &fakePublisher{}
	analyzer := newAnalyzer(t, bars)
	uc := NewPredictorUseCase(
		analyzer,
		forecast.NewSynthesizer(forecast.Config{}),
		sentiment,
		mc,
		store,
		publisher,
		PredictorConfig{SentimentTTL: time.Minute},
		testLogger(t),
		noopMetrics{},
	)
	return &predictorFixture{uc: uc, bars: bars, store: store, publisher: publisher, sentiment: sentiment}
}

func TestPredictFlatSeriesHolds(t *testing.T) {
	fix := newPredictor(t, map[string]models.PriceSeries{
		"AAPL": seriesFromCloses(flatCloses(60, 100)),
	}, &fakeSentiment{})

	rec, err := fix.uc.Predict(context.Background(), models.PredictRequest{Symbol: "AAPL", Kind: "technical"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if rec.Direction != models.PredictHold {
		t.Errorf("direction = %q, want HOLD", rec.Direction)
	}
	if rec.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", rec.Confidence)
	}
	if rec.TargetPrice != nil || rec.StopLoss != nil {
		t.Error("HOLD prediction must carry no target or stop")
	}
	if rec.Outcome != models.OutcomePending {
		t.Errorf("outcome = %q, want pending", rec.Outcome)
	}
	if rec.ID == 0 {
		t.Error("record not assigned an id")
	}
}

func TestPredictExpiryPerHorizon(t *testing.T) {
	tests := []struct {
		horizon string
		want    time.Duration
	}{
		{"short", 7 * 24 * time.Hour},
		{"medium", 30 * 24 * time.Hour},
		{"long", 90 * 24 * time.Hour},
		{"", 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run("horizon "+tt.horizon, func(t *testing.T) {
			fix := newPredictor(t, map[string]models.PriceSeries{
				"AAPL": seriesFromCloses(flatCloses(60, 100)),
			}, &fakeSentiment{})
			fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			fix.uc.now = func() time.Time { return fixed }

			rec, err := fix.uc.Predict(context.Background(), models.PredictRequest{
				Symbol: "AAPL", Kind: "technical", Horizon: tt.horizon,
			})
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if !rec.ExpiresAt.Equal(fixed.Add(tt.want)) {
				t.Errorf("expires_at = %v, want created_at + %v", rec.ExpiresAt, tt.want)
			}
		})
	}
}

func TestPredictHybridUsesSentiment(t *testing.T) {
	sentiment := &fakeSentiment{score: &models.SentimentScore{
		Symbol: "AAPL", Label: models.SentimentBullish, Score: 0.9, ArticlesAnalyzed: 5,
	}}
	fix := newPredictor(t, map[string]models.PriceSeries{
		"AAPL": seriesFromCloses(flatCloses(60, 100)),
	}, sentiment)

	rec, err := fix.uc.Predict(context.Background(), models.PredictRequest{Symbol: "AAPL", Kind: "hybrid"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if sentiment.calls != 1 {
		t.Errorf("sentiment called %d times, want 1", sentiment.calls)
	}
	// Sentiment is the only vote: buy confidence 1.0, high-conviction BUY.
	if rec.Direction != models.PredictBuy {
		t.Errorf("direction = %q, want BUY", rec.Direction)
	}
	if rec.TargetPrice == nil || *rec.TargetPrice != 108 {
		t.Errorf("target = %v, want 108", rec.TargetPrice)
	}

	found := false
	for _, f := range rec.Factors {
		if f.Name == "News Sentiment" {
			found = true
		}
	}
	if !found {
		t.Errorf("factors missing news sentiment: %+v", rec.Factors)
	}
}

func TestPredictTechnicalSkipsSentiment(t *testing.T) {
	sentiment := &fakeSentiment{score: &models.SentimentScore{Score: 0.9}}
	fix := newPredictor(t, map[string]models.PriceSeries{
		"AAPL": seriesFromCloses(flatCloses(60, 100)),
	}, sentiment)

	if _, err := fix.uc.Predict(context.Background(), models.PredictRequest{Symbol: "AAPL", Kind: "technical"}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if sentiment.calls != 0 {
		t.Errorf("sentiment called %d times for technical analysis, want 0", sentiment.calls)
	}
}

func TestPredictSentimentCached(t *testing.T) {
	sentiment := &fakeSentiment{score: &models.SentimentScore{Score: 0.9, Label: models.SentimentBullish}}
	fix := newPredictor(t, map[string]models.PriceSeries{
		"AAPL": seriesFromCloses(flatCloses(60, 100)),
	}, sentiment)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := fix.uc.Predict(ctx, models.PredictRequest{Symbol: "AAPL", Kind: "hybrid"}); err != nil {
			t.Fatalf("Predict %d: %v", i, err)
		}
	}
	if sentiment.calls != 1 {
		t.Errorf("sentiment called %d times, want 1 (cached)", sentiment.calls)
	}
}

func TestPredictSentimentFailureIsNotFatal(t *testing.T) {
	sentiment := &fakeSentiment{err: context.DeadlineExceeded}
	fix := newPredictor(t, map[string]models.PriceSeries{
		"AAPL": seriesFromCloses(flatCloses(60, 100)),
	}, sentiment)

	rec, err := fix.uc.Predict(context.Background(), models.PredictRequest{Symbol: "AAPL", Kind: "hybrid"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for _, f := range rec.Factors {
		if f.Kind == models.FactorNews {
			t.Errorf("unexpected news factor without sentiment: %+v", f)
		}
	}
}

func TestPredictPublishFailureIsNotFatal(t *testing.T) {
	fix := newPredictor(t, map[string]models.PriceSeries{
		"AAPL": seriesFromCloses(flatCloses(60, 100)),
	}, &fakeSentiment{})
	fix.publisher.err = context.DeadlineExceeded

	if _, err := fix.uc.Predict(context.Background(), models.PredictRequest{Symbol: "AAPL", Kind: "technical"}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
}

func TestPredictNoBars(t *testing.T) {
	fix := newPredictor(t, map[string]models.PriceSeries{}, &fakeSentiment{})
	if _, err := fix.uc.Predict(context.Background(), models.PredictRequest{Symbol: "AAPL"}); err == nil {
		t.Fatal("expected error when no bars exist")
	}
}

func TestHistoryNewestFirstWithFactors(t *testing.T) {
	fix := newPredictor(t, map[string]models.PriceSeries{
		"AAPL": seriesFromCloses(flatCloses(60, 100)),
	}, &fakeSentiment{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := fix.uc.Predict(ctx, models.PredictRequest{Symbol: "AAPL", Kind: "technical"}); err != nil {
			t.Fatalf("Predict %d: %v", i, err)
		}
	}
	recs, err := fix.uc.History(ctx, models.HistoryRequest{Symbol: "AAPL", Limit: 2})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].ID < recs[1].ID {
		t.Errorf("history not newest first: %d before %d", recs[0].ID, recs[1].ID)
	}
	if len(recs[0].Factors) == 0 {
		t.Error("history record missing factors")
	}
}

func TestAccuracyEmptyStore(t *testing.T) {
	fix := newPredictor(t, map[string]models.PriceSeries{}, &fakeSentiment{})
	stats, err := fix.uc.Accuracy(context.Background(), models.AccuracyRequest{})
	if err != nil {
		t.Fatalf("Accuracy: %v", err)
	}
	if stats.Total != 0 || stats.AccuracyPercent != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}
}
