package usecase

import (
	"context"
	"testing"
	"time"

	"MarketSage/internal/domain/models"
)

func pendingRecord(store *fakePredictionStore, symbol string, dir models.PredictionDirection, base float64, target, stop *float64, expiresAt time.Time) int64 {
	rec := &models.PredictionRecord{
		PredictionDraft: models.PredictionDraft{
			Symbol:          symbol,
			Direction:       dir,
			Confidence:      0.8,
			TargetPrice:     target,
			StopLoss:        stop,
			TimeHorizon:     models.HorizonShort,
			PriceAtCreation: base,
			AnalysisKind:    models.KindTechnical,
		},
		CreatedAt: expiresAt.Add(-7 * 24 * time.Hour),
		ExpiresAt: expiresAt,
		Outcome:   models.OutcomePending,
	}
	_ = store.CreateWithFactors(context.Background(), rec, nil)
	return rec.ID
}

func fptr(v float64) *float64 { return &v }

func newVerifier(t *testing.T, store *fakePredictionStore, prices *fakePriceLookup) (*VerifierUseCase, *fakePublisher) {
	t.Helper()
	publisher := &fakePublisher{}
	uc := NewVerifierUseCase(store, prices, publisher, testLogger(t), noopMetrics{})
	return uc, publisher
}

func TestSweepBuyReachedTarget(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	id := pendingRecord(store, "AAPL", models.PredictBuy, 100, fptr(108), fptr(95), now.Add(-time.Hour))

	uc, publisher := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{"AAPL": 110}})
	uc.now = func() time.Time { return now }

	res, err := uc.Sweep(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Correct != 1 || res.Incorrect != 0 {
		t.Errorf("result = %+v, want one correct", res)
	}

	rec := store.get(id)
	if rec.Outcome != models.OutcomeCorrect {
		t.Errorf("outcome = %q, want correct", rec.Outcome)
	}
	if rec.PriceAtVerification == nil || *rec.PriceAtVerification != 110 {
		t.Errorf("price_at_verification = %v, want 110", rec.PriceAtVerification)
	}
	if rec.AccuracyScore == nil || *rec.AccuracyScore != 1 {
		t.Errorf("accuracy = %v, want 1 (clamped)", rec.AccuracyScore)
	}
	if rec.OutcomeVerifiedAt == nil || !rec.OutcomeVerifiedAt.Equal(now) {
		t.Errorf("verified_at = %v, want %v", rec.OutcomeVerifiedAt, now)
	}
	if len(publisher.verified) != 1 {
		t.Errorf("verified events = %d, want 1", len(publisher.verified))
	}
}

func TestSweepBuyHitStop(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	id := pendingRecord(store, "AAPL", models.PredictBuy, 100, fptr(108), fptr(95), now.Add(-time.Hour))

	uc, _ := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{"AAPL": 94}})
	uc.now = func() time.Time { return now }

	res, err := uc.Sweep(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Incorrect != 1 {
		t.Errorf("result = %+v, want one incorrect", res)
	}
	rec := store.get(id)
	if rec.Outcome != models.OutcomeIncorrect {
		t.Errorf("outcome = %q, want incorrect", rec.Outcome)
	}
	if rec.AccuracyScore == nil || *rec.AccuracyScore != 0 {
		t.Errorf("accuracy = %v, want 0 (price moved away)", rec.AccuracyScore)
	}
}

func TestSweepSellReachedTarget(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	id := pendingRecord(store, "TSLA", models.PredictSell, 200, fptr(184), fptr(210), now.Add(-time.Hour))

	uc, _ := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{"TSLA": 180}})
	uc.now = func() time.Time { return now }

	if _, err := uc.Sweep(context.Background(), nil); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := store.get(id).Outcome; got != models.OutcomeCorrect {
		t.Errorf("outcome = %q, want correct", got)
	}
}

func TestSweepPriceBetweenTargetAndStopStaysPending(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	id := pendingRecord(store, "AAPL", models.PredictBuy, 100, fptr(108), fptr(95), now.Add(-time.Hour))

	uc, _ := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{"AAPL": 101}})
	uc.now = func() time.Time { return now }

	res, err := uc.Sweep(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("result = %+v, want one skipped", res)
	}
	if got := store.get(id).Outcome; got != models.OutcomePending {
		t.Errorf("outcome = %q, want pending", got)
	}
}

func TestSweepHoldSkipped(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	id := pendingRecord(store, "AAPL", models.PredictHold, 100, nil, nil, now.Add(-time.Hour))

	uc, _ := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{"AAPL": 150}})
	uc.now = func() time.Time { return now }

	res, err := uc.Sweep(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("result = %+v, want hold skipped", res)
	}
	if got := store.get(id).Outcome; got != models.OutcomePending {
		t.Errorf("outcome = %q, want pending", got)
	}
}

func TestSweepPriceUnavailableStaysPending(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	id := pendingRecord(store, "AAPL", models.PredictBuy, 100, fptr(108), fptr(95), now.Add(-time.Hour))

	uc, _ := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{}})
	uc.now = func() time.Time { return now }

	if _, err := uc.Sweep(context.Background(), nil); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := store.get(id).Outcome; got != models.OutcomePending {
		t.Errorf("outcome = %q, want pending", got)
	}
}

func TestSweepSkipsUnexpired(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pendingRecord(store, "AAPL", models.PredictBuy, 100, fptr(108), fptr(95), now.Add(time.Hour))

	uc, _ := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{"AAPL": 110}})
	uc.now = func() time.Time { return now }

	res, err := uc.Sweep(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Checked != 0 {
		t.Errorf("checked = %d, want 0", res.Checked)
	}
}

func TestSweepSymbolFilter(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	aapl := pendingRecord(store, "AAPL", models.PredictBuy, 100, fptr(108), fptr(95), now.Add(-time.Hour))
	tsla := pendingRecord(store, "TSLA", models.PredictBuy, 200, fptr(216), fptr(190), now.Add(-time.Hour))

	uc, _ := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{"AAPL": 110, "TSLA": 220}})
	uc.now = func() time.Time { return now }

	if _, err := uc.Sweep(context.Background(), []string{"AAPL"}); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := store.get(aapl).Outcome; got != models.OutcomeCorrect {
		t.Errorf("AAPL outcome = %q, want correct", got)
	}
	if got := store.get(tsla).Outcome; got != models.OutcomePending {
		t.Errorf("TSLA outcome = %q, want pending (filtered out)", got)
	}
}

func TestSweepIdempotent(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pendingRecord(store, "AAPL", models.PredictBuy, 100, fptr(108), fptr(95), now.Add(-time.Hour))

	uc, publisher := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{"AAPL": 110}})
	uc.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := uc.Sweep(ctx, nil)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first.Correct != 1 {
		t.Fatalf("first sweep = %+v", first)
	}

	second, err := uc.Sweep(ctx, nil)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.Checked != 0 || second.Correct != 0 {
		t.Errorf("second sweep = %+v, want nothing to do", second)
	}
	if len(publisher.verified) != 1 {
		t.Errorf("verified events = %d, want 1", len(publisher.verified))
	}
}

func TestSweepAccuracyPartialMove(t *testing.T) {
	store := newFakePredictionStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// SELL from 100 toward 92: price 92 exactly reaches the target.
	id := pendingRecord(store, "AAPL", models.PredictSell, 100, fptr(92), fptr(105), now.Add(-time.Hour))

	uc, _ := newVerifier(t, store, &fakePriceLookup{prices: map[string]float64{"AAPL": 92}})
	uc.now = func() time.Time { return now }

	if _, err := uc.Sweep(context.Background(), nil); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	rec := store.get(id)
	if rec.Outcome != models.OutcomeCorrect {
		t.Fatalf("outcome = %q, want correct", rec.Outcome)
	}
	// (92-100)/(92-100) = 1.0
	if rec.AccuracyScore == nil || *rec.AccuracyScore != 1 {
		t.Errorf("accuracy = %v, want 1", rec.AccuracyScore)
	}
}
