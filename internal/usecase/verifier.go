package usecase

import (
	"context"
	"time"

	"MarketSage/internal/domain/models"
	domrepo "MarketSage/internal/domain/repository"
	domservice "MarketSage/internal/domain/service"
	"MarketSage/pkg/logger"
)

// SweepResult summarizes one verification pass.
type SweepResult struct {
	Checked   int `json:"checked"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Skipped   int `json:"skipped"`
}

// VerifierUseCase settles expired pending predictions against the current
// market price. Each record transitions at most once; anything that cannot
// be decided now stays pending for a later sweep.
type VerifierUseCase struct {
	store     domrepo.PredictionStore
	prices    domservice.PriceLookup
	publisher domrepo.EventPublisher
	log       *logger.Logger
	metrics   domrepo.Metrics
	now       func() time.Time
}

func NewVerifierUseCase(
	store domrepo.PredictionStore,
	prices domservice.PriceLookup,
	publisher domrepo.EventPublisher,
	log *logger.Logger,
	metrics domrepo.Metrics,
) *VerifierUseCase {
	return &VerifierUseCase{
		store:     store,
		prices:    prices,
		publisher: publisher,
		log:       log,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Sweep verifies every pending prediction past its expiry, optionally
// restricted to a symbol set. It is safe to run on a schedule and to run
// twice in a row: already verified records are never touched again.
func (uc *VerifierUseCase) Sweep(ctx context.Context, symbols []string) (SweepResult, error) {
	now := uc.now().UTC()
	pending, err := uc.store.ListPendingExpired(ctx, now, symbols)
	if err != nil {
		uc.metrics.RecordError("verify")
		return SweepResult{}, err
	}

	res := SweepResult{Checked: len(pending)}
	for i := range pending {
		rec := &pending[i]
		outcome, price, decided := uc.decide(ctx, rec)
		if !decided {
			res.Skipped++
			continue
		}

		accuracy := accuracyScore(rec, price)
		updated, err := uc.store.MarkOutcome(ctx, rec.ID, outcome, now, price, accuracy)
		if err != nil {
			uc.log.Error("mark outcome failed", logger.Int64("id", rec.ID), logger.Error(err))
			uc.metrics.RecordError("verify")
			res.Skipped++
			continue
		}
		if !updated {
			// Raced with another sweep; the record already settled.
			res.Skipped++
			continue
		}

		switch outcome {
		case models.OutcomeCorrect:
			res.Correct++
		case models.OutcomeIncorrect:
			res.Incorrect++
		}
		uc.metrics.RecordVerification(string(outcome))
		uc.log.Info("prediction verified",
			logger.Int64("id", rec.ID),
			logger.String("symbol", rec.Symbol),
			logger.String("outcome", string(outcome)),
			logger.Float64("price", price))

		rec.Outcome = outcome
		rec.OutcomeVerifiedAt = &now
		rec.PriceAtVerification = &price
		rec.AccuracyScore = &accuracy
		if err := uc.publisher.PublishVerified(ctx, rec); err != nil {
			uc.log.Warn("publish verification event failed", logger.Error(err))
		}
	}
	return res, nil
}

// decide resolves a record's outcome from the current price. HOLD calls and
// records without targets have nothing to verify; prices between target and
// stop leave the record pending.
func (uc *VerifierUseCase) decide(ctx context.Context, rec *models.PredictionRecord) (models.Outcome, float64, bool) {
	if rec.Direction == models.PredictHold || rec.TargetPrice == nil || rec.StopLoss == nil {
		return "", 0, false
	}

	price, ok, err := uc.prices.CurrentPrice(ctx, rec.Symbol)
	if err != nil || !ok {
		if err != nil {
			uc.log.Warn("price lookup failed", logger.String("symbol", rec.Symbol), logger.Error(err))
		}
		return "", 0, false
	}

	target, stop := *rec.TargetPrice, *rec.StopLoss
	switch rec.Direction {
	case models.PredictBuy:
		if price >= target {
			return models.OutcomeCorrect, price, true
		}
		if price <= stop {
			return models.OutcomeIncorrect, price, true
		}
	case models.PredictSell:
		if price <= target {
			return models.OutcomeCorrect, price, true
		}
		if price >= stop {
			return models.OutcomeIncorrect, price, true
		}
	}
	return "", price, false
}

// accuracyScore grades how far the price moved toward the target, clamped
// to [0, 1].
func accuracyScore(rec *models.PredictionRecord, price float64) float64 {
	target := *rec.TargetPrice
	base := rec.PriceAtCreation
	if target == base {
		return 0
	}
	score := (price - base) / (target - base)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
