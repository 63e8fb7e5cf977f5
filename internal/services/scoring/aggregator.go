package scoring

import (
	"github.com/creasty/defaults"

	"MarketSage/internal/domain/models"
)

// Config tunes how indicator and pattern votes turn into signals.
type Config struct {
	// PatternThreshold is the minimum confidence for a pattern to vote.
	PatternThreshold float64 `yaml:"pattern_threshold" default:"0.8"`
}

// Aggregator counts directional votes across indicators and patterns and
// emits zero, one, or two signals. Indicators vote with weight 1, qualifying
// patterns with weight 2. A side fires at a score of 3 and is strong at 5.
type Aggregator struct {
	cfg Config
}

func NewAggregator(cfg Config) *Aggregator {
	_ = defaults.Set(&cfg)
	return &Aggregator{cfg: cfg}
}

// Aggregate scores the indicator set and pattern matches. Both a BUY and a
// SELL signal may be present at once; resolving that is the caller's job.
func (a *Aggregator) Aggregate(set models.IndicatorSet, matches []models.PatternMatch) []models.Signal {
	var buyScore, sellScore int

	vote := func(sig models.IndicatorSignal) {
		switch sig {
		case models.SignalOversold, models.SignalBullish, models.SignalBullishCrossover:
			buyScore++
		case models.SignalOverbought, models.SignalBearish, models.SignalBearishCrossover:
			sellScore++
		}
	}
	if set.Bollinger != nil {
		vote(set.Bollinger.Signal)
	}
	if set.RSI != nil {
		vote(set.RSI.Signal)
	}
	if set.Stochastic != nil {
		vote(set.Stochastic.Signal)
	}
	if set.MACD != nil {
		vote(set.MACD.Trend)
	}

	for _, m := range matches {
		if m.Confidence < a.cfg.PatternThreshold {
			continue
		}
		switch m.Direction {
		case models.PatternBullish:
			buyScore += 2
		case models.PatternBearish:
			sellScore += 2
		}
	}

	// Every pattern widens the ceiling, voting or not, so confidence reflects
	// how contested the bar was.
	maxScore := 4 + 2*len(matches)

	var signals []models.Signal
	if sig := buildSignal(models.SignalBuy, buyScore, maxScore); sig != nil {
		signals = append(signals, *sig)
	}
	if sig := buildSignal(models.SignalSell, sellScore, maxScore); sig != nil {
		signals = append(signals, *sig)
	}
	return signals
}

func buildSignal(direction models.SignalDirection, score, maxScore int) *models.Signal {
	if score < 3 {
		return nil
	}
	confidence := float64(score) / float64(maxScore)
	if confidence > 1 {
		confidence = 1
	}
	strength := models.StrengthModerate
	if score >= 5 {
		strength = models.StrengthStrong
	}
	return &models.Signal{
		Direction:  direction,
		Confidence: confidence,
		Strength:   strength,
		Score:      score,
	}
}
