package forecast

import (
	"github.com/creasty/defaults"

	"MarketSage/internal/domain/models"
)

// Sentiment contributes at a fixed weight, on the buy side above
// sentimentBuyBar and on the sell side below sentimentSellBar.
const (
	sentimentWeight  = 0.3
	sentimentBuyBar  = 0.6
	sentimentSellBar = 0.4
)

// Config tunes the decision ladder.
type Config struct {
	// ConfidenceThreshold separates a high-conviction call (wider targets)
	// from a lean one.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" default:"0.8"`
}

// Synthesizer folds signals and optional sentiment into a single directional
// draft with price targets.
type Synthesizer struct {
	cfg Config
}

func NewSynthesizer(cfg Config) *Synthesizer {
	_ = defaults.Set(&cfg)
	return &Synthesizer{cfg: cfg}
}

// Synthesize resolves possibly conflicting signals into one draft. Each
// signal votes with its own confidence as weight; sentiment, when present,
// always adds its fixed weight to the total and sides with buy or sell only
// when decisive. A draft is HOLD at confidence 0.5 when nothing votes or no
// side is convincing.
func (s *Synthesizer) Synthesize(
	symbol string,
	signals []models.Signal,
	sentiment *models.SentimentScore,
	indicators models.IndicatorSet,
	horizon models.TimeHorizon,
	kind models.AnalysisKind,
	price float64,
) models.PredictionDraft {
	if horizon == "" {
		horizon = models.HorizonMedium
	}
	draft := models.PredictionDraft{
		Symbol:          symbol,
		Direction:       models.PredictHold,
		Confidence:      0.5,
		TimeHorizon:     horizon,
		MarketCondition: models.ConditionUncertain,
		PriceAtCreation: price,
		AnalysisKind:    kind,
	}

	var buyWeight, sellWeight, totalWeight float64
	for _, sig := range signals {
		totalWeight += sig.Confidence
		switch sig.Direction {
		case models.SignalBuy:
			buyWeight += sig.Confidence
		case models.SignalSell:
			sellWeight += sig.Confidence
		}
	}
	if sentiment != nil {
		switch {
		case sentiment.Score > sentimentBuyBar:
			buyWeight += sentimentWeight
		case sentiment.Score < sentimentSellBar:
			sellWeight += sentimentWeight
		}
		// A neutral score votes for neither side but still carries its
		// weight, diluting both confidences.
		totalWeight += sentimentWeight
	}
	if totalWeight == 0 {
		return draft
	}

	draft.MarketCondition = marketCondition(indicators)

	buyConfidence := buyWeight / totalWeight
	sellConfidence := sellWeight / totalWeight
	switch {
	case buyConfidence >= s.cfg.ConfidenceThreshold:
		draft.Direction = models.PredictBuy
		draft.Confidence = buyConfidence
		draft.TargetPrice = ptr(price * 1.08)
		draft.StopLoss = ptr(price * 0.95)
	case sellConfidence >= s.cfg.ConfidenceThreshold:
		draft.Direction = models.PredictSell
		draft.Confidence = sellConfidence
		draft.TargetPrice = ptr(price * 0.92)
		draft.StopLoss = ptr(price * 1.05)
	case buyConfidence > sellConfidence && buyConfidence >= 0.6:
		draft.Direction = models.PredictBuy
		draft.Confidence = buyConfidence
		draft.TargetPrice = ptr(price * 1.05)
		draft.StopLoss = ptr(price * 0.97)
	case sellConfidence > buyConfidence && sellConfidence >= 0.6:
		draft.Direction = models.PredictSell
		draft.Confidence = sellConfidence
		draft.TargetPrice = ptr(price * 0.95)
		draft.StopLoss = ptr(price * 1.03)
	}
	return draft
}

// marketCondition votes with MACD trend and RSI midline position.
func marketCondition(set models.IndicatorSet) models.MarketCondition {
	if set.MACD == nil && set.RSI == nil {
		return models.ConditionNeutral
	}
	var bullish, bearish int
	if set.MACD != nil {
		switch set.MACD.Trend {
		case models.SignalBullish:
			bullish++
		case models.SignalBearish:
			bearish++
		}
	}
	if set.RSI != nil {
		switch {
		case set.RSI.Value > 50:
			bullish++
		case set.RSI.Value < 50:
			bearish++
		}
	}
	switch {
	case bullish > bearish:
		return models.ConditionBullish
	case bearish > bullish:
		return models.ConditionBearish
	default:
		return models.ConditionSideways
	}
}

func ptr(v float64) *float64 {
	return &v
}
