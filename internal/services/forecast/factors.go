package forecast

import (
	"fmt"

	"MarketSage/internal/domain/models"
)

// Factor weights are explanatory only. They rank how much each input mattered
// to a reader and are not the synthesis weights.
const (
	rsiFactorWeight       = 0.2
	bollingerFactorWeight = 0.15
	macdFactorWeight      = 0.2
	patternFactorScale    = 0.3
	newsFactorWeight      = 0.25

	patternFactorMinConfidence = 0.7
)

// ExtractFactors builds the explainability records for a prediction. Every
// factor is independently optional; an empty slice is a valid result.
func ExtractFactors(set models.IndicatorSet, matches []models.PatternMatch, sentiment *models.SentimentScore) []models.Factor {
	var factors []models.Factor

	if set.RSI != nil {
		factors = append(factors, models.Factor{
			Kind:        models.FactorIndicator,
			Name:        "RSI",
			Value:       fmt.Sprintf("%.2f", set.RSI.Value),
			Weight:      rsiFactorWeight,
			Description: fmt.Sprintf("RSI at %.2f indicates %s conditions", set.RSI.Value, rsiCondition(set.RSI)),
		})
	}
	if set.Bollinger != nil && set.Bollinger.Signal != models.SignalNeutral {
		factors = append(factors, models.Factor{
			Kind:        models.FactorIndicator,
			Name:        "Bollinger Bands",
			Value:       string(set.Bollinger.Signal),
			Weight:      bollingerFactorWeight,
			Description: fmt.Sprintf("Price at %.2f is %s relative to the bands", set.Bollinger.CurrentPrice, set.Bollinger.Signal),
		})
	}
	if set.MACD != nil && set.MACD.Trend != models.SignalNeutral {
		factors = append(factors, models.Factor{
			Kind:        models.FactorIndicator,
			Name:        "MACD",
			Value:       string(set.MACD.Trend),
			Weight:      macdFactorWeight,
			Description: fmt.Sprintf("MACD histogram at %.4f shows %s momentum", set.MACD.Histogram, set.MACD.Trend),
		})
	}
	for _, m := range matches {
		if m.Confidence < patternFactorMinConfidence {
			continue
		}
		factors = append(factors, models.Factor{
			Kind:        models.FactorPattern,
			Name:        m.Name,
			Value:       string(m.Direction),
			Weight:      m.Confidence * patternFactorScale,
			Description: fmt.Sprintf("%s pattern detected with %.0f%% confidence", m.Name, m.Confidence*100),
		})
	}
	if sentiment != nil {
		factors = append(factors, models.Factor{
			Kind:        models.FactorNews,
			Name:        "News Sentiment",
			Value:       string(sentiment.Label),
			Weight:      newsFactorWeight,
			Description: fmt.Sprintf("News sentiment is %s at %.2f across %d articles", sentiment.Label, sentiment.Score, sentiment.ArticlesAnalyzed),
		})
	}
	return factors
}

func rsiCondition(rsi *models.RSI) string {
	switch rsi.Signal {
	case models.SignalOversold:
		return "oversold"
	case models.SignalOverbought:
		return "overbought"
	default:
		return "neutral"
	}
}
