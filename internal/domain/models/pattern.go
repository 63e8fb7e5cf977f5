package models

// PatternDirection classifies what a candlestick pattern implies.
type PatternDirection string

const (
	PatternBullish PatternDirection = "bullish"
	PatternBearish PatternDirection = "bearish"
	PatternNeutral PatternDirection = "neutral"
)

// PatternMatch is one recognized candlestick pattern on the latest bar.
// Confidence values are fixed per pattern, not computed probabilities.
type PatternMatch struct {
	Name       string           `json:"name"`
	Direction  PatternDirection `json:"direction"`
	Confidence float64          `json:"confidence"`
}
