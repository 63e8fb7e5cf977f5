package models

// SignalDirection is the trade side of an aggregated signal.
type SignalDirection string

const (
	SignalBuy  SignalDirection = "BUY"
	SignalSell SignalDirection = "SELL"
)

// SignalStrength grades an aggregated signal by its raw score.
type SignalStrength string

const (
	StrengthModerate SignalStrength = "moderate"
	StrengthStrong   SignalStrength = "strong"
)

// Signal is one scored trading signal. BUY and SELL signals are not
// mutually exclusive for the same analysis; the synthesizer resolves
// any conflict downstream.
type Signal struct {
	Direction  SignalDirection `json:"direction"`
	Confidence float64         `json:"confidence"`
	Strength   SignalStrength  `json:"strength"`
	Score      int             `json:"supporting_factors"`
}

// Analysis is the cacheable output of one technical pass over a symbol.
type Analysis struct {
	Symbol     string         `json:"symbol"`
	Indicators IndicatorSet   `json:"indicators"`
	Patterns   []PatternMatch `json:"patterns"`
	Signals    []Signal       `json:"signals"`
}

// Opportunity is one signal surfaced by a multi-symbol scan.
type Opportunity struct {
	Symbol     string          `json:"symbol"`
	Direction  SignalDirection `json:"direction"`
	Confidence float64         `json:"confidence"`
	Strength   SignalStrength  `json:"strength"`
	Patterns   []PatternMatch  `json:"patterns"`
	Indicators IndicatorSet    `json:"indicators"`
}
