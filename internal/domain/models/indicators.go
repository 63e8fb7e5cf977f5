package models

// IndicatorSignal is the derived label attached to an indicator reading.
type IndicatorSignal string

const (
	SignalOversold         IndicatorSignal = "oversold"
	SignalOverbought       IndicatorSignal = "overbought"
	SignalNeutral          IndicatorSignal = "neutral"
	SignalBullish          IndicatorSignal = "bullish"
	SignalBearish          IndicatorSignal = "bearish"
	SignalBullishCrossover IndicatorSignal = "bullish_crossover"
	SignalBearishCrossover IndicatorSignal = "bearish_crossover"
)

// BollingerBands holds the band levels at the latest bar.
type BollingerBands struct {
	Upper        float64         `json:"upper"`
	Middle       float64         `json:"middle"`
	Lower        float64         `json:"lower"`
	CurrentPrice float64         `json:"current_price"`
	Signal       IndicatorSignal `json:"signal"`
}

// RSI holds the relative strength index reading, always in [0, 100].
type RSI struct {
	Value  float64         `json:"value"`
	Signal IndicatorSignal `json:"signal"`
}

// Stochastic holds the %K/%D oscillator pair.
type Stochastic struct {
	K      float64         `json:"k"`
	D      float64         `json:"d"`
	Signal IndicatorSignal `json:"signal"`
}

// MACD holds the MACD line, its signal line and the histogram.
type MACD struct {
	Line      float64         `json:"macd"`
	Signal    float64         `json:"signal"`
	Histogram float64         `json:"histogram"`
	Trend     IndicatorSignal `json:"trend"`
}

// IndicatorSet is the combined indicator output for one analysis.
// A nil member means the indicator was unavailable (insufficient history);
// that is a per-indicator condition, never a failure of the whole set.
type IndicatorSet struct {
	Bollinger  *BollingerBands `json:"bollinger_bands,omitempty"`
	RSI        *RSI            `json:"rsi,omitempty"`
	Stochastic *Stochastic     `json:"stochastic,omitempty"`
	MACD       *MACD           `json:"macd,omitempty"`
}
