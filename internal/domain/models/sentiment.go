package models

// SentimentLabel is the overall tone of recent news for a symbol.
type SentimentLabel string

const (
	SentimentBullish SentimentLabel = "bullish"
	SentimentBearish SentimentLabel = "bearish"
	SentimentNeutral SentimentLabel = "neutral"
)

// SentimentScore is the external news-sentiment input. Score runs from
// 0 (very bearish) to 1 (very bullish). Absence of a score is valid and
// contributes nothing to synthesis.
type SentimentScore struct {
	Symbol           string         `json:"symbol"`
	Label            SentimentLabel `json:"sentiment"`
	Score            float64        `json:"score"`
	Summary          string         `json:"summary"`
	Factors          []string       `json:"factors,omitempty"`
	ArticlesAnalyzed int            `json:"articles_analyzed"`
}
