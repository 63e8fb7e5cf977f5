package models

import "time"

// PredictionDirection is the call a prediction makes.
type PredictionDirection string

const (
	PredictBuy  PredictionDirection = "BUY"
	PredictSell PredictionDirection = "SELL"
	PredictHold PredictionDirection = "HOLD"
)

// TimeHorizon controls how long a prediction stays open.
type TimeHorizon string

const (
	HorizonShort  TimeHorizon = "short"
	HorizonMedium TimeHorizon = "medium"
	HorizonLong   TimeHorizon = "long"
)

// Expiry returns the lifetime for a horizon. Unknown values fall back
// to the medium horizon.
func (h TimeHorizon) Expiry() time.Duration {
	switch h {
	case HorizonShort:
		return 7 * 24 * time.Hour
	case HorizonLong:
		return 90 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// MarketCondition is the broad market read at prediction time.
type MarketCondition string

const (
	ConditionBullish   MarketCondition = "bullish"
	ConditionBearish   MarketCondition = "bearish"
	ConditionSideways  MarketCondition = "sideways"
	ConditionNeutral   MarketCondition = "neutral"
	ConditionUncertain MarketCondition = "uncertain"
)

// AnalysisKind selects which inputs feed a prediction.
type AnalysisKind string

const (
	KindTechnical AnalysisKind = "technical"
	KindHybrid    AnalysisKind = "hybrid"
)

// Outcome tracks prediction verification state.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// PredictionDraft is the synthesizer output before persistence.
// Target and stop are nil for HOLD calls.
type PredictionDraft struct {
	Symbol          string              `json:"symbol"`
	Direction       PredictionDirection `json:"direction"`
	Confidence      float64             `json:"confidence"`
	TargetPrice     *float64            `json:"target_price,omitempty"`
	StopLoss        *float64            `json:"stop_loss,omitempty"`
	TimeHorizon     TimeHorizon         `json:"time_horizon"`
	MarketCondition MarketCondition     `json:"market_condition"`
	PriceAtCreation float64             `json:"price_at_creation"`
	AnalysisKind    AnalysisKind        `json:"analysis_kind"`
}

// PredictionRecord is the persisted projection of a draft plus its
// lifecycle fields. Outcome only ever moves pending -> correct|incorrect.
type PredictionRecord struct {
	ID int64 `json:"id"`
	PredictionDraft

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	Outcome             Outcome    `json:"outcome"`
	OutcomeVerifiedAt   *time.Time `json:"outcome_verified_at,omitempty"`
	PriceAtVerification *float64   `json:"price_at_verification,omitempty"`
	AccuracyScore       *float64   `json:"accuracy_score,omitempty"`

	Factors []Factor `json:"factors,omitempty"`
}

// AccuracyStats aggregates verified outcomes.
type AccuracyStats struct {
	Symbol          string  `json:"symbol,omitempty"`
	Total           int64   `json:"total_predictions"`
	Correct         int64   `json:"correct_predictions"`
	AccuracyPercent float64 `json:"accuracy_percentage"`
}
