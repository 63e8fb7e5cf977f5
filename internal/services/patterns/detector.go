package patterns

import (
	"math"

	"MarketSage/internal/domain/models"
)

// Pattern names reported by the detector.
const (
	PatternDoji         = "doji"
	PatternHammer       = "hammer"
	PatternShootingStar = "shooting_star"
)

// Detector recognizes single-candle formations on the most recent bar of a
// series. Detection is purely geometric; confidence values are fixed per
// pattern and downstream scoring decides what to do with them.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect inspects the last bar of the series. Bars with a zero high-low range
// carry no body/shadow geometry and yield no matches.
func (d *Detector) Detect(series models.PriceSeries) []models.PatternMatch {
	last, ok := series.Last()
	if !ok {
		return nil
	}
	barRange := last.High - last.Low
	if barRange <= 0 {
		return nil
	}

	body := math.Abs(last.Close - last.Open)
	var lowerShadow, upperShadow float64
	if last.Close > last.Open {
		lowerShadow = last.Open - last.Low
		upperShadow = last.High - last.Close
	} else {
		lowerShadow = last.Close - last.Low
		upperShadow = last.High - last.Open
	}

	var matches []models.PatternMatch
	if body/barRange < 0.1 {
		matches = append(matches, models.PatternMatch{
			Name:       PatternDoji,
			Direction:  models.PatternNeutral,
			Confidence: 0.7,
		})
	}
	if lowerShadow/barRange > 0.6 {
		matches = append(matches, models.PatternMatch{
			Name:       PatternHammer,
			Direction:  models.PatternBullish,
			Confidence: 0.65,
		})
	}
	if upperShadow/barRange > 0.6 {
		matches = append(matches, models.PatternMatch{
			Name:       PatternShootingStar,
			Direction:  models.PatternBearish,
			Confidence: 0.65,
		})
	}
	return matches
}
