package models

import (
	"fmt"
	"time"
)

// PriceBar represents one OHLCV record.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is a chronologically ordered bar sequence, oldest first.
type PriceSeries []PriceBar

// Validate rejects malformed series before any indicator math runs.
// The returned error names the offending field and bar index.
func (s PriceSeries) Validate() error {
	for i, b := range s {
		if b.Volume < 0 {
			return fmt.Errorf("bar %d: volume %.4f is negative", i, b.Volume)
		}
		if b.Low < 0 {
			return fmt.Errorf("bar %d: low %.4f is negative", i, b.Low)
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d: high %.4f below low %.4f", i, b.High, b.Low)
		}
		if b.Open < b.Low || b.Open > b.High {
			return fmt.Errorf("bar %d: open %.4f outside [low, high]", i, b.Open)
		}
		if b.Close < b.Low || b.Close > b.High {
			return fmt.Errorf("bar %d: close %.4f outside [low, high]", i, b.Close)
		}
		if i > 0 && !s[i-1].Timestamp.Before(b.Timestamp) {
			return fmt.Errorf("bar %d: timestamp %s not after previous bar", i, b.Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Last returns the most recent bar.
func (s PriceSeries) Last() (PriceBar, bool) {
	if len(s) == 0 {
		return PriceBar{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}
