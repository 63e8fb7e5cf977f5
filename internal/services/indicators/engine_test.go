package indicators

import (
	"math"
	"testing"
	"time"

	"MarketSage/internal/domain/models"
)

func barsFromCloses(closes []float64) models.PriceSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.PriceSeries, 0, len(closes))
	for i, c := range closes {
		series = append(series, models.PriceBar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		})
	}
	return series
}

func flatSeries(n int, price float64) models.PriceSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return barsFromCloses(closes)
}

func risingSeries(n int, start, step float64) models.PriceSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return barsFromCloses(closes)
}

func TestComputeFlatSeries(t *testing.T) {
	engine := NewEngine(Config{})
	set := engine.Compute(flatSeries(60, 100))

	if set.RSI == nil {
		t.Fatal("expected RSI on 60 bars")
	}
	if set.RSI.Value != 50 {
		t.Errorf("flat RSI = %v, want 50", set.RSI.Value)
	}
	if set.RSI.Signal != models.SignalNeutral {
		t.Errorf("flat RSI signal = %q, want neutral", set.RSI.Signal)
	}

	if set.Stochastic == nil {
		t.Fatal("expected stochastic on 60 bars")
	}
	if set.Stochastic.Signal != models.SignalNeutral {
		t.Errorf("flat stochastic signal = %q, want neutral", set.Stochastic.Signal)
	}

	if set.Bollinger == nil {
		t.Fatal("expected bollinger on 60 bars")
	}
	if set.Bollinger.Signal != models.SignalNeutral {
		t.Errorf("flat bollinger signal = %q, want neutral", set.Bollinger.Signal)
	}

	if set.MACD == nil {
		t.Fatal("expected MACD on 60 bars")
	}
	if set.MACD.Trend != models.SignalNeutral {
		t.Errorf("flat MACD trend = %q, want neutral", set.MACD.Trend)
	}
	if set.MACD.Line != 0 || set.MACD.Histogram != 0 {
		t.Errorf("flat MACD line/histogram = %v/%v, want 0/0", set.MACD.Line, set.MACD.Histogram)
	}
}

func TestComputeRisingSeries(t *testing.T) {
	engine := NewEngine(Config{})
	set := engine.Compute(risingSeries(40, 100, 1))

	if set.RSI == nil {
		t.Fatal("expected RSI")
	}
	if set.RSI.Value != 100 {
		t.Errorf("rising RSI = %v, want 100", set.RSI.Value)
	}
	if set.RSI.Signal != models.SignalOverbought {
		t.Errorf("rising RSI signal = %q, want overbought", set.RSI.Signal)
	}

	if set.MACD == nil {
		t.Fatal("expected MACD on 40 bars")
	}
	if set.MACD.Trend != models.SignalBullish {
		t.Errorf("rising MACD trend = %q, want bullish", set.MACD.Trend)
	}
	if set.MACD.Line <= 0 {
		t.Errorf("rising MACD line = %v, want > 0", set.MACD.Line)
	}

	// A steady ramp stays inside the band: the close sits 9.5 steps above the
	// window mean while the upper band sits about 11.5 steps above it.
	if set.Bollinger == nil {
		t.Fatal("expected bollinger")
	}
	if set.Bollinger.Signal != models.SignalNeutral {
		t.Errorf("rising bollinger signal = %q, want neutral", set.Bollinger.Signal)
	}
	if set.Bollinger.CurrentPrice >= set.Bollinger.Upper {
		t.Errorf("price %v above upper band %v", set.Bollinger.CurrentPrice, set.Bollinger.Upper)
	}
}

func TestRSIValueCrossCheck(t *testing.T) {
	// Alternating gains twice the size of losses: RS converges well above 1,
	// value must stay inside (50, 100).
	closes := make([]float64, 30)
	price := 100.0
	for i := range closes {
		if i%2 == 0 {
			price += 2
		} else {
			price -= 1
		}
		closes[i] = price
	}
	engine := NewEngine(Config{})
	set := engine.Compute(barsFromCloses(closes))
	if set.RSI == nil {
		t.Fatal("expected RSI")
	}
	if set.RSI.Value <= 50 || set.RSI.Value >= 100 {
		t.Errorf("RSI = %v, want within (50, 100)", set.RSI.Value)
	}
}

func TestComputeShortHistory(t *testing.T) {
	engine := NewEngine(Config{})

	tests := []struct {
		name string
		bars int
		has  func(models.IndicatorSet) bool
	}{
		{"bollinger needs 20", 19, func(s models.IndicatorSet) bool { return s.Bollinger != nil }},
		{"rsi needs 15", 14, func(s models.IndicatorSet) bool { return s.RSI != nil }},
		{"stochastic needs 16", 15, func(s models.IndicatorSet) bool { return s.Stochastic != nil }},
		{"macd needs 35", 34, func(s models.IndicatorSet) bool { return s.MACD != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := engine.Compute(flatSeries(tt.bars, 100))
			if tt.has(set) {
				t.Errorf("indicator present with %d bars, want nil", tt.bars)
			}
		})
	}

	empty := engine.Compute(nil)
	if empty.Bollinger != nil || empty.RSI != nil || empty.Stochastic != nil || empty.MACD != nil {
		t.Error("expected all indicators nil on empty series")
	}
}

func TestStochasticBounds(t *testing.T) {
	engine := NewEngine(Config{})
	set := engine.Compute(risingSeries(30, 50, 0.5))
	if set.Stochastic == nil {
		t.Fatal("expected stochastic")
	}
	if set.Stochastic.K < 0 || set.Stochastic.K > 100 {
		t.Errorf("%%K = %v, want within [0, 100]", set.Stochastic.K)
	}
	if set.Stochastic.D < 0 || set.Stochastic.D > 100 {
		t.Errorf("%%D = %v, want within [0, 100]", set.Stochastic.D)
	}
}

func TestEMASeriesSeededWithSMA(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6}
	out := emaSeries(xs, 3)
	if out[2] != 2 {
		t.Fatalf("seed = %v, want SMA(1,2,3) = 2", out[2])
	}
	// alpha = 0.5 for period 3
	want := 0.5*4 + 0.5*2
	if math.Abs(out[3]-want) > 1e-12 {
		t.Errorf("out[3] = %v, want %v", out[3], want)
	}
}
