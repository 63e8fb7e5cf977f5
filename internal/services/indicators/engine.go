package indicators

import (
	"math"

	"github.com/creasty/defaults"

	"MarketSage/internal/domain/models"
)

// Config holds the lookback windows for each indicator family.
type Config struct {
	BollingerPeriod     int     `yaml:"bollinger_period" default:"20"`
	BollingerDev        float64 `yaml:"bollinger_dev" default:"2"`
	RSIPeriod           int     `yaml:"rsi_period" default:"14"`
	StochasticPeriod    int     `yaml:"stochastic_period" default:"14"`
	StochasticSmoothing int     `yaml:"stochastic_smoothing" default:"3"`
	MACDFast            int     `yaml:"macd_fast" default:"12"`
	MACDSlow            int     `yaml:"macd_slow" default:"26"`
	MACDSignal          int     `yaml:"macd_signal" default:"9"`
}

// Engine computes technical indicators from bar history. Each indicator that
// cannot be computed from the available history is reported as nil rather than
// failing the whole set.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	_ = defaults.Set(&cfg)
	return &Engine{cfg: cfg}
}

// Compute derives the full indicator set from the series. The series is
// assumed to be validated and in ascending time order.
func (e *Engine) Compute(series models.PriceSeries) models.IndicatorSet {
	return models.IndicatorSet{
		Bollinger:  e.bollinger(series),
		RSI:        e.rsi(series),
		Stochastic: e.stochastic(series),
		MACD:       e.macd(series),
	}
}

func (e *Engine) bollinger(series models.PriceSeries) *models.BollingerBands {
	period := e.cfg.BollingerPeriod
	closes := series.Closes()
	if len(closes) < period {
		return nil
	}
	window := closes[len(closes)-period:]
	middle := mean(window)
	sigma := stddev(window, middle)
	upper := middle + e.cfg.BollingerDev*sigma
	lower := middle - e.cfg.BollingerDev*sigma
	price := closes[len(closes)-1]
	if !allFinite(middle, upper, lower, price) {
		return nil
	}

	signal := models.SignalNeutral
	// A zero-width band carries no positional information.
	if upper > lower {
		switch {
		case price <= lower:
			signal = models.SignalOversold
		case price >= upper:
			signal = models.SignalOverbought
		}
	}
	return &models.BollingerBands{
		Upper:        upper,
		Middle:       middle,
		Lower:        lower,
		CurrentPrice: price,
		Signal:       signal,
	}
}

func (e *Engine) rsi(series models.PriceSeries) *models.RSI {
	period := e.cfg.RSIPeriod
	closes := series.Closes()
	if len(closes) < period+1 {
		return nil
	}

	// Wilder smoothing: seed with the simple average of the first `period`
	// deltas, then blend each following delta in at weight 1/period.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	var value float64
	switch {
	case avgGain == 0 && avgLoss == 0:
		value = 50
	case avgLoss == 0:
		value = 100
	default:
		rs := avgGain / avgLoss
		value = 100 - 100/(1+rs)
	}
	if !allFinite(value) {
		return nil
	}

	signal := models.SignalNeutral
	switch {
	case value < 30:
		signal = models.SignalOversold
	case value > 70:
		signal = models.SignalOverbought
	}
	return &models.RSI{Value: value, Signal: signal}
}

func (e *Engine) stochastic(series models.PriceSeries) *models.Stochastic {
	period := e.cfg.StochasticPeriod
	smoothing := e.cfg.StochasticSmoothing
	if len(series) < period+smoothing-1 {
		return nil
	}

	// %K for the last `smoothing` bars, %D as their simple average.
	ks := make([]float64, 0, smoothing)
	for i := len(series) - smoothing; i < len(series); i++ {
		window := series[i-period+1 : i+1]
		highest, lowest := window[0].High, window[0].Low
		for _, bar := range window[1:] {
			if bar.High > highest {
				highest = bar.High
			}
			if bar.Low < lowest {
				lowest = bar.Low
			}
		}
		if highest == lowest {
			ks = append(ks, 50)
			continue
		}
		ks = append(ks, 100*(series[i].Close-lowest)/(highest-lowest))
	}
	k := ks[len(ks)-1]
	d := mean(ks)
	if !allFinite(k, d) {
		return nil
	}

	signal := models.SignalNeutral
	switch {
	case k < 20 && d < 20:
		signal = models.SignalOversold
	case k > 80 && d > 80:
		signal = models.SignalOverbought
	case k > d:
		signal = models.SignalBullishCrossover
	case k < d:
		signal = models.SignalBearishCrossover
	}
	return &models.Stochastic{K: k, D: d, Signal: signal}
}

func (e *Engine) macd(series models.PriceSeries) *models.MACD {
	fast, slow, signalPeriod := e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal
	closes := series.Closes()
	if len(closes) < slow+signalPeriod {
		return nil
	}

	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)
	// The MACD line exists once the slow EMA does.
	line := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		line = append(line, fastEMA[i]-slowEMA[i])
	}
	signalLine := emaSeries(line, signalPeriod)

	macdLine := line[len(line)-1]
	macdSignal := signalLine[len(signalLine)-1]
	histogram := macdLine - macdSignal
	if !allFinite(macdLine, macdSignal, histogram) {
		return nil
	}

	trend := models.SignalNeutral
	switch {
	case macdLine > macdSignal:
		trend = models.SignalBullish
	case macdLine < macdSignal:
		trend = models.SignalBearish
	}
	return &models.MACD{
		Line:      macdLine,
		Signal:    macdSignal,
		Histogram: histogram,
		Trend:     trend,
	}
}

// emaSeries computes an EMA over xs seeded with the SMA of the first `period`
// values. Positions before period-1 hold the running seed average so indexing
// stays aligned with xs.
func emaSeries(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	alpha := 2.0 / (float64(period) + 1)
	sum := 0.0
	for i, x := range xs {
		if i < period {
			sum += x
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = alpha*x + (1-alpha)*out[i-1]
	}
	return out
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation around a precomputed mean.
func stddev(xs []float64, mu float64) float64 {
	sum := 0.0
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func allFinite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
