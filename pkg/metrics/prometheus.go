package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analyses      *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	predictions   *prometheus.CounterVec
	verifications *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		analyses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsage_analyses_total",
				Help: "Total number of analyses computed",
			},
			[]string{"symbol", "kind"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsage_cache_lookups_total",
				Help: "Cache lookups by analysis kind and hit/miss",
			},
			[]string{"kind", "hit"},
		),
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsage_predictions_total",
				Help: "Predictions created by symbol and direction",
			},
			[]string{"symbol", "direction"},
		),
		verifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsage_verifications_total",
				Help: "Prediction verifications by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsage_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketsage_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAnalysis records one computed analysis.
func (r *Recorder) RecordAnalysis(symbol, kind string) {
	r.analyses.WithLabelValues(symbol, kind).Inc()
}

// RecordCache records a cache lookup result.
func (r *Recorder) RecordCache(kind string, hit bool) {
	r.cacheLookups.WithLabelValues(kind, strconv.FormatBool(hit)).Inc()
}

// RecordPrediction records one created prediction.
func (r *Recorder) RecordPrediction(symbol, direction string) {
	r.predictions.WithLabelValues(symbol, direction).Inc()
}

// RecordVerification records one settled prediction.
func (r *Recorder) RecordVerification(outcome string) {
	r.verifications.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
