package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketSage/internal/domain/models"
	domrepo "MarketSage/internal/domain/repository"
	domservice "MarketSage/internal/domain/service"
	"MarketSage/internal/services/forecast"
	"MarketSage/pkg/cache"
	"MarketSage/pkg/logger"
)

// PredictorConfig tunes prediction creation.
type PredictorConfig struct {
	// SentimentTTL is how long a fetched sentiment score stays cached.
	SentimentTTL time.Duration
	// SentimentRecency bounds how old scored news may be.
	SentimentRecency time.Duration
	// Timeout bounds one prediction creation end to end.
	Timeout time.Duration
}

// PredictorUseCase turns an analysis into a persisted, verifiable
// prediction with its explanation trail.
type PredictorUseCase struct {
	analyzer  *AnalyzerUseCase
	synth     *forecast.Synthesizer
	sentiment domservice.SentimentProvider
	sentCache *cache.Loader[*models.SentimentScore]
	store     domrepo.PredictionStore
	publisher domrepo.EventPublisher
	cfg       PredictorConfig
	log       *logger.Logger
	metrics   domrepo.Metrics
	now       func() time.Time
}

func NewPredictorUseCase(
	analyzer *AnalyzerUseCase,
	synth *forecast.Synthesizer,
	sentiment domservice.SentimentProvider,
	cacheSvc cache.Service,
	store domrepo.PredictionStore,
	publisher domrepo.EventPublisher,
	cfg PredictorConfig,
	log *logger.Logger,
	metrics domrepo.Metrics,
) *PredictorUseCase {
	if cfg.SentimentTTL <= 0 {
		cfg.SentimentTTL = 30 * time.Minute
	}
	if cfg.SentimentRecency <= 0 {
		cfg.SentimentRecency = 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &PredictorUseCase{
		analyzer:  analyzer,
		synth:     synth,
		sentiment: sentiment,
		sentCache: cache.NewLoader[*models.SentimentScore](cacheSvc),
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Predict runs an analysis, synthesizes a directional call and persists it
// together with its factors in one transaction.
func (uc *PredictorUseCase) Predict(ctx context.Context, req models.PredictRequest) (*models.PredictionRecord, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	kind := models.AnalysisKind(req.Kind)
	if kind == "" {
		kind = models.KindHybrid
	}
	horizon := models.TimeHorizon(req.Horizon)
	if horizon == "" {
		horizon = models.HorizonMedium
	}
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		uc.metrics.RecordLatency("predict", time.Since(started).Seconds())
	}()

	analysis, err := uc.analyzer.Analyze(ctx, models.AnalyzeRequest{
		Symbol: req.Symbol,
		Bars:   req.Bars,
		N:      req.N,
	})
	if err != nil {
		return nil, err
	}

	price, err := uc.latestClose(ctx, req)
	if err != nil {
		return nil, err
	}

	var sentiment *models.SentimentScore
	if kind == models.KindHybrid {
		sentiment = uc.loadSentiment(ctx, req.Symbol)
	}

	draft := uc.synth.Synthesize(req.Symbol, analysis.Signals, sentiment, analysis.Indicators, horizon, kind, price)
	factors := forecast.ExtractFactors(analysis.Indicators, analysis.Patterns, sentiment)

	now := uc.now().UTC()
	rec := &models.PredictionRecord{
		PredictionDraft: draft,
		CreatedAt:       now,
		ExpiresAt:       now.Add(draft.TimeHorizon.Expiry()),
		Outcome:         models.OutcomePending,
	}
	if err := uc.store.CreateWithFactors(ctx, rec, factors); err != nil {
		uc.metrics.RecordError("predict")
		return nil, fmt.Errorf("persist prediction for %s: %w", req.Symbol, err)
	}
	rec.Factors = factors

	uc.metrics.RecordPrediction(req.Symbol, string(draft.Direction))
	uc.log.Info("prediction created",
		logger.Int64("id", rec.ID),
		logger.String("symbol", req.Symbol),
		logger.String("direction", string(draft.Direction)),
		logger.Float64("confidence", draft.Confidence),
		logger.String("horizon", string(draft.TimeHorizon)))

	if err := uc.publisher.PublishCreated(ctx, rec); err != nil {
		uc.log.Warn("publish prediction event failed", logger.Error(err))
	}
	return rec, nil
}

// History lists persisted predictions, newest first.
func (uc *PredictorUseCase) History(ctx context.Context, req models.HistoryRequest) ([]models.PredictionRecord, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return uc.store.History(ctx, req.Symbol, req.Limit)
}

// Accuracy aggregates verified prediction outcomes.
func (uc *PredictorUseCase) Accuracy(ctx context.Context, req models.AccuracyRequest) (models.AccuracyStats, error) {
	return uc.store.AccuracyStats(ctx, req.Symbol)
}

// loadSentiment fetches a cached sentiment score. Unavailability is not an
// error: the prediction simply proceeds without a news contribution.
func (uc *PredictorUseCase) loadSentiment(ctx context.Context, symbol string) *models.SentimentScore {
	if uc.sentiment == nil {
		return nil
	}
	score, err := uc.sentCache.Load(ctx, analysisKey("news", symbol), uc.cfg.SentimentTTL, func(ctx context.Context) (*models.SentimentScore, error) {
		return uc.sentiment.ScoreSymbol(ctx, symbol, uc.cfg.SentimentRecency)
	})
	if err != nil {
		uc.log.Warn("sentiment unavailable", logger.String("symbol", symbol), logger.Error(err))
		uc.metrics.RecordCache("news", false)
		return nil
	}
	return score
}

// latestClose resolves the reference price for targets and stops.
func (uc *PredictorUseCase) latestClose(ctx context.Context, req models.PredictRequest) (float64, error) {
	series := req.Bars
	if len(series) == 0 {
		n := req.N
		if n <= 0 {
			n = 100
		}
		var err error
		series, err = uc.analyzer.bars.LatestBars(ctx, req.Symbol, n)
		if err != nil {
			return 0, fmt.Errorf("load bars for %s: %w", req.Symbol, err)
		}
	}
	last, ok := series.Last()
	if !ok {
		return 0, fmt.Errorf("no bars for %s", req.Symbol)
	}
	return last.Close, nil
}
