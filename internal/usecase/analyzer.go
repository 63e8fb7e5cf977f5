package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"MarketSage/internal/domain/models"
	domrepo "MarketSage/internal/domain/repository"
	"MarketSage/internal/services/indicators"
	"MarketSage/internal/services/patterns"
	"MarketSage/internal/services/scoring"
	"MarketSage/pkg/cache"
	"MarketSage/pkg/logger"
)

const analysisKeyPrefix = "analysis"

func analysisKey(kind, symbol string) string {
	return fmt.Sprintf("%s:%s:%s", analysisKeyPrefix, kind, symbol)
}

// AnalyzerConfig tunes the analysis use case.
type AnalyzerConfig struct {
	// TechnicalTTL is how long a computed analysis stays cached.
	TechnicalTTL time.Duration
	// Timeout bounds one full analysis pass.
	Timeout time.Duration
	// Window is the trailing bar count loaded when a request does not
	// name one.
	Window int
	// MaxScanSymbols caps how many symbols one scan fans out over;
	// anything past the cap is dropped.
	MaxScanSymbols int
}

// AnalyzerUseCase runs the full technical pass for a symbol: indicators,
// pattern matches and aggregated signals, cached per symbol.
type AnalyzerUseCase struct {
	bars    domrepo.BarStore
	engine  *indicators.Engine
	det     *patterns.Detector
	agg     *scoring.Aggregator
	loader  *cache.Loader[models.Analysis]
	cfg     AnalyzerConfig
	log     *logger.Logger
	metrics domrepo.Metrics
}

func NewAnalyzerUseCase(
	bars domrepo.BarStore,
	engine *indicators.Engine,
	det *patterns.Detector,
	agg *scoring.Aggregator,
	cacheSvc cache.Service,
	cfg AnalyzerConfig,
	log *logger.Logger,
	metrics domrepo.Metrics,
) *AnalyzerUseCase {
	if cfg.TechnicalTTL <= 0 {
		cfg.TechnicalTTL = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Window <= 0 {
		cfg.Window = 100
	}
	if cfg.MaxScanSymbols <= 0 {
		cfg.MaxScanSymbols = 500
	}
	return &AnalyzerUseCase{
		bars:    bars,
		engine:  engine,
		det:     det,
		agg:     agg,
		loader:  cache.NewLoader[models.Analysis](cacheSvc),
		cfg:     cfg,
		log:     log,
		metrics: metrics,
	}
}

// Analyze produces the technical analysis for one symbol. Caller-supplied
// bars are analyzed directly and bypass the cache; otherwise the bar store
// provides the trailing window and the result is cached under the symbol.
func (uc *AnalyzerUseCase) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.Analysis, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if req.N <= 0 {
		req.N = uc.cfg.Window
	}
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		uc.metrics.RecordLatency("analyze", time.Since(started).Seconds())
	}()

	if len(req.Bars) > 0 {
		if err := req.Bars.Validate(); err != nil {
			return nil, fmt.Errorf("invalid bars: %w", err)
		}
		res := uc.compute(req.Symbol, req.Bars)
		uc.metrics.RecordAnalysis(req.Symbol, string(models.KindTechnical))
		return &res, nil
	}

	computed := false
	res, err := uc.loader.Load(ctx, analysisKey(string(models.KindTechnical), req.Symbol), uc.cfg.TechnicalTTL, func(ctx context.Context) (models.Analysis, error) {
		computed = true
		series, err := uc.bars.LatestBars(ctx, req.Symbol, req.N)
		if err != nil {
			return models.Analysis{}, fmt.Errorf("load bars for %s: %w", req.Symbol, err)
		}
		if err := series.Validate(); err != nil {
			return models.Analysis{}, fmt.Errorf("stored bars for %s: %w", req.Symbol, err)
		}
		uc.metrics.RecordAnalysis(req.Symbol, string(models.KindTechnical))
		return uc.compute(req.Symbol, series), nil
	})
	if err != nil {
		uc.metrics.RecordError("analyze")
		return nil, err
	}
	uc.metrics.RecordCache(string(models.KindTechnical), !computed)
	return &res, nil
}

// Scan analyzes several symbols concurrently and surfaces every emitted
// signal as an opportunity, strongest first. Per-symbol failures are logged
// and skipped so one bad symbol cannot sink the scan. The symbol list is
// truncated at the configured maximum.
func (uc *AnalyzerUseCase) Scan(ctx context.Context, req models.ScanRequest) ([]models.Opportunity, error) {
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("symbols required")
	}
	symbols := req.Symbols
	if len(symbols) > uc.cfg.MaxScanSymbols {
		uc.log.Warn("scan symbol list truncated",
			logger.Int("requested", len(symbols)),
			logger.Int("max", uc.cfg.MaxScanSymbols))
		symbols = symbols[:uc.cfg.MaxScanSymbols]
	}

	type item struct {
		analysis *models.Analysis
		err      error
	}
	ch := make(chan item, len(symbols))
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			analysis, err := uc.Analyze(ctx, models.AnalyzeRequest{Symbol: symbol, N: req.N})
			ch <- item{analysis, err}
		}(symbol)
	}
	go func() { wg.Wait(); close(ch) }()

	var out []models.Opportunity
	for it := range ch {
		if it.err != nil {
			uc.log.Warn("scan symbol failed", logger.Error(it.err))
			continue
		}
		for _, sig := range it.analysis.Signals {
			out = append(out, models.Opportunity{
				Symbol:     it.analysis.Symbol,
				Direction:  sig.Direction,
				Confidence: sig.Confidence,
				Strength:   sig.Strength,
				Patterns:   it.analysis.Patterns,
				Indicators: it.analysis.Indicators,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out, nil
}

func (uc *AnalyzerUseCase) compute(symbol string, series models.PriceSeries) models.Analysis {
	set := uc.engine.Compute(series)
	matches := uc.det.Detect(series)
	signals := uc.agg.Aggregate(set, matches)

	uc.log.Debug("analysis computed",
		logger.String("symbol", symbol),
		logger.Int("bars", len(series)),
		logger.Int("patterns", len(matches)),
		logger.Int("signals", len(signals)))

	return models.Analysis{
		Symbol:     symbol,
		Indicators: set,
		Patterns:   matches,
		Signals:    signals,
	}
}
