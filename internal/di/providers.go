package di

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	domrepo "MarketSage/internal/domain/repository"
	domservice "MarketSage/internal/domain/service"
	"MarketSage/internal/handler/api"
	internalrepo "MarketSage/internal/repository"
	"MarketSage/internal/service/quotes"
	"MarketSage/internal/service/sentiment"
	"MarketSage/internal/services/forecast"
	"MarketSage/internal/services/indicators"
	"MarketSage/internal/services/patterns"
	"MarketSage/internal/services/scoring"
	"MarketSage/internal/usecase"
	"MarketSage/pkg/cache"
	pkgch "MarketSage/pkg/clickhouse"
	"MarketSage/pkg/config"
	xhttp "MarketSage/pkg/http"
	pkgkafka "MarketSage/pkg/kafka"
	applogger "MarketSage/pkg/logger"
	"MarketSage/pkg/metrics"
	"MarketSage/pkg/server"
	"MarketSage/pkg/util"

	_ "github.com/lib/pq"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		format = "json"
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvidePostgres opens the Postgres pool used by the prediction store.
func ProvidePostgres(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the bar
// table exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append([]string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
	}, internalrepo.BarSchema...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideCache builds the cache backend: in-process memory, layered with
// Redis when a shared tier is configured.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, error) {
	local := cache.NewMemoryCache(
		cache.WithMaxSize(2048),
		cache.WithCleanupInterval(time.Minute),
	)
	if !cfg.Redis.Enabled {
		return local, nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	shared, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(util.ParseIntDefault(portStr, 6379)),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Info("redis cache connected")
	return cache.NewLayeredCache(local, shared, time.Minute), nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the bar ingest consumer, or nil when Kafka
// is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.Topics.Bars == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideBarStore creates the ClickHouse bar repository.
func ProvideBarStore(ch *pkgch.Client, log *applogger.Logger) *internalrepo.CHBarStore {
	store := internalrepo.NewCHBarStore(ch)
	store.SetLogger(log)
	return store
}

// ProvidePredictionStore creates the Postgres prediction repository and
// ensures its schema.
func ProvidePredictionStore(db *sql.DB, log *applogger.Logger) (domrepo.PredictionStore, error) {
	store := internalrepo.NewPGPredictionStore(db)
	store.SetLogger(log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("prediction schema: %w", err)
	}
	return store, nil
}

// ProvideEventPublisher creates the prediction event publisher. Without
// Kafka the publisher is a no-op.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topics.PredictionCreated, cfg.Kafka.Topics.PredictionVerified)
}

// ProvideQuotes creates the market quote client.
func ProvideQuotes(cfg *config.Config, log *applogger.Logger) domservice.PriceLookup {
	timeout := cfg.Quotes.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := xhttp.NewClient(xhttp.WithTimeout(timeout))
	return quotes.New(hc, cfg.Quotes.BaseURL, cfg.Quotes.Token, log)
}

// ProvideSentiment creates the news sentiment client, or nil when the
// sentiment feed is disabled.
func ProvideSentiment(cfg *config.Config, log *applogger.Logger) domservice.SentimentProvider {
	if !cfg.Sentiment.Enabled {
		return nil
	}
	timeout := cfg.Sentiment.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := xhttp.NewClient(xhttp.WithTimeout(timeout))
	return sentiment.New(hc, cfg.Sentiment.BaseURL, cfg.Sentiment.Token, log)
}

// ProvideAnalyzer creates the technical analysis use case.
func ProvideAnalyzer(
	bars *internalrepo.CHBarStore,
	cacheSvc cache.Service,
	cfg *config.Config,
	log *applogger.Logger,
	m domrepo.Metrics,
) *usecase.AnalyzerUseCase {
	engine := indicators.NewEngine(cfg.Analysis.Indicators)
	det := patterns.NewDetector()
	agg := scoring.NewAggregator(scoring.Config{PatternThreshold: cfg.Analysis.PatternThreshold})
	return usecase.NewAnalyzerUseCase(bars, engine, det, agg, cacheSvc, usecase.AnalyzerConfig{
		TechnicalTTL:   cfg.Analysis.TechnicalTTL,
		Timeout:        cfg.Analysis.Timeout,
		Window:         cfg.Analysis.Window,
		MaxScanSymbols: cfg.Analysis.MaxScanSymbols,
	}, log, m)
}

// ProvidePredictor creates the prediction use case.
func ProvidePredictor(
	analyzer *usecase.AnalyzerUseCase,
	sent domservice.SentimentProvider,
	cacheSvc cache.Service,
	store domrepo.PredictionStore,
	publisher domrepo.EventPublisher,
	cfg *config.Config,
	log *applogger.Logger,
	m domrepo.Metrics,
) *usecase.PredictorUseCase {
	synth := forecast.NewSynthesizer(forecast.Config{ConfidenceThreshold: cfg.Analysis.ConfidenceThreshold})
	return usecase.NewPredictorUseCase(analyzer, synth, sent, cacheSvc, store, publisher, usecase.PredictorConfig{
		SentimentTTL:     cfg.Analysis.NewsTTL,
		SentimentRecency: cfg.Sentiment.Recency,
	}, log, m)
}

// ProvideVerifier creates the verification use case.
func ProvideVerifier(
	store domrepo.PredictionStore,
	prices domservice.PriceLookup,
	publisher domrepo.EventPublisher,
	log *applogger.Logger,
	m domrepo.Metrics,
) *usecase.VerifierUseCase {
	return usecase.NewVerifierUseCase(store, prices, publisher, log, m)
}

// ProvideBarEventsHandler registers the bar ingest handler for the bars
// topic.
func ProvideBarEventsHandler(bars *internalrepo.CHBarStore, cfg *config.Config, log *applogger.Logger, m domrepo.Metrics) *usecase.BarEventsHandler {
	return usecase.NewBarEventsHandler(cfg.Kafka.Topics.Bars, bars, log, m)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	log *applogger.Logger,
	analyzer *usecase.AnalyzerUseCase,
	predictor *usecase.PredictorUseCase,
	verifier *usecase.VerifierUseCase,
) xhttp.Handler {
	return api.NewAnalysisEchoHandler(log, analyzer, predictor, verifier)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	verifier *usecase.VerifierUseCase,
	consumer *pkgkafka.Consumer,
	barsHandler *usecase.BarEventsHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	db *sql.DB,
	cacheSvc cache.Service,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, log, handler, verifier, consumer, barsHandler, producer, chClient, db, cacheSvc)
}
