package server

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketSage/internal/usecase"
	"MarketSage/pkg/cache"
	pkgch "MarketSage/pkg/clickhouse"
	"MarketSage/pkg/config"
	xhttp "MarketSage/pkg/http"
	pkgkafka "MarketSage/pkg/kafka"
	applogger "MarketSage/pkg/logger"
)

// App encapsulates the entire application lifecycle: HTTP server, bar
// ingest consumer and the verification sweep loop.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	verifier    *usecase.VerifierUseCase
	consumer    *pkgkafka.Consumer
	barsHandler *usecase.BarEventsHandler
	producer    *pkgkafka.Producer
	chClient    *pkgch.Client
	db          *sql.DB
	cacheSvc    cache.Service
}

// New creates a new App instance with all dependencies.
func New(
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
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		httpHandler: handler,
		verifier:    verifier,
		consumer:    consumer,
		barsHandler: barsHandler,
		producer:    producer,
		chClient:    chClient,
		db:          db,
		cacheSvc:    cacheSvc,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start bar ingest consumer if configured
	if a.consumer != nil && a.barsHandler != nil {
		a.consumer.RegisterHandler(a.barsHandler)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("bar ingest started", applogger.String("topic", a.barsHandler.Topic()))
	}

	// Start verification sweep loop
	if a.cfg.Verification.Enabled {
		go a.sweepLoop(ctx)
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// sweepLoop settles expired pending predictions on a fixed interval.
func (a *App) sweepLoop(ctx context.Context) {
	interval := a.cfg.Verification.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.Info("verification sweep started", applogger.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := a.verifier.Sweep(ctx, nil)
			if err != nil {
				a.log.Error("verification sweep error", applogger.Error(err))
				continue
			}
			if res.Checked > 0 {
				a.log.Info("verification sweep done",
					applogger.Int("checked", res.Checked),
					applogger.Int("correct", res.Correct),
					applogger.Int("incorrect", res.Incorrect),
					applogger.Int("skipped", res.Skipped),
				)
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	// Shutdown HTTP server first so no new work arrives
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close Kafka producer
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.cacheSvc != nil {
		if err := a.cacheSvc.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("postgres close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
