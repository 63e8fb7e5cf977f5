//go:build wireinject
// +build wireinject

package di

import (
	"MarketSage/pkg/config"
	"MarketSage/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgres,
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideBarStore,
		ProvidePredictionStore,
		ProvideEventPublisher,

		// Collaborator services
		ProvideQuotes,
		ProvideSentiment,

		// Use cases
		ProvideAnalyzer,
		ProvidePredictor,
		ProvideVerifier,
		ProvideBarEventsHandler,

		// Transport
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
