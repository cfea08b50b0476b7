//go:build wireinject
// +build wireinject

package di

import (
	"RegimePulse/pkg/config"
	"RegimePulse/pkg/server"

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
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideStateStore,
		ProvideAlertPublisher,
		ProvideTransitionArchive,
		ProvideVolatilityStream,

		// Domain services and use cases
		ProvideClassifier,
		ProvideCrisisStore,
		ProvideVolCollector,

		// HTTP
		ProvideCrisisHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
