//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/sourav-625/market-regime-radar/pkg/config"
	"github.com/sourav-625/market-regime-radar/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvidePriceSource,
		ProvideRunStore,
		ProvideReportPublisher,

		// Use cases
		ProvideEstimator,
		ProvideRegimeAnalysis,
		ProvideHistory,

		// Transport
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,
		ProvideKafkaRequestsHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
