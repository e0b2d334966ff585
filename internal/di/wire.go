//go:build wireinject
// +build wireinject

package di

import (
	"TickerDeck/pkg/config"
	"TickerDeck/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Layout
		ProvideLayoutStore,
		ProvideLayoutService,

		// Market data
		ProvideSnapshotCache,
		ProvideMarketData,
		ProvideSearchService,

		// Feeds
		ProvideFeeds,

		// Recording backends
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideTickStore,
		ProvideTickPublisher,
		ProvideTickProcessor,
		ProvideRecorder,
		ProvideBarsUseCase,

		// HTTP surface
		ProvideLimiter,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
