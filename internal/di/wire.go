//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"YieldScope/pkg/config"
	"YieldScope/pkg/server"
)

// InitializeApp wires every component from cfg.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvidePrometheusRegistry,
		ProvideMetrics,
		ProvideRedisCache,
		ProvideClickHouseClient,

		// Repositories
		ProvideOutputStore,
		ProvideHistory,
		ProvideOutputSinks,

		// Use cases
		ProvideEngineRegistry,
		ProvideSnapshotProcessor,
		ProvideSnapshotPipeline,
		ProvideBlockCollector,
		ProvideKafkaConsumer,
		ProvideKafkaSnapshotHandler,
		ProvideMarketQuery,

		// Transport
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
