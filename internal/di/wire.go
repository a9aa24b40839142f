//go:build wireinject
// +build wireinject

package di

import (
	"RegionFeed/pkg/config"
	"RegionFeed/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideReplicaID,
		ProvideLogger,

		// Metrics
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDatabase,
		ProvideLocker,

		// Repositories
		ProvideDataSource,
		ProvideFetchLease,
		ProvideSnapshotPublisher,
		ProvideKafkaConsumer,

		// Snapshot pipeline
		ProvideSnapshotCache,
		ProvideAdmitter,
		ProvideHub,
		ProvideScheduler,
		ProvideSnapshotRelay,
		ProvideRoles,

		// HTTP
		ProvideFeedHandler,
		ProvideRolesHandler,
		ProvideHTTPServer,

		// Application server
		wire.Struct(new(server.Deps), "*"),
		ProvideApp,
	)
	return nil, nil, nil
}
