//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

// InitializeApp below expands the injector in wire.go by hand. Running
// go generate replaces this file with wire's output.

import (
	"RegionFeed/pkg/config"
	"RegionFeed/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	snapshotCache := ProvideSnapshotCache()
	registry := ProvideRegistry()
	metrics := ProvideMetrics(registry)
	admitter := ProvideAdmitter(snapshotCache, logger, metrics)
	hub := ProvideHub(snapshotCache, logger, metrics)
	client, cleanup, err := ProvideDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	dataSource := ProvideDataSource(cfg, client)
	locker, cleanup2, err := ProvideLocker(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	fetchLease := ProvideFetchLease(locker)
	scheduler := ProvideScheduler(cfg, dataSource, admitter, fetchLease, logger, metrics)
	replicaID := ProvideReplicaID()
	kafkaSnapshotPublisher, err := ProvideSnapshotPublisher(cfg, replicaID, logger, metrics)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	consumer, err := ProvideKafkaConsumer(cfg, replicaID, logger, metrics)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	snapshotRelay := ProvideSnapshotRelay(cfg, admitter, logger, metrics)
	feedEchoHandler := ProvideFeedHandler(cfg, hub, snapshotCache, scheduler, logger)
	roles := ProvideRoles()
	rolesEchoHandler := ProvideRolesHandler(roles, logger)
	httpServer := ProvideHTTPServer(cfg, feedEchoHandler, rolesEchoHandler, registry, logger)
	deps := server.Deps{
		Logger:     logger,
		Admitter:   admitter,
		Hub:        hub,
		Scheduler:  scheduler,
		Source:     dataSource,
		Publisher:  kafkaSnapshotPublisher,
		Consumer:   consumer,
		Relay:      snapshotRelay,
		HTTPServer: httpServer,
	}
	app := ProvideApp(cfg, deps)
	return app, func() {
		cleanup2()
		cleanup()
	}, nil
}
