package di

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/segmentio/kafka-go"

	drepo "RegionFeed/internal/domain/repository"
	"RegionFeed/internal/handler/api"
	internalrepo "RegionFeed/internal/repository"
	icache "RegionFeed/internal/service/cache"
	"RegionFeed/internal/service/hub"
	"RegionFeed/internal/usecase"
	pkgcache "RegionFeed/pkg/cache"
	"RegionFeed/pkg/config"
	"RegionFeed/pkg/database"
	xhttp "RegionFeed/pkg/http"
	pkgkafka "RegionFeed/pkg/kafka"
	applogger "RegionFeed/pkg/logger"
	"RegionFeed/pkg/metrics"
	"RegionFeed/pkg/server"
)

// ReplicaID identifies this process in relayed snapshots.
type ReplicaID string

const fetchLeaseKey = "snapshot-fetch"

// ProvideReplicaID combines the host name with a random suffix so two
// processes on one host stay distinct.
func ProvideReplicaID() ReplicaID {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "regionfeed"
	}
	return ReplicaID(host + "-" + uuid.NewString()[:8])
}

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry shared by every collector.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pkgkafka.SetMetricsRegisterer(reg)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) drepo.Metrics {
	return metrics.New(reg)
}

func ProvideSnapshotCache() *icache.SnapshotCache {
	return icache.NewSnapshotCache()
}

func ProvideAdmitter(c *icache.SnapshotCache, log *applogger.Logger, m drepo.Metrics) *usecase.Admitter {
	return usecase.NewAdmitter(c, log, m)
}

func ProvideHub(c *icache.SnapshotCache, log *applogger.Logger, m drepo.Metrics) *hub.Hub {
	return hub.New(c, log, m)
}

// ProvideDatabase opens the SQL pool for leaders reading from a sql source.
func ProvideDatabase(cfg *config.Config) (*database.Client, func(), error) {
	if cfg.Kafka.Role == config.RoleFollower || cfg.Source.Type != "sql" {
		return nil, func() {}, nil
	}
	opts := []database.ClientOption{
		database.WithDriver(cfg.Source.Driver),
		database.WithDSN(cfg.Source.DSN),
		database.WithMaxConnections(cfg.Source.MaxOpenConns, max(1, cfg.Source.MaxOpenConns/2)),
		database.WithConnMaxLifetime(cfg.Source.ConnMaxLifetime),
		database.WithPingTimeout(cfg.Source.Timeout),
	}
	if cfg.Source.LazyConnect {
		opts = append(opts, database.WithoutPing())
	}
	client, err := database.NewClient(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideDataSource selects the configured source; nil on followers.
func ProvideDataSource(cfg *config.Config, db *database.Client) drepo.DataSource {
	if cfg.Kafka.Role == config.RoleFollower {
		return nil
	}
	if cfg.Source.Type == "http" {
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.Source.Timeout))
		return internalrepo.NewHTTPSource(client, cfg.Source.URL)
	}
	return internalrepo.NewSQLSource(db.DB(), cfg.Source.Query, cfg.Source.Timeout)
}

// ProvideLocker uses Redis when enabled and an in-process lock otherwise.
func ProvideLocker(cfg *config.Config) (pkgcache.Locker, func(), error) {
	if !cfg.Redis.Enabled {
		mc := pkgcache.NewMemoryCache()
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, 1, 5*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

func ProvideFetchLease(locker pkgcache.Locker) drepo.FetchLease {
	return internalrepo.NewLockLease(locker, fetchLeaseKey)
}

// ProvideScheduler creates the fetch scheduler; nil on followers.
func ProvideScheduler(
	cfg *config.Config,
	src drepo.DataSource,
	admit *usecase.Admitter,
	lease drepo.FetchLease,
	log *applogger.Logger,
	m drepo.Metrics,
) *usecase.Scheduler {
	if src == nil {
		return nil
	}
	return usecase.NewScheduler(src, admit, lease, usecase.SchedulerConfig{
		Interval:     cfg.Refresh.Interval,
		FetchTimeout: cfg.Refresh.FetchTimeout,
		LeaseTTL:     cfg.Redis.LeaseTTL,
	}, log, m)
}

// ProvideSnapshotPublisher relays installed snapshots when a leader has
// Kafka enabled.
func ProvideSnapshotPublisher(cfg *config.Config, id ReplicaID, log *applogger.Logger, m drepo.Metrics) (*internalrepo.KafkaSnapshotPublisher, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.Role != config.RoleLeader {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Producer.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.Producer.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic, string(id),
		cfg.Kafka.Producer.WriteTimeout, log, m), nil
}

// ProvideKafkaConsumer creates the relay consumer on followers and on leaders
// sharing a fetch lease. Each replica needs every snapshot, so the default
// group is per host.
func ProvideKafkaConsumer(cfg *config.Config, id ReplicaID, log *applogger.Logger, m drepo.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.ConsumesRelay() {
		return nil, nil
	}
	offset := kafka.FirstOffset
	if cfg.Kafka.Consumer.StartOffset == "last" {
		offset = kafka.LastOffset
	}
	group := cfg.Kafka.GroupID
	if group == "" {
		host, _ := os.Hostname()
		group = "regionfeed-" + host
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(group),
		pkgkafka.WithConsumerStartOffset(offset),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerMaxBytes(cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(internalrepo.RelayHook(string(id), log, m))
	return consumer, nil
}

// ProvideSnapshotRelay creates the handler installing relayed snapshots.
func ProvideSnapshotRelay(cfg *config.Config, admit *usecase.Admitter, log *applogger.Logger, m drepo.Metrics) *usecase.SnapshotRelay {
	if !cfg.ConsumesRelay() {
		return nil
	}
	return usecase.NewSnapshotRelay(cfg.Kafka.Topic, admit, log, m)
}

func ProvideRoles() *usecase.Roles {
	return usecase.NewRoles(internalrepo.NewStaticRoleCatalog())
}

func ProvideFeedHandler(cfg *config.Config, h *hub.Hub, c *icache.SnapshotCache, sched *usecase.Scheduler, log *applogger.Logger) *api.FeedEchoHandler {
	return api.NewFeedEchoHandler(h, c, sched, api.FeedConfig{
		Role:           cfg.Kafka.Role,
		WriteTimeout:   cfg.Hub.WriteTimeout,
		PingInterval:   cfg.Hub.PingInterval,
		ConnsPerMinute: cfg.Hub.ConnsPerMinute,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log)
}

func ProvideRolesHandler(roles *usecase.Roles, log *applogger.Logger) *api.RolesEchoHandler {
	return api.NewRolesEchoHandler(roles, log)
}

// ProvideHTTPServer registers every handler on one Echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	feed *api.FeedEchoHandler,
	roles *api.RolesEchoHandler,
	reg *prometheus.Registry,
	log *applogger.Logger,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithAllowOrigins(cfg.Server.AllowedOrigins),
		xhttp.WithLogger(log),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	return xhttp.NewServer([]xhttp.Handler{feed, roles}, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, d server.Deps) *server.App {
	return server.New(cfg, d)
}
