package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegionFeed/internal/repository"
	"RegionFeed/pkg/cache"
	"RegionFeed/pkg/config"
	"RegionFeed/pkg/logger"
	"RegionFeed/pkg/metrics"
)

func TestFollowerHasNoSource(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Role = config.RoleFollower

	db, cleanup, err := ProvideDatabase(cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, db)

	src := ProvideDataSource(cfg, db)
	assert.Nil(t, src)
	assert.Nil(t, ProvideScheduler(cfg, src, nil, nil, logger.NewNop(), metrics.Nop{}))

	relay := ProvideSnapshotRelay(cfg, nil, logger.NewNop(), metrics.Nop{})
	require.NotNil(t, relay)
	assert.Equal(t, cfg.Kafka.Topic, relay.Topic())

	pub, err := ProvideSnapshotPublisher(cfg, "r1", logger.NewNop(), metrics.Nop{})
	require.NoError(t, err)
	assert.Nil(t, pub)
}

func TestLeadersSharingLeaseConsumeRelay(t *testing.T) {
	cfg := config.Default()
	assert.False(t, cfg.ConsumesRelay())
	c, err := ProvideKafkaConsumer(cfg, "r1", logger.NewNop(), metrics.Nop{})
	require.NoError(t, err)
	assert.Nil(t, c)

	cfg.Redis.Enabled = true
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	require.True(t, cfg.ConsumesRelay())

	c, err = ProvideKafkaConsumer(cfg, "r1", logger.NewNop(), metrics.Nop{})
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.NotNil(t, ProvideSnapshotRelay(cfg, nil, logger.NewNop(), metrics.Nop{}))
}

func TestLeaderSQLiteSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Driver = "sqlite"
	cfg.Source.DSN = "file::memory:"

	db, cleanup, err := ProvideDatabase(cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, db)

	src := ProvideDataSource(cfg, db)
	assert.IsType(t, &repository.SQLSource{}, src)
	assert.Nil(t, ProvideSnapshotRelay(cfg, nil, logger.NewNop(), metrics.Nop{}))
}

func TestHTTPSourceSelected(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Type = "http"
	cfg.Source.URL = "http://upstream.invalid/rows"

	assert.IsType(t, &repository.HTTPSource{}, ProvideDataSource(cfg, nil))
}

func TestLockerFallsBackToMemory(t *testing.T) {
	cfg := config.Default()
	l, cleanup, err := ProvideLocker(cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &cache.MemoryCache{}, l)
}

func TestReplicaIDsDiffer(t *testing.T) {
	assert.NotEqual(t, ProvideReplicaID(), ProvideReplicaID())
}
