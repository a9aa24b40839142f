package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/service/cache"
	"RegionFeed/internal/service/hub"
	"RegionFeed/internal/usecase"
	"RegionFeed/pkg/config"
	xhttp "RegionFeed/pkg/http"
	"RegionFeed/pkg/logger"
	"RegionFeed/pkg/metrics"
)

type staticSource struct{ rows []models.Row }

func (s staticSource) Fetch(context.Context) ([]models.Row, error) { return s.rows, nil }
func (s staticSource) Close() error                                { return nil }

func TestLeaderRunsUntilCancelled(t *testing.T) {
	cfg := config.Default()
	log := logger.NewNop()

	c := cache.NewSnapshotCache()
	admit := usecase.NewAdmitter(c, log, metrics.Nop{})
	h := hub.New(c, log, metrics.Nop{})
	src := staticSource{rows: []models.Row{
		{"regionCode": "610103001", "streetName": "长乐坊街道", "categoryName": "供暖", "settledAmount": "10", "settledCount": 1},
		{"regionCode": "61", "streetName": "x", "categoryName": "y"},
	}}
	sched := usecase.NewScheduler(src, admit, nil, usecase.SchedulerConfig{Interval: time.Hour}, log, metrics.Nop{})

	app := New(cfg, Deps{
		Logger:     log,
		Admitter:   admit,
		Hub:        h,
		Scheduler:  sched,
		Source:     src,
		HTTPServer: xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	require.Eventually(t, func() bool { return c.Version() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, c.Current().Len())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, usecase.StateIdle, sched.State())
}
