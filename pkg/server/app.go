package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	drepo "RegionFeed/internal/domain/repository"
	"RegionFeed/internal/repository"
	"RegionFeed/internal/service/hub"
	"RegionFeed/internal/usecase"
	"RegionFeed/pkg/config"
	xhttp "RegionFeed/pkg/http"
	pkgkafka "RegionFeed/pkg/kafka"
	applogger "RegionFeed/pkg/logger"
)

// Deps are the components the application drives. Scheduler and Source are
// nil on followers. Consumer and Relay are nil on leaders unless they share a
// fetch lease. Publisher is nil unless a leader relays over Kafka.
type Deps struct {
	Logger     *applogger.Logger
	Admitter   *usecase.Admitter
	Hub        *hub.Hub
	Scheduler  *usecase.Scheduler
	Source     drepo.DataSource
	Publisher  *repository.KafkaSnapshotPublisher
	Consumer   *pkgkafka.Consumer
	Relay      *usecase.SnapshotRelay
	HTTPServer *xhttp.Server
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	log *applogger.Logger
	d   Deps
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, d Deps) *App {
	return &App{cfg: cfg, log: d.Logger, d: d}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		a.shutdown()
		return err
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

func (a *App) start(ctx context.Context) error {
	a.d.Admitter.Subscribe(a.d.Hub)
	if a.d.Publisher != nil {
		// relayed snapshots are not published again
		a.d.Admitter.SubscribeStage(usecase.StageFetch, a.d.Publisher)
		a.log.Info("snapshot relay enabled", applogger.String("topic", a.cfg.Kafka.Topic))
	}

	if err := a.d.HTTPServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	if a.d.Consumer != nil && a.d.Relay != nil {
		a.d.Consumer.RegisterHandler(a.d.Relay)
		if err := a.d.Consumer.Start(ctx); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("following snapshots",
			applogger.String("topic", a.d.Relay.Topic()),
			applogger.String("role", a.cfg.Kafka.Role),
		)
	}

	if a.cfg.Kafka.Role == config.RoleLeader {
		if err := a.d.Scheduler.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		a.log.Info("scheduler started",
			applogger.String("source", a.cfg.Source.Type),
			applogger.Duration("interval", a.cfg.Refresh.Interval),
		)
	}
	return nil
}

// shutdown stops producers of snapshots first, then the transports.
func (a *App) shutdown() {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.d.Scheduler != nil {
		if err := a.d.Scheduler.Stop(ctx); err != nil {
			a.log.Warn("scheduler stop error", applogger.Error(err))
		}
	}
	if a.d.Consumer != nil {
		if err := a.d.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.d.HTTPServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	a.d.Hub.Close()

	if a.d.Publisher != nil {
		if err := a.d.Publisher.Close(); err != nil {
			a.log.Warn("kafka publisher close error", applogger.Error(err))
		}
	}
	if a.d.Source != nil {
		if err := a.d.Source.Close(); err != nil {
			a.log.Warn("source close error", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
}
