// Command watch subscribes to a RegionFeed server and logs the derived
// regional statistics after every update. SIGHUP forces a reconnect.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/service/feed"
	"RegionFeed/internal/service/metrics"
	"RegionFeed/internal/services/ingest"
	"RegionFeed/internal/services/regionstate"
	"RegionFeed/pkg/config"
	applogger "RegionFeed/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	region := flag.String("region", "", "region filter, ALL or one of "+strings.Join(models.DistrictCodes(), ",")+" (overrides feed.region)")
	view := flag.String("view", string(regionstate.ViewDistricts), "districts or streets")
	district := flag.String("district", "", "district to expand in streets view")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	l, err := applogger.New(&applogger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	store := regionstate.NewStore()
	if *region == "" {
		*region = cfg.Feed.Region
	}
	if err := store.SetRegion(*region); err != nil {
		log.Fatalf("region: %v", err)
	}
	if err := store.SetView(regionstate.ViewMode(*view)); err != nil {
		log.Fatalf("view: %v", err)
	}
	if *district != "" {
		if err := store.SetSelectedDistrict(*district); err != nil {
			log.Fatalf("district: %v", err)
		}
	}
	store.OnChange(func(v *regionstate.ViewState) { report(l, v) })

	var opts []feed.Option
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, feed.WithRecorder(metrics.NewFeed(reg)))
		go serveMetrics(l, *metricsAddr, reg)
	}

	mgr := feed.NewManager(feed.Config{
		URL:               cfg.Feed.URL,
		ReconnectAttempts: cfg.Feed.ReconnectAttempts,
		ReconnectInterval: cfg.Feed.ReconnectInterval,
		DialTimeout:       10 * time.Second,
		ApplyDelay:        cfg.Feed.ApplyDelay,
	}, feed.NewWebsocketDialer(10*time.Second, cfg.Hub.PingInterval*2), func(it ingest.Item) {
		store.Commit(it.Records, it.CapturedAt)
	}, l, opts...)
	mgr.OnStatus(store.SetStatus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	mgr.Connect(ctx)
	l.Info("watching feed", applogger.String("url", cfg.Feed.URL), applogger.String("region", *region))

	for {
		select {
		case <-ctx.Done():
			mgr.Close()
			info := mgr.ConnectionInfo()
			l.Info("stopped", applogger.Int("reconnect_attempts", info.ReconnectAttempts))
			return
		case <-hup:
			l.Info("manual reconnect")
			mgr.Reconnect(ctx)
		}
	}
}

func report(l *applogger.Logger, v *regionstate.ViewState) {
	l.Info("region view",
		applogger.String("status", string(v.Status)),
		applogger.String("region", v.Filter.Region),
		applogger.String("captured_at", v.CapturedAt.Format(time.RFC3339)),
		applogger.Int("records", v.Totals.Records),
		applogger.Int("categories", v.Totals.Categories),
		applogger.String("amount", v.Totals.Amount.StringFixed(2)),
		applogger.Int64("count", v.Totals.Count),
	)
	for _, d := range v.Districts {
		l.Debug("district",
			applogger.String("code", d.Code),
			applogger.String("name", d.Name),
			applogger.Int("records", d.Records),
			applogger.String("amount", d.Amount.StringFixed(2)),
		)
	}
	for _, s := range v.Streets {
		l.Debug("street",
			applogger.String("name", s.Name),
			applogger.Int("records", s.Records),
			applogger.String("amount", s.Amount.StringFixed(2)),
		)
	}
	if v.Status == models.StatusDisconnected && v.CapturedAt.IsZero() {
		l.Warn("no data received yet")
	}
}

func serveMetrics(l *applogger.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("metrics server", applogger.Error(err))
	}
}
