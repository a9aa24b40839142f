package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	rejectedRows    *prometheus.CounterVec
	snapshotVersion prometheus.Gauge
	snapshotRecords prometheus.Gauge
	subscribers     prometheus.Gauge
	skippedFetches  prometheus.Counter
}

// New creates a recorder registered on reg. Pass prometheus.DefaultRegisterer
// to expose it on the default /metrics handler.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionfeed_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regionfeed_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		rejectedRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionfeed_rows_rejected_total",
				Help: "Rows dropped by validation",
			},
			[]string{"stage"},
		),
		snapshotVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "regionfeed_snapshot_version",
			Help: "Version of the current snapshot",
		}),
		snapshotRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "regionfeed_snapshot_records",
			Help: "Number of records in the current snapshot",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "regionfeed_subscribers",
			Help: "Connected push subscribers",
		}),
		skippedFetches: f.NewCounter(prometheus.CounterOpts{
			Name: "regionfeed_fetches_skipped_total",
			Help: "Scheduled fetches skipped because one was already running",
		}),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordRejected(stage string, n int) {
	if n > 0 {
		r.rejectedRows.WithLabelValues(stage).Add(float64(n))
	}
}

func (r *Recorder) RecordSnapshot(version uint64, records int) {
	r.snapshotVersion.Set(float64(version))
	r.snapshotRecords.Set(float64(records))
}

func (r *Recorder) RecordSubscribers(n int) {
	r.subscribers.Set(float64(n))
}

func (r *Recorder) RecordSkippedFetch() {
	r.skippedFetches.Inc()
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordRejected(string, int)    {}
func (Nop) RecordSnapshot(uint64, int)    {}
func (Nop) RecordSubscribers(int)         {}
func (Nop) RecordSkippedFetch()           {}
