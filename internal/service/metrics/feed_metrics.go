// Package metrics holds Prometheus collectors of the feed client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Feed counts what the feed client receives and applies.
type Feed struct {
	frames       *prometheus.CounterVec
	rowsRejected prometheus.Counter
	applyLatency prometheus.Histogram
	queueWait    prometheus.Histogram
	reconnects   prometheus.Counter
}

func NewFeed(reg prometheus.Registerer) *Feed {
	f := promauto.With(reg)
	return &Feed{
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regionfeed",
			Subsystem: "client",
			Name:      "frames_total",
			Help:      "Pushed frames by outcome",
		}, []string{"outcome"}),
		rowsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: "regionfeed",
			Subsystem: "client",
			Name:      "rows_rejected_total",
			Help:      "Rows dropped by client-side validation",
		}),
		applyLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "regionfeed",
			Subsystem: "client",
			Name:      "apply_seconds",
			Help:      "Time to commit one payload to region state",
			Buckets:   prometheus.DefBuckets,
		}),
		queueWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "regionfeed",
			Subsystem: "client",
			Name:      "queue_wait_seconds",
			Help:      "Time a payload waited in the ingest queue",
			Buckets:   prometheus.DefBuckets,
		}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: "regionfeed",
			Subsystem: "client",
			Name:      "reconnects_total",
			Help:      "Scheduled reconnect attempts",
		}),
	}
}

func (m *Feed) FrameAccepted() { m.frames.WithLabelValues("accepted").Inc() }
func (m *Feed) FrameDiscarded() { m.frames.WithLabelValues("discarded").Inc() }
func (m *Feed) RowsRejected(n int) { m.rowsRejected.Add(float64(n)) }
func (m *Feed) ReconnectScheduled() { m.reconnects.Inc() }
func (m *Feed) Applied(took, waited time.Duration) {
	m.applyLatency.Observe(took.Seconds())
	m.queueWait.Observe(waited.Seconds())
}
