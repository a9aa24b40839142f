package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordError("fetch")
	r.RecordError("fetch")
	r.RecordRejected("server", 3)
	r.RecordRejected("server", 0)
	r.RecordSnapshot(7, 120)
	r.RecordSubscribers(4)
	r.RecordSkippedFetch()
	r.RecordLatency("fetch", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("fetch")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rejectedRows.WithLabelValues("server")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.snapshotVersion))
	assert.Equal(t, 120.0, testutil.ToFloat64(r.snapshotRecords))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.subscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skippedFetches))
}

func TestTwoRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
