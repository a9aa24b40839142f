package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"RegionFeed/internal/domain/models"
	pkgkafka "RegionFeed/pkg/kafka"
	"RegionFeed/pkg/logger"
	"RegionFeed/pkg/metrics"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafka.Header
}

type fakeWriter struct {
	mu     sync.Mutex
	sent   []sentMessage
	block  chan struct{}
	err    error
	closed bool
}

func (w *fakeWriter) Publish(_ context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.sent = append(w.sent, sentMessage{topic: topic, key: key, value: value, headers: headers})
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) messages() []sentMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sentMessage(nil), w.sent...)
}

func snapshot(v uint64) *models.Snapshot {
	return models.NewSnapshot(v, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), []models.Record{
		{RegionCode: "610102001", StreetName: "s", CategoryName: "c"},
	})
}

func TestPublishHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaSnapshotPublisher(w, "snaps", "replica-a", time.Second, logger.NewNop(), metrics.Nop{})
	defer p.Close()

	require.NoError(t, p.Publish(context.Background(), snapshot(4)))

	msgs := w.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "snaps", msgs[0].topic)
	assert.Equal(t, "snapshot", string(msgs[0].key))
	assert.Equal(t, "replica-a", headerValue(msgs[0].headers, HeaderOrigin))
	assert.Equal(t, "4", headerValue(msgs[0].headers, HeaderVersion))
	assert.Equal(t, "2024-05-01T08:00:00.000Z", headerValue(msgs[0].headers, HeaderCapturedAt))

	want, _ := snapshot(4).Payload()
	assert.JSONEq(t, string(want), string(msgs[0].value))
}

func TestOnSnapshotKeepsLatest(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	p := NewKafkaSnapshotPublisher(w, "snaps", "a", time.Second, logger.NewNop(), metrics.Nop{})

	p.OnSnapshot(snapshot(1))
	// Let the worker pick up v1 and block inside Publish.
	time.Sleep(20 * time.Millisecond)
	p.OnSnapshot(snapshot(2))
	p.OnSnapshot(snapshot(3))
	close(w.block)

	require.Eventually(t, func() bool { return len(w.messages()) == 2 }, time.Second, 5*time.Millisecond)
	msgs := w.messages()
	assert.Equal(t, "1", headerValue(msgs[0].headers, HeaderVersion))
	assert.Equal(t, "3", headerValue(msgs[1].headers, HeaderVersion))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	p.OnSnapshot(snapshot(4))
}

func TestRelayHook(t *testing.T) {
	h := RelayHook("me", logger.NewNop(), metrics.Nop{})
	ctx := context.Background()

	_, _, _, err := h.BeforeHandle(ctx, "t", kafka.Message{Headers: []kafka.Header{{Key: HeaderOrigin, Value: []byte("me")}}}, []byte("{}"))
	var he *pkgkafka.HookError
	require.True(t, errors.As(err, &he))
	assert.ErrorIs(t, err, ErrSelfEcho)

	_, _, _, err = h.BeforeHandle(ctx, "t", kafka.Message{}, nil)
	assert.Error(t, err)

	_, _, data, err := h.BeforeHandle(ctx, "t", kafka.Message{Headers: []kafka.Header{{Key: HeaderOrigin, Value: []byte("other")}}}, []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
