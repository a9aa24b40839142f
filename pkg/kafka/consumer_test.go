package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetMetricsRegisterer(prometheus.NewRegistry())
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      chan kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type recordingHandler struct {
	mu      sync.Mutex
	got     []string
	failFor map[string]int
}

func (h *recordingHandler) Topic() string { return "snapshots" }

func (h *recordingHandler) Handle(_ context.Context, b []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got = append(h.got, string(b))
	if h.failFor[string(b)] > 0 {
		h.failFor[string(b)]--
		return errors.New("transient")
	}
	return nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.got...)
}

func newTestConsumer(t *testing.T, r *fakeReader) *Consumer {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	c.newReader = func(string) reader { return r }
	return c
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}

func TestConsumerHandlesInOrderAndCommits(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 3)}
	h := &recordingHandler{failFor: map[string]int{"b": 1}}
	c := newTestConsumer(t, r)
	c.RegisterHandler(h)

	var errs []error
	var mu sync.Mutex
	c.WithConsumerHook(HookFuncs{Err: func(_ context.Context, _ string, _ kafka.Message, _ []byte, err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}})

	require.NoError(t, c.Start(context.Background()))
	r.msgs <- kafka.Message{Offset: 1, Value: []byte("a")}
	r.msgs <- kafka.Message{Offset: 2, Value: []byte("b")}
	r.msgs <- kafka.Message{Offset: 3, Value: []byte("c")}

	require.Eventually(t, func() bool { return len(r.commits()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "b", "b", "c"}, h.seen())
	assert.Equal(t, []int64{1, 2, 3}, r.commits())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	assert.True(t, r.closed)

	mu.Lock()
	assert.Len(t, errs, 1)
	mu.Unlock()
}

func TestConsumerBeforeHookCanReject(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 1)}
	h := &recordingHandler{}
	c := newTestConsumer(t, r)
	c.RegisterHandler(h)
	c.WithConsumerHook(HookFuncs{Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
		return ctx, km, data, &HookError{Code: "ERR_SCHEMA"}
	}})

	require.NoError(t, c.Start(context.Background()))
	r.msgs <- kafka.Message{Offset: 9, Value: []byte("x")}

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, h.seen())
	require.NoError(t, c.Stop(context.Background()))
}

func TestStartWithoutHandlers(t *testing.T) {
	c := newTestConsumer(t, &fakeReader{})
	assert.Error(t, c.Start(context.Background()))
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}
