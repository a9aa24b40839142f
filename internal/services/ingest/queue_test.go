package ingest

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"RegionFeed/internal/domain/models"
	"RegionFeed/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(tag string) Item {
	return Item{Records: []models.Record{{RegionCode: tag}}, ReceivedAt: time.Now()}
}

type recorder struct {
	mu      sync.Mutex
	applied []string
}

func (r *recorder) apply(it Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, it.Records[0].RegionCode)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.applied...)
}

func TestQueueAppliesInArrivalOrder(t *testing.T) {
	r := &recorder{}
	q := New(r.apply, -1, logger.NewNop())

	want := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		tag := strconv.Itoa(i)
		want = append(want, tag)
		q.Enqueue(item(tag))
	}

	require.Eventually(t, func() bool { return len(r.list()) == 100 }, time.Second, time.Millisecond)
	assert.Equal(t, want, r.list())
	require.Eventually(t, func() bool { return q.State() == StateEmpty }, time.Second, time.Millisecond)
	assert.Equal(t, 0, q.Len())
}

func TestQueueSingleWorker(t *testing.T) {
	var active, maxActive atomic.Int32
	var applied atomic.Int32
	q := New(func(Item) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		applied.Add(1)
	}, -1, logger.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				q.Enqueue(item("x"))
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return applied.Load() == 80 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int32(1), maxActive.Load())
}

// Two payloads pushed back to back: the second must not start applying until
// the first has fully committed its fields.
func TestQueueNoInterleavedCommits(t *testing.T) {
	type pair struct{ a, b string }
	var mu sync.Mutex
	state := pair{}
	var observed []pair

	q := New(func(it Item) {
		tag := it.Records[0].RegionCode
		mu.Lock()
		state.a = tag
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		state.b = tag
		observed = append(observed, state)
		mu.Unlock()
	}, -1, logger.NewNop())

	q.Enqueue(item("S1"))
	q.Enqueue(item("S2"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(observed) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, []pair{{"S1", "S1"}, {"S2", "S2"}}, observed)
}

func TestQueueDelayBetweenItems(t *testing.T) {
	var stamps []time.Time
	var mu sync.Mutex
	q := New(func(Item) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
	}, 20*time.Millisecond, logger.NewNop())

	q.Enqueue(item("a"))
	q.Enqueue(item("b"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(stamps) == 2
	}, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
}

func TestQueueClearDropsPending(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	r := &recorder{}
	q := New(func(it Item) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-gate
		r.apply(it)
	}, -1, logger.NewNop())

	q.Enqueue(item("first"))
	<-started
	q.Enqueue(item("stale-1"))
	q.Enqueue(item("stale-2"))
	assert.Equal(t, 2, q.Len())
	assert.True(t, q.Draining())

	cleared := make(chan int)
	go func() { cleared <- q.Clear() }()

	// Clear waits for the in-flight apply.
	select {
	case <-cleared:
		t.Fatal("Clear returned while an apply was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(gate)
	assert.Equal(t, 2, <-cleared)

	q.Enqueue(item("fresh"))
	require.Eventually(t, func() bool { return len(r.list()) == 2 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, []string{"first", "fresh"}, r.list())
}

func TestQueueApplyPanicDoesNotStopWorker(t *testing.T) {
	r := &recorder{}
	q := New(func(it Item) {
		if it.Records[0].RegionCode == "bad" {
			panic("boom")
		}
		r.apply(it)
	}, -1, logger.NewNop())

	q.Enqueue(item("bad"))
	q.Enqueue(item("good"))
	require.Eventually(t, func() bool { return len(r.list()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"good"}, r.list())
}
