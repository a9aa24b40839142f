package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/domain/repository"
	pkgkafka "RegionFeed/pkg/kafka"
	"RegionFeed/pkg/logger"
	"RegionFeed/pkg/util"

	"github.com/segmentio/kafka-go"
)

// Relay message headers.
const (
	HeaderOrigin     = "origin"
	HeaderVersion    = "version"
	HeaderCapturedAt = "captured_at"
)

// ErrSelfEcho marks a relayed snapshot produced by this replica.
var ErrSelfEcho = errors.New("snapshot published by this replica")

// relayKey keeps every snapshot on one partition so followers see them in order.
var relayKey = []byte("snapshot")

type messageWriter interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
	Close() error
}

// KafkaSnapshotPublisher relays installed snapshots to other replicas. As a
// SnapshotListener it publishes in the background, latest snapshot first;
// a snapshot superseded before it was sent is skipped.
type KafkaSnapshotPublisher struct {
	w       messageWriter
	topic   string
	origin  string
	timeout time.Duration
	log     *logger.Logger
	metrics repository.Metrics

	pending chan *models.Snapshot
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewKafkaSnapshotPublisher(w messageWriter, topic, origin string, timeout time.Duration, log *logger.Logger, metrics repository.Metrics) *KafkaSnapshotPublisher {
	p := &KafkaSnapshotPublisher{
		w:       w,
		topic:   topic,
		origin:  origin,
		timeout: timeout,
		log:     log.With(logger.String("component", "kafka_relay")),
		metrics: metrics,
		pending: make(chan *models.Snapshot, 1),
		done:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, s *models.Snapshot) error {
	b, err := s.Payload()
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", s.Version(), err)
	}
	headers := []kafka.Header{
		{Key: HeaderOrigin, Value: []byte(p.origin)},
		{Key: HeaderVersion, Value: []byte(strconv.FormatUint(s.Version(), 10))},
		{Key: HeaderCapturedAt, Value: []byte(util.FormatISO(s.CapturedAt()))},
	}
	if err := p.w.Publish(ctx, p.topic, relayKey, b, headers...); err != nil {
		return fmt.Errorf("publish snapshot %d: %w", s.Version(), err)
	}
	return nil
}

// OnSnapshot queues s for publishing, replacing any snapshot still waiting.
func (p *KafkaSnapshotPublisher) OnSnapshot(s *models.Snapshot) {
	for {
		select {
		case <-p.done:
			return
		case p.pending <- s:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

func (p *KafkaSnapshotPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case s := <-p.pending:
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			start := time.Now()
			err := p.Publish(ctx, s)
			cancel()
			p.metrics.RecordLatency("relay_publish", time.Since(start).Seconds())
			if err != nil {
				p.metrics.RecordError("relay_publish")
				p.log.Error("relay publish failed", logger.Error(err))
				continue
			}
			p.log.Debug("snapshot relayed", logger.Uint64("version", s.Version()), logger.Int("records", s.Len()))
		}
	}
}

// Close stops the background publisher and closes the writer.
func (p *KafkaSnapshotPublisher) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		err = p.w.Close()
	})
	return err
}

// RelayHook filters relay messages before they reach the handler: messages
// this replica produced are dropped and rejections are logged.
func RelayHook(origin string, log *logger.Logger, metrics repository.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			if headerValue(km.Headers, HeaderOrigin) == origin {
				return ctx, km, data, pkgkafka.Reject("ERR_SELF_ECHO", ErrSelfEcho)
			}
			if len(data) == 0 {
				return ctx, km, data, pkgkafka.Reject("ERR_EMPTY", errors.New("empty relay message"))
			}
			return ctx, km, data, nil
		},
		Err: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			if errors.Is(err, ErrSelfEcho) {
				return
			}
			metrics.RecordError("relay_consume")
			log.Warn("relay message rejected",
				logger.String("topic", topic),
				logger.Int64("offset", km.Offset),
				logger.String("version", headerValue(km.Headers, HeaderVersion)),
				logger.Error(err),
			)
		},
	}
}

func headerValue(hs []kafka.Header, key string) string {
	for _, h := range hs {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

var (
	_ repository.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)
	_ repository.SnapshotListener  = (*KafkaSnapshotPublisher)(nil)
)
