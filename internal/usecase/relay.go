package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"RegionFeed/internal/domain/models"
	drepo "RegionFeed/internal/domain/repository"
	pkgkafka "RegionFeed/pkg/kafka"
	"RegionFeed/pkg/logger"
	"RegionFeed/pkg/util"
)

// ErrRelayDecode marks a relayed payload that could not be decoded.
var ErrRelayDecode = errors.New("relay payload decode failed")

// SnapshotRelay installs snapshots produced by another replica. Payloads
// captured at or before the current snapshot are dropped, so redelivery and
// a replica's own echo are harmless.
type SnapshotRelay struct {
	topic   string
	admit   *Admitter
	log     *logger.Logger
	metrics drepo.Metrics
}

func NewSnapshotRelay(topic string, admit *Admitter, log *logger.Logger, metrics drepo.Metrics) *SnapshotRelay {
	return &SnapshotRelay{
		topic:   topic,
		admit:   admit,
		log:     log.With(logger.String("component", "relay")),
		metrics: metrics,
	}
}

func (r *SnapshotRelay) Topic() string { return r.topic }

func (r *SnapshotRelay) Handle(_ context.Context, b []byte) error {
	var p struct {
		Data          []models.Row `json:"data"`
		DBConnectTime string       `json:"dbConnectTime"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		r.metrics.RecordError("relay_decode")
		return fmt.Errorf("%w: %w", ErrRelayDecode, err)
	}
	if p.Data == nil {
		r.metrics.RecordError("relay_decode")
		return fmt.Errorf("%w: missing data array", ErrRelayDecode)
	}
	capturedAt, ok := util.ParseTime(p.DBConnectTime)
	if !ok {
		r.metrics.RecordError("relay_decode")
		return fmt.Errorf("%w: bad dbConnectTime %q", ErrRelayDecode, p.DBConnectTime)
	}

	snap, installed := r.admit.AdmitIfNewer(StageRelay, p.Data, capturedAt)
	if !installed {
		r.log.Debug("stale relayed snapshot dropped",
			logger.Time("captured_at", capturedAt),
			logger.Time("current", snap.CapturedAt()),
		)
		return nil
	}
	r.log.Info("relayed snapshot installed",
		logger.Uint64("version", snap.Version()),
		logger.Int("records", snap.Len()),
		logger.Time("captured_at", capturedAt),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*SnapshotRelay)(nil)
