package models

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"
)

// Snapshot is an immutable, versioned capture of the dataset. Accessors hand
// out copies, so holders can never observe each other's mutations.
type Snapshot struct {
	version    uint64
	capturedAt time.Time
	records    []Record

	once    sync.Once
	payload []byte
	err     error
}

// NewSnapshot copies records into a new snapshot.
func NewSnapshot(version uint64, capturedAt time.Time, records []Record) *Snapshot {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Snapshot{version: version, capturedAt: capturedAt, records: cp}
}

func (s *Snapshot) Version() uint64       { return s.version }
func (s *Snapshot) CapturedAt() time.Time { return s.capturedAt }
func (s *Snapshot) Len() int              { return len(s.records) }

// Records returns a copy of the records in source order.
func (s *Snapshot) Records() []Record {
	cp := make([]Record, len(s.records))
	copy(cp, s.records)
	return cp
}

// Payload returns a copy of the encoded push frame.
func (s *Snapshot) Payload() ([]byte, error) {
	b, err := s.SharedPayload()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

// SharedPayload returns the encoded push frame without copying. It is
// computed once and shared by every holder, so it is read-only.
func (s *Snapshot) SharedPayload() ([]byte, error) {
	s.once.Do(func() {
		s.payload, s.err = json.Marshal(NewPayload(s))
	})
	return s.payload, s.err
}
