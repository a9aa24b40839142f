package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/services/ingest"
	"RegionFeed/internal/services/rowcheck"
	"RegionFeed/pkg/util"
)

// ErrDecode marks a pushed frame that was discarded.
var ErrDecode = errors.New("feed payload rejected")

// Decoded is a frame turned into a queue item plus its rejection count.
type Decoded struct {
	Item     ingest.Item
	Rejected int
}

// Decode parses a pushed frame. Accepted shapes are {"data": [...],
// "dbConnectTime": "..."}, a bare array of rows, and a single row object.
// Invalid rows are dropped; a frame whose rows are all invalid is rejected.
func Decode(b []byte, receivedAt time.Time) (Decoded, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return Decoded{}, fmt.Errorf("%w: empty frame", ErrDecode)
	}

	var (
		rows       []models.Row
		capturedAt time.Time
	)
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	switch b[0] {
	case '[':
		if err := dec.Decode(&rows); err != nil {
			return Decoded{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := dec.Decode(&obj); err != nil {
			return Decoded{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if raw, ok := obj["data"]; ok && !isNull(raw) {
			d := json.NewDecoder(bytes.NewReader(raw))
			d.UseNumber()
			if err := d.Decode(&rows); err != nil {
				return Decoded{}, fmt.Errorf("%w: data: %w", ErrDecode, err)
			}
			if raw, ok := obj["dbConnectTime"]; ok {
				var s string
				if json.Unmarshal(raw, &s) == nil {
					capturedAt, _ = util.ParseTime(s)
				}
			}
		} else {
			row, err := singleRow(b)
			if err != nil {
				return Decoded{}, err
			}
			rows = []models.Row{row}
		}
	default:
		return Decoded{}, fmt.Errorf("%w: unexpected %q", ErrDecode, b[0])
	}

	res := rowcheck.Filter(rows)
	if len(rows) > 0 && len(res.Records) == 0 {
		return Decoded{Rejected: res.Rejected}, fmt.Errorf("%w: all %d rows invalid: %w", ErrDecode, res.Rejected, res.Reasons[0])
	}
	return Decoded{
		Item: ingest.Item{
			Records:    res.Records,
			ReceivedAt: receivedAt,
			CapturedAt: capturedAt,
		},
		Rejected: res.Rejected,
	}, nil
}

func singleRow(b []byte) (models.Row, error) {
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var row models.Row
	if err := d.Decode(&row); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return row, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
