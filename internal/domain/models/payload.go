package models

import (
	"time"

	"RegionFeed/pkg/util"
)

// Payload is the JSON frame pushed to subscribers.
type Payload struct {
	Data          []Record `json:"data"`
	DBConnectTime string   `json:"dbConnectTime"`
}

func NewPayload(s *Snapshot) Payload {
	data := s.records
	if data == nil {
		data = []Record{}
	}
	return Payload{Data: data, DBConnectTime: util.FormatISO(s.capturedAt)}
}

// CapturedAt parses DBConnectTime; ok is false when it is missing or malformed.
func (p Payload) CapturedAt() (time.Time, bool) {
	return util.ParseTime(p.DBConnectTime)
}
