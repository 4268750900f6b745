package quote

import "time"

// Quote is a single app's BRL->ARS rate within a snapshot. Immutable
// once created.
type Quote struct {
	AppName string  `json:"app_name"`
	Rate    float64 `json:"rate"`
}

// Snapshot is one complete, timestamped set of quotes captured in a
// single collection cycle. Quotes preserve source order and never
// contain two entries with the same app name.
type Snapshot struct {
	CapturedAt  time.Time `json:"captured_at"`
	Quotes      []Quote   `json:"quotes"`
	SourceCount int       `json:"source_count"`
}

// HistoryRecord is a per-app, per-timestamp rate sample derived from a
// Snapshot at write time. Records are append-only; corrections happen
// only by inserting a new, later-timestamped record.
type HistoryRecord struct {
	AppName    string    `json:"app_name"`
	CapturedAt time.Time `json:"timestamp"`
	Rate       float64   `json:"rate"`
}

// History converts the snapshot into its per-app projection.
func (s Snapshot) History() []HistoryRecord {
	records := make([]HistoryRecord, 0, len(s.Quotes))
	for _, q := range s.Quotes {
		records = append(records, HistoryRecord{
			AppName:    q.AppName,
			CapturedAt: s.CapturedAt,
			Rate:       q.Rate,
		})
	}
	return records
}
