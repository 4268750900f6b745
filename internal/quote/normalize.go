package quote

import (
	"fmt"
	"time"
)

// RawEntry is one entry of the source payload as decoded off the wire.
type RawEntry struct {
	App  string  `json:"app"`
	Rate float64 `json:"rate"`
}

// ValidationError reports a payload that produced no usable quotes.
type ValidationError struct {
	Reason   string
	Rejected int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s (%d entries rejected)", e.Reason, e.Rejected)
}

// Result carries the normalized snapshot plus counts for logging.
type Result struct {
	Snapshot Snapshot
	Rejected int // entries dropped for empty name, non-positive rate, or duplicate
}

// Normalize validates raw payload entries and converts them into a
// Snapshot. Entries with an empty app name or a non-positive rate are
// dropped and counted, not fatal. Duplicate app names keep the first
// occurrence. CapturedAt is the wall-clock time of normalization; the
// source does not supply a timestamp.
//
// Returns a ValidationError when no entry survives.
func Normalize(entries []RawEntry, now time.Time) (Result, error) {
	quotes := make([]Quote, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	rejected := 0

	for _, e := range entries {
		if e.App == "" || e.Rate <= 0 {
			rejected++
			continue
		}
		if _, dup := seen[e.App]; dup {
			rejected++
			continue
		}
		seen[e.App] = struct{}{}
		quotes = append(quotes, Quote{AppName: e.App, Rate: e.Rate})
	}

	if len(quotes) == 0 {
		return Result{}, &ValidationError{Reason: "no valid quotes", Rejected: rejected}
	}

	return Result{
		Snapshot: Snapshot{
			CapturedAt:  now.UTC(),
			Quotes:      quotes,
			SourceCount: len(quotes),
		},
		Rejected: rejected,
	}, nil
}
