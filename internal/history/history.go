package history

import (
	"context"
	"encoding/json"
	"time"
)

// Mode identifies which generation flow produced a sample.
type Mode string

const (
	ModeImage Mode = "image"
	ModeText  Mode = "text"
)

// Valid reports whether the mode is one of the known generation modes.
func (m Mode) Valid() bool {
	return m == ModeImage || m == ModeText
}

// StorageKey is the fixed identifier under which duration samples persist.
// The JSON schema is shared by every store implementation.
const StorageKey = "banana_editor_generation_durations_v1"

const (
	maxSamples = 20
	maxAge     = 30 * 24 * time.Hour
)

// Sample records how long a single generation took.
type Sample struct {
	DurationMS int64 `json:"ms"`
	Mode       Mode  `json:"mode"`
	ImageCount int   `json:"imagesCount"`
	ObservedAt int64 `json:"ts"` // unix milliseconds
}

// Store persists a bounded window of duration samples. Implementations are
// best-effort: Load never fails outward and Record swallows storage errors,
// since missing history only degrades the ETA estimate.
type Store interface {
	Load(ctx context.Context) []Sample
	Record(ctx context.Context, sample Sample)
}

// decodeSamples parses a stored JSON array, dropping malformed entries
// silently. A document that is not an array at all yields nil.
func decodeSamples(raw []byte, now time.Time) []Sample {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	samples := make([]Sample, 0, len(items))
	for _, item := range items {
		var s Sample
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		samples = append(samples, s)
	}
	return trim(samples, now)
}

// trim applies the window invariants: known mode, positive duration, observed
// within the last 30 days, at most the 20 most recent entries in order.
func trim(samples []Sample, now time.Time) []Sample {
	cutoff := now.Add(-maxAge).UnixMilli()
	kept := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !s.Mode.Valid() || s.DurationMS <= 0 || s.ObservedAt <= cutoff {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) > maxSamples {
		kept = kept[len(kept)-maxSamples:]
	}
	return kept
}
