package monitor

import (
	"sort"
	"time"
)

// LatestPerEntity collapses a batch that may hold several samples per entity
// down to the newest sample for each entity. When two samples of one entity
// share a timestamp, the one later in the input wins; callers should not
// rely on which of two equal-time samples survives.
func LatestPerEntity(samples []RawSample) map[string]RawSample {
	latest := make(map[string]RawSample, len(samples))
	for _, s := range samples {
		current, ok := latest[s.Entity]
		if !ok || !s.ScanTimestamp.Before(current.ScanTimestamp) {
			latest[s.Entity] = s
		}
	}
	return latest
}

// normalizeSamples returns samples sorted ascending by scan timestamp, with
// samples lacking a timestamp removed and same-entity samples at the same
// instant collapsed to the last occurrence. The input is not modified.
func normalizeSamples(samples []RawSample) []RawSample {
	sorted := make([]RawSample, 0, len(samples))
	for _, s := range samples {
		if !s.ScanTimestamp.IsZero() {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScanTimestamp.Before(sorted[j].ScanTimestamp)
	})

	type instant struct {
		entity string
		at     int64
	}
	index := make(map[instant]int, len(sorted))
	out := sorted[:0]
	for _, s := range sorted {
		key := instant{entity: s.Entity, at: s.ScanTimestamp.UnixNano()}
		if i, seen := index[key]; seen {
			out[i] = s
			continue
		}
		index[key] = len(out)
		out = append(out, s)
	}
	return out
}

// latestTimestamp returns the newest scan timestamp in normalized samples.
func latestTimestamp(normalized []RawSample) (time.Time, bool) {
	if len(normalized) == 0 {
		return time.Time{}, false
	}
	return normalized[len(normalized)-1].ScanTimestamp, true
}
