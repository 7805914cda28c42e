package monitor

import (
	"context"
	"time"
)

// kindResult is one kind's fetch outcome, computed off the engine lock and
// applied under it.
type kindResult struct {
	kind  Kind
	batch Batch

	// samples are the normalized (sorted, collapsed) raw records.
	samples []RawSample

	// newest is the latest scan timestamp in samples; zero when there are none.
	newest time.Time

	err error
}

// loadHistorical backfills one kind over the full window. Samples are sorted
// ascending by scan timestamp, same-entity duplicates at one instant are
// collapsed to the last occurrence, and the result replaces every stream of
// the kind.
func (e *Engine) loadHistorical(ctx context.Context, f Fetcher, kind Kind, b Bounds) kindResult {
	q := Query{
		Since:     b.Since,
		Limit:     b.RecordLimit,
		PerEntity: kind.MultiEntity(),
	}

	samples, err := e.fetch(ctx, f, kind, q)
	if err != nil {
		return kindResult{kind: kind, err: err}
	}

	normalized := normalizeSamples(samples)
	newest, _ := latestTimestamp(normalized)
	return kindResult{
		kind:    kind,
		batch:   buildBatch(kind, ModeReplace, normalized),
		samples: normalized,
		newest:  newest,
	}
}

// fetch runs one bounded query with the engine's per-kind timeout.
func (e *Engine) fetch(ctx context.Context, f Fetcher, kind Kind, q Query) ([]RawSample, error) {
	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()
	samples, err := f.Fetch(ctx, kind, q)
	if err != nil {
		return nil, err
	}
	return keySingleton(kind, samples), nil
}

// keySingleton gives host-wide samples the kind's singleton entity so the
// snapshot and the streams share keys. The input is not modified.
func keySingleton(kind Kind, samples []RawSample) []RawSample {
	if kind.MultiEntity() {
		return samples
	}
	entity := kind.SingletonEntity()
	out := make([]RawSample, len(samples))
	for i, s := range samples {
		if s.Entity == "" {
			s.Entity = entity
		}
		out[i] = s
	}
	return out
}

// buildBatch derives channel points for normalized samples and groups them
// into one event per (entity, channel), preserving ascending order.
func buildBatch(kind Kind, mode ApplyMode, normalized []RawSample) Batch {
	type channelKey struct {
		entity  string
		channel string
	}

	var order []channelKey
	points := make(map[channelKey][]Point)
	for _, s := range normalized {
		ts := s.TimestampMs()
		for _, r := range Derive(kind, s) {
			key := channelKey{entity: r.Entity, channel: r.Channel}
			if _, seen := points[key]; !seen {
				order = append(order, key)
			}
			points[key] = append(points[key], Point{TimestampMs: ts, Value: r.Value})
		}
	}

	events := make([]Event, 0, len(order))
	for _, key := range order {
		events = append(events, Event{
			Entity:  key.entity,
			Channel: key.channel,
			Points:  points[key],
		})
	}
	return Batch{Kind: kind, Mode: mode, Events: events}
}
