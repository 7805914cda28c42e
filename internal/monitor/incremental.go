package monitor

import "context"

// syncIncremental fetches one kind's records since its watermark and turns
// them into an append batch. A kind that has never synced falls back to a
// full historical load.
func (e *Engine) syncIncremental(ctx context.Context, f Fetcher, kind Kind, b Bounds) kindResult {
	since, ok := e.marks.Get(kind)
	if !ok {
		e.log.Debug("%s has no watermark, loading history", kind)
		return e.loadHistorical(ctx, f, kind, b)
	}

	q := Query{
		Since:     since,
		Limit:     b.IncrementalLimit,
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
		batch:   buildBatch(kind, ModeAppend, normalized),
		samples: normalized,
		newest:  newest,
	}
}

// applyResultLocked lands one kind's result in the table. The caller holds
// e.mu and has already checked the generation.
func (e *Engine) applyResultLocked(r kindResult, mode CycleMode) {
	if r.err != nil {
		e.kindErrors[r.kind] = r.err
		e.log.Warn("%s fetch failed on %s: %v", r.kind, e.host, r.err)
		e.obs.KindFailed(r.kind, mode)
		return
	}
	delete(e.kindErrors, r.kind)

	if r.batch.Mode == ModeReplace {
		n := e.table.Apply(r.batch)
		e.marks.Set(r.kind, r.newest)
		e.snapshots[r.kind] = LatestPerEntity(r.samples)
		e.obs.PointsApplied(r.kind, mode, n)
		e.log.Debug("%s backfilled %d samples (%d points)", r.kind, len(r.samples), n)
		return
	}

	// Zero new records leaves buffers, watermark and snapshot untouched.
	if len(r.samples) == 0 {
		return
	}

	n := e.table.Apply(r.batch)
	e.marks.Set(r.kind, r.newest)

	merged := make([]RawSample, 0, len(e.snapshots[r.kind])+len(r.samples))
	for _, s := range e.snapshots[r.kind] {
		merged = append(merged, s)
	}
	merged = append(merged, r.samples...)
	e.snapshots[r.kind] = LatestPerEntity(merged)

	e.obs.PointsApplied(r.kind, mode, n)
	e.log.Debug("%s appended %d points from %d samples", r.kind, n, len(r.samples))
}
