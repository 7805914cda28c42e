package monitor

import (
	"sync"
	"time"
)

// Watermarks tracks, per metric kind, the newest scan timestamp already
// incorporated into the stream table. A kind with no entry has never synced.
type Watermarks struct {
	mu    sync.RWMutex
	marks map[Kind]time.Time
}

// NewWatermarks creates an empty watermark store.
func NewWatermarks() *Watermarks {
	return &Watermarks{marks: make(map[Kind]time.Time)}
}

// Get returns the watermark for kind and whether one has been set.
func (w *Watermarks) Get(kind Kind) (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ts, ok := w.marks[kind]
	return ts, ok
}

// Set advances the watermark for kind to ts. It never moves backwards:
// a ts at or before the current watermark is ignored. Returns true if the
// watermark moved.
func (w *Watermarks) Set(kind Kind, ts time.Time) bool {
	if ts.IsZero() {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if current, ok := w.marks[kind]; ok && !ts.After(current) {
		return false
	}
	w.marks[kind] = ts
	return true
}

// ResetAll clears every kind back to "never synced".
func (w *Watermarks) ResetAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.marks = make(map[Kind]time.Time)
}
