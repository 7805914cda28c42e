package monitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// State is the refresh scheduler's position in its lifecycle.
type State int

const (
	// StateIdle means no host is selected or the engine is closed.
	StateIdle State = iota
	// StateAwaitingInitialLoad means a backfill must settle before polling starts.
	StateAwaitingInitialLoad
	// StateActive means backfill settled and incremental polling runs on the timer.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInitialLoad:
		return "loading"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// CycleMode distinguishes backfill cycles from incremental polls.
type CycleMode int

const (
	CycleHistorical CycleMode = iota
	CycleIncremental
)

func (m CycleMode) String() string {
	if m == CycleHistorical {
		return "historical"
	}
	return "incremental"
}

// launchLocked starts a cycle for the current generation unless one is
// already in flight, in which case the trigger is dropped. The caller holds e.mu.
func (e *Engine) launchLocked(mode CycleMode) bool {
	gen := e.generation
	if e.inFlight[gen] {
		e.obs.TriggerDropped()
		e.log.Debug("dropping %s trigger, cycle already in flight (gen %d)", mode, gen)
		return false
	}
	e.inFlight[gen] = true

	go e.runCycle(gen, mode, e.fetcher, e.spec)
	return true
}

// runCycle fans out one fetch per kind and applies each result as it
// arrives. No kind's failure aborts the others.
func (e *Engine) runCycle(gen uint64, mode CycleMode, f Fetcher, spec WindowSpec) {
	start := e.now()
	bounds := spec.Resolve(start)
	ctx := context.Background()

	var failed atomic.Int32
	var g errgroup.Group
	for _, kind := range AllKinds {
		g.Go(func() error {
			var r kindResult
			if mode == CycleHistorical {
				r = e.loadHistorical(ctx, f, kind, bounds)
			} else {
				r = e.syncIncremental(ctx, f, kind, bounds)
			}
			if r.err != nil {
				failed.Add(1)
			}

			e.mu.Lock()
			defer e.mu.Unlock()
			if gen != e.generation {
				e.obs.StaleDropped(kind)
				e.log.Debug("discarding %s result from generation %d (current %d)", kind, gen, e.generation)
				return nil
			}
			e.applyResultLocked(r, mode)
			return nil
		})
	}
	_ = g.Wait()

	e.finishCycle(gen, mode, int(failed.Load()), e.now().Sub(start))
}

// finishCycle releases the in-flight guard and, for the current generation,
// updates the banner and performs the AwaitingInitialLoad to Active handoff.
func (e *Engine) finishCycle(gen uint64, mode CycleMode, failed int, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.inFlight, gen)
	defer e.cond.Broadcast()

	e.obs.CycleCompleted(mode, failed, elapsed)

	if gen != e.generation || e.closed {
		return
	}

	e.lastCycle = e.now()
	e.lastMode = mode

	if failed == len(AllKinds) {
		e.banner = errors.New(errors.ErrAPI,
			fmt.Sprintf("All metric requests failed for %s", e.host),
			"Check that the monitoring API is reachable and the API key is valid")
		e.log.Error("%s cycle failed for every metric kind on %s", mode, e.host)
	} else {
		e.banner = nil
	}

	if mode == CycleHistorical && e.state == StateAwaitingInitialLoad {
		e.state = StateActive
		e.armTimerLocked()
	}
}

// armTimerLocked (re)starts the incremental ticker when the engine is
// Active with a non-zero interval. The caller holds e.mu.
func (e *Engine) armTimerLocked() {
	e.stopTimerLocked()
	if e.closed || e.state != StateActive || e.interval <= 0 {
		return
	}

	id := e.timerID
	ticks, stop := e.newTicker(e.interval)
	done := make(chan struct{})
	e.stopTimer = func() {
		stop()
		close(done)
	}

	go e.tickLoop(id, ticks, done)
}

// stopTimerLocked stops any running ticker and invalidates its token so a
// tick already being delivered is ignored. The caller holds e.mu.
func (e *Engine) stopTimerLocked() {
	e.timerID++
	if e.stopTimer != nil {
		e.stopTimer()
		e.stopTimer = nil
	}
}

func (e *Engine) tickLoop(id uint64, ticks <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticks:
			if !e.tick(id) {
				return
			}
		}
	}
}

// tick fires an incremental cycle for a live timer. Returns false once the
// timer has been superseded.
func (e *Engine) tick(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id != e.timerID || e.closed {
		return false
	}
	if e.state == StateActive {
		e.launchLocked(CycleIncremental)
	}
	return true
}

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
