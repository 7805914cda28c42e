package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
)

// DefaultFetchTimeout bounds each per-kind request.
const DefaultFetchTimeout = 30 * time.Second

// Options configures a new Engine. Zero values take defaults.
type Options struct {
	Window          Window
	Resolution      Resolution
	RefreshInterval time.Duration

	// DisableRefresh turns incremental polling off, overriding RefreshInterval.
	DisableRefresh bool

	FetchTimeout time.Duration
	Logger       logger.Logger
	Observer     Observer

	// Now and NewTicker are clock hooks for tests.
	Now       func() time.Time
	NewTicker func(time.Duration) (<-chan time.Time, func())
}

// Status is a point-in-time view of the engine for the rendering layer.
type Status struct {
	Host            string
	State           State
	Generation      uint64
	Window          Window
	Resolution      Resolution
	RefreshInterval time.Duration
	InFlight        bool
	LastCycle       time.Time
	LastMode        CycleMode

	// Banner is set when every kind failed in the last cycle.
	Banner error

	// KindErrors holds the last error per kind; a success clears the entry.
	KindErrors map[Kind]error
}

// Engine keeps every metric stream for one selected host up to date. It
// backfills all kinds when a context is selected, then polls incrementally
// on a timer. A context is the selected host plus window and resolution;
// changing any of them starts a new generation.
type Engine struct {
	log          logger.Logger
	obs          Observer
	now          func() time.Time
	newTicker    func(time.Duration) (<-chan time.Time, func())
	fetchTimeout time.Duration

	table *StreamTable
	marks *Watermarks

	mu         sync.Mutex
	cond       *sync.Cond
	closed     bool
	state      State
	generation uint64
	inFlight   map[uint64]bool
	spec       WindowSpec
	interval   time.Duration
	fetcher    Fetcher
	host       string
	snapshots  map[Kind]map[string]RawSample
	banner     error
	kindErrors map[Kind]error
	lastCycle  time.Time
	lastMode   CycleMode
	timerID    uint64
	stopTimer  func()
}

// NewEngine creates an idle engine. Call SelectHost to start loading.
func NewEngine(opts Options) (*Engine, error) {
	spec := WindowSpec{Window: opts.Window, Resolution: opts.Resolution}
	if spec.Window == "" {
		spec.Window = DefaultWindow
	}
	if spec.Resolution == "" {
		spec.Resolution = DefaultResolution
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	interval := opts.RefreshInterval
	if opts.DisableRefresh {
		interval = 0
	} else if interval == 0 {
		interval = DefaultRefreshInterval
	}
	if !ValidRefreshInterval(interval) {
		return nil, unsupportedInterval(interval)
	}

	e := &Engine{
		log:          opts.Logger,
		obs:          opts.Observer,
		now:          opts.Now,
		newTicker:    opts.NewTicker,
		fetchTimeout: opts.FetchTimeout,
		table:        NewStreamTable(spec.Capacity()),
		marks:        NewWatermarks(),
		state:        StateIdle,
		inFlight:     make(map[uint64]bool),
		spec:         spec,
		interval:     interval,
		snapshots:    make(map[Kind]map[string]RawSample),
		kindErrors:   make(map[Kind]error),
	}
	if e.log == nil {
		e.log = logger.Noop()
	}
	if e.obs == nil {
		e.obs = NoopObserver()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newTicker == nil {
		e.newTicker = defaultTicker
	}
	if e.fetchTimeout <= 0 {
		e.fetchTimeout = DefaultFetchTimeout
	}
	e.cond = sync.NewCond(&e.mu)
	return e, nil
}

// SelectHost switches the engine to a new host and starts a backfill.
// Results still in flight for the previous host are discarded on arrival.
func (e *Engine) SelectHost(name string, f Fetcher) error {
	if f == nil {
		return errors.New(errors.ErrSync,
			fmt.Sprintf("No API client for host '%s'", name),
			"Check the host's url in .hostwatch.yaml")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errClosed()
	}

	e.host = name
	e.fetcher = f
	e.resetContextLocked()
	e.launchLocked(CycleHistorical)
	return nil
}

// SetWindow changes the time window. With a host selected this resets every
// stream and watermark and starts a new backfill.
func (e *Engine) SetWindow(w Window) error {
	if _, err := ParseWindow(string(w)); err != nil {
		return errors.WrapWithCode(err, errors.ErrSync,
			fmt.Sprintf("Cannot switch to window '%s'", w),
			"Use one of: 15min, 1hour, 6hour, 24hour, 7day")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errClosed()
	}
	if e.spec.Window == w {
		return nil
	}
	e.spec.Window = w
	e.restartLocked()
	return nil
}

// SetResolution changes the resolution, with the same reset as SetWindow.
func (e *Engine) SetResolution(r Resolution) error {
	if _, err := ParseResolution(string(r)); err != nil {
		return errors.WrapWithCode(err, errors.ErrSync,
			fmt.Sprintf("Cannot switch to resolution '%s'", r),
			"Use one of: low, medium, high, max")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errClosed()
	}
	if e.spec.Resolution == r {
		return nil
	}
	e.spec.Resolution = r
	e.restartLocked()
	return nil
}

// SetRefreshInterval changes the polling interval. Zero turns polling off.
// The running timer is always cleared; it is re-armed only when the engine
// is Active. Streams and watermarks are kept.
func (e *Engine) SetRefreshInterval(d time.Duration) error {
	if !ValidRefreshInterval(d) {
		return unsupportedInterval(d)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errClosed()
	}
	e.interval = d
	e.stopTimerLocked()
	if e.state == StateActive {
		e.armTimerLocked()
	}
	return nil
}

// TriggerRefresh starts a cycle now: a backfill while awaiting the initial
// load, an incremental poll once Active. It returns false when the trigger
// was dropped because a cycle is already in flight or no host is selected.
func (e *Engine) TriggerRefresh() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.fetcher == nil {
		return false
	}
	switch e.state {
	case StateAwaitingInitialLoad:
		return e.launchLocked(CycleHistorical)
	case StateActive:
		return e.launchLocked(CycleIncremental)
	default:
		return false
	}
}

// Close stops polling and moves the engine to Idle. In-flight requests are
// left to finish and their results are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.stopTimerLocked()
	e.state = StateIdle
	e.generation++
	e.cond.Broadcast()
}

// Wait blocks until no cycle is in flight, for any generation.
func (e *Engine) Wait() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.inFlight) > 0 {
		e.cond.Wait()
	}
}

// restartLocked resets the context and backfills when a host is selected.
// Without a host the new settings just apply to the next SelectHost.
func (e *Engine) restartLocked() {
	if e.fetcher == nil {
		e.table.Reset(e.spec.Capacity())
		return
	}
	e.resetContextLocked()
	e.launchLocked(CycleHistorical)
}

// resetContextLocked starts a new generation: timer cleared, watermarks
// nulled, streams and snapshots discarded. The caller holds e.mu.
func (e *Engine) resetContextLocked() {
	e.generation++
	e.stopTimerLocked()
	e.marks.ResetAll()
	e.table.Reset(e.spec.Capacity())
	e.snapshots = make(map[Kind]map[string]RawSample)
	e.kindErrors = make(map[Kind]error)
	e.banner = nil
	e.lastCycle = time.Time{}
	e.state = StateAwaitingInitialLoad
	e.log.Debug("context reset: host=%s window=%s resolution=%s gen=%d",
		e.host, e.spec.Window, e.spec.Resolution, e.generation)
}

// Status returns a snapshot of the scheduler state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	kindErrors := make(map[Kind]error, len(e.kindErrors))
	for k, err := range e.kindErrors {
		kindErrors[k] = err
	}
	return Status{
		Host:            e.host,
		State:           e.state,
		Generation:      e.generation,
		Window:          e.spec.Window,
		Resolution:      e.spec.Resolution,
		RefreshInterval: e.interval,
		InFlight:        e.inFlight[e.generation],
		LastCycle:       e.lastCycle,
		LastMode:        e.lastMode,
		Banner:          e.banner,
		KindErrors:      kindErrors,
	}
}

// Series returns one channel's points, oldest first. An empty entity selects
// the kind's singleton stream.
func (e *Engine) Series(kind Kind, entity, channel string) []Point {
	if entity == "" {
		entity = kind.SingletonEntity()
	}
	return e.table.Series(StreamID{Kind: kind, Entity: entity}, channel)
}

// Channels returns the channels present on a stream in display order.
func (e *Engine) Channels(kind Kind, entity string) []string {
	if entity == "" {
		entity = kind.SingletonEntity()
	}
	return e.table.ChannelNames(StreamID{Kind: kind, Entity: entity})
}

// Entities returns the sorted entity keys with a stream of kind.
func (e *Engine) Entities(kind Kind) []string {
	return e.table.Entities(kind)
}

// LatestSnapshot returns the newest raw sample per entity for kind, for
// tabular display. The returned map is a copy.
func (e *Engine) LatestSnapshot(kind Kind) map[string]RawSample {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]RawSample, len(e.snapshots[kind]))
	for entity, s := range e.snapshots[kind] {
		out[entity] = s
	}
	return out
}

// SnapshotEntities returns the snapshot's entity keys, sorted.
func (e *Engine) SnapshotEntities(kind Kind) []string {
	snap := e.LatestSnapshot(kind)
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Watermark returns the kind's watermark and whether it has synced.
func (e *Engine) Watermark(kind Kind) (time.Time, bool) {
	return e.marks.Get(kind)
}

// Capacity returns the current per-channel point limit.
func (e *Engine) Capacity() int {
	return e.table.Capacity()
}

func errClosed() error {
	return errors.New(errors.ErrSync, "Monitor engine is closed", "")
}

func unsupportedInterval(d time.Duration) error {
	return errors.New(errors.ErrSync,
		fmt.Sprintf("Unsupported refresh interval %s", d),
		"Use one of: 0 (off), 5s, 10s, 30s, 60s, 300s")
}
