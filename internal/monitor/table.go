package monitor

import (
	"sort"
	"sync"
)

// ApplyMode says how a batch lands in the stream table.
type ApplyMode int

const (
	// ModeReplace substitutes every stream of the batch's kind.
	ModeReplace ApplyMode = iota
	// ModeAppend adds points to the end of existing channels.
	ModeAppend
)

func (m ApplyMode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "append"
}

// Event carries the points for one channel of one stream.
type Event struct {
	Entity  string
	Channel string
	Points  []Point
}

// Batch is the unit of mutation: all events produced by one fetch of one kind.
// A batch is applied atomically.
type Batch struct {
	Kind   Kind
	Mode   ApplyMode
	Events []Event
}

// Stream is one entity's channels for one metric kind.
type Stream struct {
	ID       StreamID
	Channels map[string][]Point
}

// StreamTable holds every metric stream for the current context, keyed by
// StreamID. Each channel is an independently trimmed sliding window: after
// any mutation its timestamps are non-decreasing and its length is at most
// the table capacity. Channels of one stream are not index-paired.
type StreamTable struct {
	mu       sync.RWMutex
	capacity int
	streams  map[StreamID]*Stream
}

// NewStreamTable creates an empty table whose channels hold at most capacity points.
func NewStreamTable(capacity int) *StreamTable {
	if capacity <= 0 {
		capacity = 1
	}
	return &StreamTable{
		capacity: capacity,
		streams:  make(map[StreamID]*Stream),
	}
}

// Capacity returns the per-channel point limit.
func (t *StreamTable) Capacity() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.capacity
}

// Reset discards every stream and sets a new capacity.
func (t *StreamTable) Reset(capacity int) {
	if capacity <= 0 {
		capacity = 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.capacity = capacity
	t.streams = make(map[StreamID]*Stream)
}

// Apply applies a batch and returns the number of points that landed.
func (t *StreamTable) Apply(b Batch) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b.Mode == ModeReplace {
		return t.replaceKindLocked(b.Kind, b.Events)
	}

	added := 0
	for _, ev := range b.Events {
		added += t.appendLocked(StreamID{Kind: b.Kind, Entity: ev.Entity}, ev.Channel, ev.Points)
	}
	return added
}

// Append adds points to a channel, creating the stream on first use.
// Only points strictly newer than the channel's last point are kept, so
// replaying already-seen data is a no-op. The channel is then trimmed from
// the front to the table capacity. Returns the number of points kept.
func (t *StreamTable) Append(id StreamID, channel string, points []Point) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(id, channel, points)
}

// ReplaceKind drops every stream of kind and installs the given events as
// the full new contents. Used only by backfill.
func (t *StreamTable) ReplaceKind(kind Kind, events []Event) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.replaceKindLocked(kind, events)
}

func (t *StreamTable) replaceKindLocked(kind Kind, events []Event) int {
	for id := range t.streams {
		if id.Kind == kind {
			delete(t.streams, id)
		}
	}

	added := 0
	for _, ev := range events {
		id := StreamID{Kind: kind, Entity: ev.Entity}
		stream := t.getOrCreateLocked(id)

		points := make([]Point, len(ev.Points))
		copy(points, ev.Points)
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].TimestampMs < points[j].TimestampMs
		})
		points = t.trim(points)

		stream.Channels[ev.Channel] = points
		added += len(points)
	}
	return added
}

func (t *StreamTable) appendLocked(id StreamID, channel string, points []Point) int {
	if len(points) == 0 {
		return 0
	}

	stream := t.getOrCreateLocked(id)
	existing := stream.Channels[channel]

	var last int64
	hasLast := len(existing) > 0
	if hasLast {
		last = existing[len(existing)-1].TimestampMs
	}

	kept := 0
	for _, p := range points {
		if hasLast && p.TimestampMs <= last {
			continue
		}
		existing = append(existing, p)
		last = p.TimestampMs
		hasLast = true
		kept++
	}

	stream.Channels[channel] = t.trim(existing)
	return kept
}

// trim drops points from the front until at most capacity remain.
// The result never aliases memory beyond the kept window.
func (t *StreamTable) trim(points []Point) []Point {
	if len(points) <= t.capacity {
		return points
	}
	kept := make([]Point, t.capacity)
	copy(kept, points[len(points)-t.capacity:])
	return kept
}

func (t *StreamTable) getOrCreateLocked(id StreamID) *Stream {
	stream, ok := t.streams[id]
	if !ok {
		stream = &Stream{ID: id, Channels: make(map[string][]Point)}
		t.streams[id] = stream
	}
	return stream
}

// Series returns a copy of one channel's points, oldest first.
// Returns nil if the stream or channel doesn't exist.
func (t *StreamTable) Series(id StreamID, channel string) []Point {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stream, ok := t.streams[id]
	if !ok {
		return nil
	}
	points, ok := stream.Channels[channel]
	if !ok {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}

// Len returns the number of points in one channel.
func (t *StreamTable) Len(id StreamID, channel string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if stream, ok := t.streams[id]; ok {
		return len(stream.Channels[channel])
	}
	return 0
}

// Entities returns the sorted entity keys that have a stream of kind.
func (t *StreamTable) Entities(kind Kind) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var entities []string
	for id := range t.streams {
		if id.Kind == kind {
			entities = append(entities, id.Entity)
		}
	}
	sort.Strings(entities)
	return entities
}

// ChannelNames returns the channels present on a stream in display order.
func (t *StreamTable) ChannelNames(id StreamID) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stream, ok := t.streams[id]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(stream.Channels))
	for name := range stream.Channels {
		names = append(names, name)
	}
	channelRank(id.Kind, names)
	return names
}

// StreamCount returns the number of streams in the table.
func (t *StreamTable) StreamCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.streams)
}
