// Package monitor keeps live performance series for one virtualization host
// up to date by polling the host's monitoring API.
//
// The Engine owns every metric stream for the selected context (host plus
// window and resolution). Five metric kinds are tracked: network, storageIO
// (ZFS pool I/O), arc (ZFS ARC), cpu and memory.
//
// # Architecture
//
//	Watermarks   - per-kind "newest record already seen" cursor
//	Derive       - pure conversion of raw samples into channel readings
//	StreamTable  - bounded, ordered per-channel sliding windows keyed by StreamID
//	LatestPerEntity - newest sample per entity, for tables
//	Engine       - state machine driving backfill and incremental polling
//
// # Refresh Cycle
//
// Selecting a host, or changing window or resolution, starts a new
// generation:
//
//  1. Watermarks reset, streams cleared, state AwaitingInitialLoad
//  2. One historical query per kind runs in parallel; each result replaces
//     that kind's streams as it arrives
//  3. Once every kind has settled (success or failure) the state becomes
//     Active and the refresh timer starts
//  4. Each tick fetches records since the watermark and appends them
//
// Only one cycle per generation runs at a time; a trigger that arrives while
// one is in flight is dropped. Results from an older generation are
// discarded on arrival.
//
// # Failures
//
// A failing kind keeps its existing data and is retried on the next cycle.
// When all five kinds fail in one cycle, Status().Banner carries a single
// error for display.
package monitor
