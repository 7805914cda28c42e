// Package testing provides test doubles for the monitor package.
package testing

import (
	"context"
	"sync"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// Response is one scripted answer to a Fetch call.
type Response struct {
	Samples []monitor.RawSample
	Err     error
}

// Call records the arguments of one Fetch call.
type Call struct {
	Kind  monitor.Kind
	Query monitor.Query
}

// FakeFetcher serves scripted responses per metric kind without a network.
// Queued responses are consumed in order; once a kind's queue is empty its
// default response is returned (no samples, no error, unless set).
type FakeFetcher struct {
	mu       sync.Mutex
	queues   map[monitor.Kind][]Response
	defaults map[monitor.Kind]Response
	gate     chan struct{}

	// Tracking for assertions
	calls []Call
}

// NewFakeFetcher creates a fetcher that answers every kind with no samples.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		queues:   make(map[monitor.Kind][]Response),
		defaults: make(map[monitor.Kind]Response),
	}
}

// Queue appends a successful response for kind.
func (f *FakeFetcher) Queue(kind monitor.Kind, samples ...monitor.RawSample) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[kind] = append(f.queues[kind], Response{Samples: samples})
	return f
}

// QueueError appends a failing response for kind.
func (f *FakeFetcher) QueueError(kind monitor.Kind, err error) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[kind] = append(f.queues[kind], Response{Err: err})
	return f
}

// SetDefault sets the response returned once kind's queue is drained.
func (f *FakeFetcher) SetDefault(kind monitor.Kind, resp Response) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults[kind] = resp
	return f
}

// FailAll makes every kind fail with err by default.
func (f *FakeFetcher) FailAll(err error) *FakeFetcher {
	for _, kind := range monitor.AllKinds {
		f.SetDefault(kind, Response{Err: err})
	}
	return f
}

// Block makes subsequent Fetch calls wait until Release is called or their
// context ends.
func (f *FakeFetcher) Block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate == nil {
		f.gate = make(chan struct{})
	}
}

// Release unblocks every waiting and future Fetch call.
func (f *FakeFetcher) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Fetch implements monitor.Fetcher.
func (f *FakeFetcher) Fetch(ctx context.Context, kind monitor.Kind, q monitor.Query) ([]monitor.RawSample, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Kind: kind, Query: q})
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if queue := f.queues[kind]; len(queue) > 0 {
		resp := queue[0]
		f.queues[kind] = queue[1:]
		return resp.Samples, resp.Err
	}
	resp := f.defaults[kind]
	return resp.Samples, resp.Err
}

// Calls returns every recorded call in order.
func (f *FakeFetcher) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns the number of calls made, across all kinds.
func (f *FakeFetcher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// CallsFor returns the calls made for one kind.
func (f *FakeFetcher) CallsFor(kind monitor.Kind) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Pending returns how many queued responses remain for kind.
func (f *FakeFetcher) Pending(kind monitor.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queues[kind])
}
