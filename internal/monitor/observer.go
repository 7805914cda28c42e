package monitor

import "time"

// Observer receives engine events for self-metrics. Implementations must be
// safe for concurrent use; callbacks run on fetch goroutines.
type Observer interface {
	// CycleCompleted is called once a cycle's fan-out has settled.
	// failed is the number of kinds whose fetch failed.
	CycleCompleted(mode CycleMode, failed int, duration time.Duration)

	// KindFailed is called for each kind whose fetch returned an error.
	KindFailed(kind Kind, mode CycleMode)

	// PointsApplied reports how many points one kind's result added.
	PointsApplied(kind Kind, mode CycleMode, n int)

	// StaleDropped is called when a result arrives for an outdated generation.
	StaleDropped(kind Kind)

	// TriggerDropped is called when a trigger collides with an in-flight cycle.
	TriggerDropped()
}

type noopObserver struct{}

func (noopObserver) CycleCompleted(CycleMode, int, time.Duration) {}
func (noopObserver) KindFailed(Kind, CycleMode)                   {}
func (noopObserver) PointsApplied(Kind, CycleMode, int)           {}
func (noopObserver) StaleDropped(Kind)                            {}
func (noopObserver) TriggerDropped()                              {}

// NoopObserver returns an Observer that ignores every event.
func NoopObserver() Observer {
	return noopObserver{}
}
