package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// Window is the span of history shown in the charts.
type Window string

const (
	Window15Min  Window = "15min"
	Window1Hour  Window = "1hour"
	Window6Hour  Window = "6hour"
	Window24Hour Window = "24hour"
	Window7Day   Window = "7day"
)

// Windows lists the selectable windows, shortest first.
var Windows = []Window{Window15Min, Window1Hour, Window6Hour, Window24Hour, Window7Day}

// Resolution controls how many records are requested for a window.
type Resolution string

const (
	ResolutionLow    Resolution = "low"
	ResolutionMedium Resolution = "medium"
	ResolutionHigh   Resolution = "high"
	ResolutionMax    Resolution = "max"
)

// Resolutions lists the selectable resolutions, coarsest first.
var Resolutions = []Resolution{ResolutionLow, ResolutionMedium, ResolutionHigh, ResolutionMax}

// RefreshIntervals are the supported incremental polling intervals. Zero turns polling off.
var RefreshIntervals = []time.Duration{
	0,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	300 * time.Second,
}

// Defaults applied when configuration leaves a setting empty.
const (
	DefaultWindow          = Window1Hour
	DefaultResolution      = ResolutionMedium
	DefaultRefreshInterval = 30 * time.Second
)

// recordLimits maps window and resolution to the per-entity record cap for a backfill.
var recordLimits = map[Window]map[Resolution]int{
	Window15Min:  {ResolutionLow: 45, ResolutionMedium: 90, ResolutionHigh: 180, ResolutionMax: 180},
	Window1Hour:  {ResolutionLow: 60, ResolutionMedium: 180, ResolutionHigh: 360, ResolutionMax: 720},
	Window6Hour:  {ResolutionLow: 72, ResolutionMedium: 216, ResolutionHigh: 432, ResolutionMax: 1440},
	Window24Hour: {ResolutionLow: 96, ResolutionMedium: 288, ResolutionHigh: 576, ResolutionMax: 2000},
	Window7Day:   {ResolutionLow: 168, ResolutionMedium: 504, ResolutionHigh: 1008, ResolutionMax: 2000},
}

// incrementalLimits caps each "since watermark" poll.
var incrementalLimits = map[Resolution]int{
	ResolutionLow:    5,
	ResolutionMedium: 10,
	ResolutionHigh:   20,
	ResolutionMax:    50,
}

// ParseWindow converts a window name to a Window.
func ParseWindow(s string) (Window, error) {
	for _, w := range Windows {
		if strings.EqualFold(s, string(w)) {
			return w, nil
		}
	}
	return "", errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown window '%s'", s),
		"Use one of: 15min, 1hour, 6hour, 24hour, 7day")
}

// Duration returns the span covered by the window.
func (w Window) Duration() time.Duration {
	switch w {
	case Window15Min:
		return 15 * time.Minute
	case Window1Hour:
		return time.Hour
	case Window6Hour:
		return 6 * time.Hour
	case Window24Hour:
		return 24 * time.Hour
	case Window7Day:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Next cycles to the next longer window, wrapping around.
func (w Window) Next() Window {
	for i, candidate := range Windows {
		if candidate == w {
			return Windows[(i+1)%len(Windows)]
		}
	}
	return DefaultWindow
}

// ParseResolution converts a resolution name to a Resolution.
func ParseResolution(s string) (Resolution, error) {
	for _, r := range Resolutions {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown resolution '%s'", s),
		"Use one of: low, medium, high, max")
}

// Next cycles to the next finer resolution, wrapping around.
func (r Resolution) Next() Resolution {
	for i, candidate := range Resolutions {
		if candidate == r {
			return Resolutions[(i+1)%len(Resolutions)]
		}
	}
	return DefaultResolution
}

// ValidRefreshInterval reports whether d is one of RefreshIntervals.
func ValidRefreshInterval(d time.Duration) bool {
	for _, allowed := range RefreshIntervals {
		if d == allowed {
			return true
		}
	}
	return false
}

// NextRefreshInterval cycles through RefreshIntervals, wrapping around.
func NextRefreshInterval(d time.Duration) time.Duration {
	for i, allowed := range RefreshIntervals {
		if allowed == d {
			return RefreshIntervals[(i+1)%len(RefreshIntervals)]
		}
	}
	return DefaultRefreshInterval
}

// WindowSpec is the user's window and resolution selection.
type WindowSpec struct {
	Window     Window
	Resolution Resolution
}

// Bounds are the concrete fetch parameters derived from a WindowSpec.
type Bounds struct {
	// Since is the backfill cutoff.
	Since time.Time

	// RecordLimit caps backfill records per entity.
	RecordLimit int

	// Capacity is the maximum number of points kept per channel.
	Capacity int

	// IncrementalLimit caps records per incremental poll.
	IncrementalLimit int
}

// Validate checks that both the window and resolution are known.
func (s WindowSpec) Validate() error {
	if _, err := ParseWindow(string(s.Window)); err != nil {
		return err
	}
	if _, err := ParseResolution(string(s.Resolution)); err != nil {
		return err
	}
	return nil
}

// Capacity returns the per-channel point capacity for the spec.
func (s WindowSpec) Capacity() int {
	return recordLimits[s.Window][s.Resolution]
}

// Resolve computes fetch bounds relative to now.
func (s WindowSpec) Resolve(now time.Time) Bounds {
	limit := recordLimits[s.Window][s.Resolution]
	return Bounds{
		Since:            now.Add(-s.Window.Duration()),
		RecordLimit:      limit,
		Capacity:         limit,
		IncrementalLimit: incrementalLimits[s.Resolution],
	}
}
