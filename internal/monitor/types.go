package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// Kind identifies one of the metric families served by the monitoring API.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindStorageIO Kind = "storageIO"
	KindARC       Kind = "arc"
	KindCPU       Kind = "cpu"
	KindMemory    Kind = "memory"
)

// AllKinds lists every metric kind in fan-out order.
var AllKinds = []Kind{KindNetwork, KindStorageIO, KindARC, KindCPU, KindMemory}

// Channel names. A stream owns one to four of these.
const (
	ChannelRx          = "rx"
	ChannelTx          = "tx"
	ChannelTotal       = "total"
	ChannelRead        = "read"
	ChannelWrite       = "write"
	ChannelSize        = "size"
	ChannelTarget      = "target"
	ChannelHitRatio    = "hitRatio"
	ChannelUtilization = "utilization"
	ChannelLoad1       = "load1"
	ChannelLoad5       = "load5"
	ChannelLoad15      = "load15"
	ChannelUsed        = "used"
	ChannelFree        = "free"
)

// ParseKind converts a user-supplied kind name (case-insensitive) to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	// Accept the API's own naming for pool I/O as well.
	switch strings.ToLower(s) {
	case "pool", "poolio", "pool-io", "storage":
		return KindStorageIO, nil
	}
	return "", errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown metric kind '%s'", s),
		"Use one of: network, storageIO, arc, cpu, memory")
}

// MultiEntity reports whether the kind has one stream per entity (link, pool)
// rather than a single host-wide stream.
func (k Kind) MultiEntity() bool {
	return k == KindNetwork || k == KindStorageIO
}

// SingletonEntity returns the fixed entity key used by host-wide kinds.
// Returns "" for multi-entity kinds.
func (k Kind) SingletonEntity() string {
	switch k {
	case KindARC:
		return "arc"
	case KindMemory:
		return "memory"
	case KindCPU:
		return "overall"
	default:
		return ""
	}
}

// Channels returns the channel names the kind's primary streams carry.
func (k Kind) Channels() []string {
	switch k {
	case KindNetwork:
		return []string{ChannelRx, ChannelTx, ChannelTotal}
	case KindStorageIO:
		return []string{ChannelRead, ChannelWrite, ChannelTotal}
	case KindARC:
		return []string{ChannelSize, ChannelTarget, ChannelHitRatio}
	case KindCPU:
		return []string{ChannelUtilization, ChannelLoad1, ChannelLoad5, ChannelLoad15}
	case KindMemory:
		return []string{ChannelUsed, ChannelFree, ChannelTotal, ChannelUtilization}
	default:
		return nil
	}
}

// StreamID identifies one metric stream: a kind plus an entity key.
type StreamID struct {
	Kind   Kind
	Entity string
}

func (id StreamID) String() string {
	return string(id.Kind) + "/" + id.Entity
}

// Point is a single timestamped value in a channel.
type Point struct {
	TimestampMs int64
	Value       float64
}

// MarshalJSON encodes a point as the [timestampMs, value] pair charting
// libraries expect.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.TimestampMs, p.Value})
}

// UnmarshalJSON decodes the [timestampMs, value] pair form.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.TimestampMs = int64(pair[0])
	p.Value = pair[1]
	return nil
}

// RawSample is one record as returned by the monitoring API.
type RawSample struct {
	// Entity is the link or pool name. The API leaves it empty for host-wide
	// kinds; the engine fills in the kind's singleton entity.
	Entity string

	// ScanTimestamp is when the host collected the sample.
	ScanTimestamp time.Time

	// Fields holds every field of the record, numeric or not.
	Fields map[string]any
}

// TimestampMs returns the scan timestamp in Unix milliseconds.
func (s RawSample) TimestampMs() int64 {
	return s.ScanTimestamp.UnixMilli()
}

// Lookup returns a numeric field and whether it was present and numeric.
// Non-finite values are treated as absent.
func (s RawSample) Lookup(name string) (float64, bool) {
	v, ok := s.Fields[name]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v)
}

// Float returns a numeric field, or 0 when it is missing or malformed.
func (s RawSample) Float(name string) float64 {
	f, _ := s.Lookup(name)
	return f
}

// String returns a string field, or "" when it is missing or not a string.
func (s RawSample) String(name string) string {
	if v, ok := s.Fields[name].(string); ok {
		return v
	}
	return ""
}

// Objects returns a field holding a list of JSON objects. Elements that are
// not objects are skipped.
func (s RawSample) Objects(name string) []map[string]any {
	list, ok := s.Fields[name].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Query bounds a single fetch against the monitoring API.
type Query struct {
	// Since limits results to samples at or after this instant. Zero means unbounded.
	Since time.Time

	// Limit caps the number of records (per entity when PerEntity is set).
	Limit int

	// PerEntity asks the API to apply Limit to each entity separately.
	PerEntity bool
}

// Fetcher retrieves raw samples for one metric kind.
// The monitoring API client implements it; tests use a scripted fake.
type Fetcher interface {
	Fetch(ctx context.Context, kind Kind, q Query) ([]RawSample, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, kind Kind, q Query) ([]RawSample, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, kind Kind, q Query) ([]RawSample, error) {
	return f(ctx, kind, q)
}
