package monitor

import (
	"fmt"
	"math"
	"sort"
)

// Source field names, per kind.
const (
	FieldRxBytesDelta = "rbytes_delta"
	FieldTxBytesDelta = "obytes_delta"
	FieldTimeDelta    = "time_delta_seconds"

	FieldReadBandwidth  = "read_bandwidth_bytes"
	FieldWriteBandwidth = "write_bandwidth_bytes"

	FieldARCSize       = "arc_size"
	FieldARCTargetSize = "arc_target_size"
	FieldARCHits       = "hits"
	FieldARCMisses     = "misses"
	FieldARCHitRatio   = "hit_ratio"

	FieldCPUUtilization = "cpu_utilization_pct"
	FieldLoad1          = "load_avg_1min"
	FieldLoad5          = "load_avg_5min"
	FieldLoad15         = "load_avg_15min"
	FieldPerCore        = "per_core"
	FieldCoreName       = "core"
	FieldCoreUtil       = "utilization_pct"

	FieldMemTotal       = "total_memory_bytes"
	FieldMemUsed        = "used_memory_bytes"
	FieldMemFree        = "free_memory_bytes"
	FieldMemUtilization = "memory_utilization_pct"
)

const (
	bytesPerMiB = 1024 * 1024
	bytesPerGiB = 1024 * 1024 * 1024
)

// Rounding precision per value class.
const (
	ratePrecision    = 3
	gibPrecision     = 2
	percentPrecision = 1
	loadPrecision    = 2
)

// Reading is one derived channel value for one stream at one instant.
type Reading struct {
	Entity  string
	Channel string
	Value   float64
}

// round rounds v to the given number of decimals. Non-finite and negative
// inputs come back as 0.
func round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// NetworkMbps converts a byte delta over elapsedSeconds into megabits per
// second. A non-positive elapsed time yields 0, which also absorbs counter
// rollovers reported with a zero interval.
func NetworkMbps(bytesDelta, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return round(math.Max(0, bytesDelta*8/1e6/elapsedSeconds), ratePrecision)
}

// BandwidthMBps converts bytes per second to MB/s (binary megabytes).
func BandwidthMBps(bytesPerSec float64) float64 {
	return round(bytesPerSec/bytesPerMiB, ratePrecision)
}

// BytesToGiB converts a byte gauge to GiB.
func BytesToGiB(bytes float64) float64 {
	return round(bytes/bytesPerGiB, gibPrecision)
}

// HitRatio returns hits/(hits+misses) as a percentage, or 0 when both are 0.
func HitRatio(hits, misses float64) float64 {
	total := hits + misses
	if total <= 0 {
		return 0
	}
	return round(hits/total*100, percentPrecision)
}

// Percent rounds a percentage to display precision.
func Percent(v float64) float64 {
	return round(v, percentPrecision)
}

// Derive turns one raw sample into channel readings. It performs no I/O and
// never fails: missing or malformed numeric fields read as 0.
func Derive(kind Kind, s RawSample) []Reading {
	switch kind {
	case KindNetwork:
		return deriveNetwork(s)
	case KindStorageIO:
		return deriveStorageIO(s)
	case KindARC:
		return deriveARC(s)
	case KindCPU:
		return deriveCPU(s)
	case KindMemory:
		return deriveMemory(s)
	default:
		return nil
	}
}

func deriveNetwork(s RawSample) []Reading {
	elapsed := s.Float(FieldTimeDelta)
	rx := NetworkMbps(s.Float(FieldRxBytesDelta), elapsed)
	tx := NetworkMbps(s.Float(FieldTxBytesDelta), elapsed)
	return []Reading{
		{Entity: s.Entity, Channel: ChannelRx, Value: rx},
		{Entity: s.Entity, Channel: ChannelTx, Value: tx},
		{Entity: s.Entity, Channel: ChannelTotal, Value: round(rx+tx, ratePrecision)},
	}
}

func deriveStorageIO(s RawSample) []Reading {
	read := s.Float(FieldReadBandwidth)
	write := s.Float(FieldWriteBandwidth)
	return []Reading{
		{Entity: s.Entity, Channel: ChannelRead, Value: BandwidthMBps(read)},
		{Entity: s.Entity, Channel: ChannelWrite, Value: BandwidthMBps(write)},
		{Entity: s.Entity, Channel: ChannelTotal, Value: BandwidthMBps(read + write)},
	}
}

func deriveARC(s RawSample) []Reading {
	entity := KindARC.SingletonEntity()

	ratio, ok := s.Lookup(FieldARCHitRatio)
	if ok {
		ratio = Percent(ratio)
	} else {
		ratio = HitRatio(s.Float(FieldARCHits), s.Float(FieldARCMisses))
	}

	return []Reading{
		{Entity: entity, Channel: ChannelSize, Value: BytesToGiB(s.Float(FieldARCSize))},
		{Entity: entity, Channel: ChannelTarget, Value: BytesToGiB(s.Float(FieldARCTargetSize))},
		{Entity: entity, Channel: ChannelHitRatio, Value: ratio},
	}
}

func deriveCPU(s RawSample) []Reading {
	entity := KindCPU.SingletonEntity()
	readings := []Reading{
		{Entity: entity, Channel: ChannelUtilization, Value: Percent(s.Float(FieldCPUUtilization))},
		{Entity: entity, Channel: ChannelLoad1, Value: round(s.Float(FieldLoad1), loadPrecision)},
		{Entity: entity, Channel: ChannelLoad5, Value: round(s.Float(FieldLoad5), loadPrecision)},
		{Entity: entity, Channel: ChannelLoad15, Value: round(s.Float(FieldLoad15), loadPrecision)},
	}

	// Per-core breakdown, when the host reports it, becomes one stream per core.
	for i, core := range s.Objects(FieldPerCore) {
		coreSample := RawSample{Fields: core}
		name := coreSample.String(FieldCoreName)
		if name == "" {
			if id, ok := coreSample.Lookup(FieldCoreName); ok {
				name = fmt.Sprintf("cpu%d", int(id))
			} else {
				name = fmt.Sprintf("cpu%d", i)
			}
		}
		readings = append(readings, Reading{
			Entity:  name,
			Channel: ChannelUtilization,
			Value:   Percent(coreSample.Float(FieldCoreUtil)),
		})
	}

	return readings
}

func deriveMemory(s RawSample) []Reading {
	entity := KindMemory.SingletonEntity()
	total := s.Float(FieldMemTotal)
	used := s.Float(FieldMemUsed)

	util, ok := s.Lookup(FieldMemUtilization)
	if !ok && total > 0 {
		util = used / total * 100
	}

	return []Reading{
		{Entity: entity, Channel: ChannelUsed, Value: BytesToGiB(used)},
		{Entity: entity, Channel: ChannelFree, Value: BytesToGiB(s.Float(FieldMemFree))},
		{Entity: entity, Channel: ChannelTotal, Value: BytesToGiB(total)},
		{Entity: entity, Channel: ChannelUtilization, Value: Percent(util)},
	}
}

// channelRank orders channels the way Kind.Channels lists them, with
// unknown channels after, alphabetically.
func channelRank(kind Kind, channels []string) {
	order := make(map[string]int)
	for i, ch := range kind.Channels() {
		order[ch] = i
	}
	sort.SliceStable(channels, func(i, j int) bool {
		ri, okI := order[channels[i]]
		rj, okJ := order[channels[j]]
		if okI != okJ {
			return okI
		}
		if okI {
			return ri < rj
		}
		return channels[i] < channels[j]
	})
}
