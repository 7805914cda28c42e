package testing

import (
	"time"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// NetworkSample builds a network record for link with byte deltas over elapsed seconds.
func NetworkSample(link string, at time.Time, rxBytes, txBytes, elapsed float64) monitor.RawSample {
	return monitor.RawSample{
		Entity:        link,
		ScanTimestamp: at,
		Fields: map[string]any{
			"link":                    link,
			monitor.FieldRxBytesDelta: rxBytes,
			monitor.FieldTxBytesDelta: txBytes,
			monitor.FieldTimeDelta:    elapsed,
		},
	}
}

// PoolSample builds a storage pool I/O record with bandwidth in bytes/sec.
func PoolSample(pool string, at time.Time, readBps, writeBps float64) monitor.RawSample {
	return monitor.RawSample{
		Entity:        pool,
		ScanTimestamp: at,
		Fields: map[string]any{
			"pool":                      pool,
			monitor.FieldReadBandwidth:  readBps,
			monitor.FieldWriteBandwidth: writeBps,
		},
	}
}

// ARCSample builds an ARC record from byte gauges and hit/miss counters.
func ARCSample(at time.Time, size, target, hits, misses float64) monitor.RawSample {
	return monitor.RawSample{
		ScanTimestamp: at,
		Fields: map[string]any{
			monitor.FieldARCSize:       size,
			monitor.FieldARCTargetSize: target,
			monitor.FieldARCHits:       hits,
			monitor.FieldARCMisses:     misses,
		},
	}
}

// CPUSample builds a host-wide CPU record.
func CPUSample(at time.Time, util, load1, load5, load15 float64) monitor.RawSample {
	return monitor.RawSample{
		ScanTimestamp: at,
		Fields: map[string]any{
			monitor.FieldCPUUtilization: util,
			monitor.FieldLoad1:          load1,
			monitor.FieldLoad5:          load5,
			monitor.FieldLoad15:         load15,
		},
	}
}

// MemorySample builds a memory record from byte gauges.
func MemorySample(at time.Time, total, used, free float64) monitor.RawSample {
	return monitor.RawSample{
		ScanTimestamp: at,
		Fields: map[string]any{
			monitor.FieldMemTotal: total,
			monitor.FieldMemUsed:  used,
			monitor.FieldMemFree:  free,
		},
	}
}
