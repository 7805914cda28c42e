package monitor

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readingMap(readings []Reading) map[string]float64 {
	out := make(map[string]float64, len(readings))
	for _, r := range readings {
		out[r.Entity+"/"+r.Channel] = r.Value
	}
	return out
}

func TestNetworkMbps(t *testing.T) {
	tests := []struct {
		name    string
		bytes   float64
		elapsed float64
		want    float64
	}{
		{"ten megabits", 1_250_000, 1, 10.000},
		{"over five seconds", 1_250_000, 5, 2.000},
		{"rounds to three places", 1_000_001, 3, 2.667},
		{"zero elapsed", 1_250_000, 0, 0},
		{"negative elapsed", 1_250_000, -1, 0},
		{"negative delta clamps", -500, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NetworkMbps(tt.bytes, tt.elapsed)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestDerive_NetworkRateCorrectness(t *testing.T) {
	s := RawSample{
		Entity:        "ixgbe0",
		ScanTimestamp: time.Unix(100, 0),
		Fields: map[string]any{
			FieldRxBytesDelta: 1_250_000.0,
			FieldTxBytesDelta: 625_000.0,
			FieldTimeDelta:    1.0,
		},
	}

	got := readingMap(Derive(KindNetwork, s))
	assert.Equal(t, 10.000, got["ixgbe0/rx"])
	assert.Equal(t, 5.000, got["ixgbe0/tx"])
	assert.Equal(t, 15.000, got["ixgbe0/total"])
}

func TestDerive_NetworkZeroElapsed(t *testing.T) {
	s := RawSample{
		Entity: "ixgbe0",
		Fields: map[string]any{
			FieldRxBytesDelta: 1_250_000.0,
			FieldTxBytesDelta: 1_250_000.0,
			FieldTimeDelta:    0.0,
		},
	}

	for _, r := range Derive(KindNetwork, s) {
		assert.Equal(t, 0.0, r.Value, "channel %s", r.Channel)
	}
}

func TestDerive_StorageIO(t *testing.T) {
	s := RawSample{
		Entity: "tank",
		Fields: map[string]any{
			FieldReadBandwidth:  json.Number("1048576"),
			FieldWriteBandwidth: 3 * 1048576.0,
		},
	}

	got := readingMap(Derive(KindStorageIO, s))
	assert.Equal(t, 1.000, got["tank/read"])
	assert.Equal(t, 3.000, got["tank/write"])
	assert.Equal(t, 4.000, got["tank/total"])
}

func TestDerive_ARC(t *testing.T) {
	t.Run("computes hit ratio from counters", func(t *testing.T) {
		s := RawSample{Fields: map[string]any{
			FieldARCSize:       8 * float64(bytesPerGiB),
			FieldARCTargetSize: 12.5 * float64(bytesPerGiB),
			FieldARCHits:       3.0,
			FieldARCMisses:     1.0,
		}}
		got := readingMap(Derive(KindARC, s))
		assert.Equal(t, 8.0, got["arc/size"])
		assert.Equal(t, 12.5, got["arc/target"])
		assert.Equal(t, 75.0, got["arc/hitRatio"])
	})

	t.Run("zero denominator", func(t *testing.T) {
		got := readingMap(Derive(KindARC, RawSample{Fields: map[string]any{}}))
		assert.Equal(t, 0.0, got["arc/hitRatio"])
	})

	t.Run("prefers supplied ratio", func(t *testing.T) {
		s := RawSample{Fields: map[string]any{
			FieldARCHitRatio: 91.27,
			FieldARCHits:     1.0,
			FieldARCMisses:   1.0,
		}}
		got := readingMap(Derive(KindARC, s))
		assert.Equal(t, 91.3, got["arc/hitRatio"])
	})
}

func TestDerive_CPU(t *testing.T) {
	s := RawSample{Fields: map[string]any{
		FieldCPUUtilization: 42.37,
		FieldLoad1:          1.234,
		FieldLoad5:          "0.5",
		FieldLoad15:         nil,
		FieldPerCore: []any{
			map[string]any{FieldCoreName: "cpu0", FieldCoreUtil: 10.04},
			map[string]any{FieldCoreName: json.Number("1"), FieldCoreUtil: 20.0},
			map[string]any{FieldCoreUtil: 30.0},
			"garbage",
		},
	}}

	got := readingMap(Derive(KindCPU, s))
	assert.Equal(t, 42.4, got["overall/utilization"])
	assert.Equal(t, 1.23, got["overall/load1"])
	assert.Equal(t, 0.5, got["overall/load5"])
	assert.Equal(t, 0.0, got["overall/load15"])
	assert.Equal(t, 10.0, got["cpu0/utilization"])
	assert.Equal(t, 20.0, got["cpu1/utilization"])
	assert.Equal(t, 30.0, got["cpu2/utilization"])
}

func TestDerive_Memory(t *testing.T) {
	gib := float64(bytesPerGiB)

	t.Run("utilization from used and total", func(t *testing.T) {
		s := RawSample{Fields: map[string]any{
			FieldMemTotal: 64 * gib,
			FieldMemUsed:  16 * gib,
			FieldMemFree:  48 * gib,
		}}
		got := readingMap(Derive(KindMemory, s))
		assert.Equal(t, 16.0, got["memory/used"])
		assert.Equal(t, 48.0, got["memory/free"])
		assert.Equal(t, 64.0, got["memory/total"])
		assert.Equal(t, 25.0, got["memory/utilization"])
	})

	t.Run("zero total", func(t *testing.T) {
		got := readingMap(Derive(KindMemory, RawSample{Fields: map[string]any{FieldMemUsed: gib}}))
		assert.Equal(t, 0.0, got["memory/utilization"])
	})
}

func TestDerive_MalformedFieldsReadAsZero(t *testing.T) {
	s := RawSample{
		Entity: "em0",
		Fields: map[string]any{
			FieldRxBytesDelta: "not a number",
			FieldTxBytesDelta: map[string]any{},
			FieldTimeDelta:    math.NaN(),
		},
	}

	readings := Derive(KindNetwork, s)
	require.Len(t, readings, 3)
	for _, r := range readings {
		assert.Equal(t, 0.0, r.Value)
	}
}

func TestDerive_UnknownKind(t *testing.T) {
	assert.Nil(t, Derive(Kind("gpu"), RawSample{}))
}

func TestRoundPrecision(t *testing.T) {
	assert.Equal(t, 1.5, BytesToGiB(1.5*float64(bytesPerGiB)))
	assert.Equal(t, 0.33, BytesToGiB(float64(bytesPerGiB)/3))
	assert.Equal(t, 33.3, Percent(100.0/3))
	assert.Equal(t, 0.333, BandwidthMBps(float64(bytesPerMiB)/3))
	assert.Equal(t, 0.0, Percent(math.Inf(1)))
}
