package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(entity string, sec int64, marker string) RawSample {
	return RawSample{
		Entity:        entity,
		ScanTimestamp: time.Unix(sec, 0).UTC(),
		Fields:        map[string]any{"marker": marker},
	}
}

func TestLatestPerEntity(t *testing.T) {
	samples := []RawSample{
		sampleAt("ixgbe0", 30, "a3"),
		sampleAt("ixgbe0", 10, "a1"),
		sampleAt("em0", 20, "b2"),
		sampleAt("ixgbe0", 20, "a2"),
		sampleAt("em0", 5, "b1"),
	}

	got := LatestPerEntity(samples)
	require.Len(t, got, 2)
	assert.Equal(t, "a3", got["ixgbe0"].String("marker"))
	assert.Equal(t, "b2", got["em0"].String("marker"))
}

func TestLatestPerEntity_EqualTimestampsLaterWins(t *testing.T) {
	got := LatestPerEntity([]RawSample{
		sampleAt("tank", 10, "first"),
		sampleAt("tank", 10, "second"),
	})
	assert.Equal(t, "second", got["tank"].String("marker"))
}

func TestLatestPerEntity_Empty(t *testing.T) {
	assert.Empty(t, LatestPerEntity(nil))
}

func TestNormalizeSamples(t *testing.T) {
	input := []RawSample{
		sampleAt("tank", 30, "t30"),
		sampleAt("tank", 10, "t10-first"),
		{Entity: "tank", Fields: map[string]any{"marker": "no-ts"}},
		sampleAt("boot", 10, "b10"),
		sampleAt("tank", 10, "t10-last"),
		sampleAt("tank", 20, "t20"),
	}
	original := append([]RawSample(nil), input...)

	got := normalizeSamples(input)

	var markers []string
	for _, s := range got {
		markers = append(markers, s.String("marker"))
	}
	assert.Equal(t, []string{"t10-last", "b10", "t20", "t30"}, markers)
	assert.Equal(t, original, input, "input must not be modified")

	latest, ok := latestTimestamp(got)
	assert.True(t, ok)
	assert.Equal(t, time.Unix(30, 0).UTC(), latest)
}

func TestLatestTimestamp_Empty(t *testing.T) {
	_, ok := latestTimestamp(nil)
	assert.False(t, ok)
}
