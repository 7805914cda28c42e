package dashboard

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

func TestMetricColor(t *testing.T) {
	tests := []struct {
		percent float64
		want    lipgloss.Color
	}{
		{0, ColorHealthy},
		{69.9, ColorHealthy},
		{70, ColorWarning},
		{89.9, ColorWarning},
		{90, ColorCritical},
		{100, ColorCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MetricColor(tt.percent), "percent %v", tt.percent)
	}
}

func TestSectionWidths(t *testing.T) {
	for _, width := range []int{20, 40, 77} {
		assert.Equal(t, width, lipgloss.Width(SectionHeader("Network", "eth0", width, false)))
		assert.Equal(t, width, lipgloss.Width(SectionFooter(width, true)))
		assert.Equal(t, width, lipgloss.Width(SectionContentLine("hello", width, false)))
	}
}

func TestSectionContentLine_OverflowDoesNotPanic(t *testing.T) {
	line := SectionContentLine("a line that is much wider than the box", 10, false)
	assert.Contains(t, line, "much wider")
}

func TestStateBadge(t *testing.T) {
	assert.Contains(t, StateBadge(monitor.StateIdle, 0), GlyphIdle+" idle")
	assert.Contains(t, StateBadge(monitor.StateActive, 0), GlyphActive+" active")

	for frame, glyph := range LoadingSpinnerFrames {
		assert.Contains(t, StateBadge(monitor.StateAwaitingInitialLoad, frame), glyph+" loading")
	}
}
