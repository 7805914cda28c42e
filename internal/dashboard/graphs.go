package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille cells hold a 2x4 dot matrix, so each character plots two samples
// with four vertical levels:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
const brailleBase = '⠀'

// brailleDots maps [row][col] inside a cell to its bit offset.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// sparklineBlocks give 8 vertical levels in a single row.
var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Scale is the value range mapped onto a graph's height.
type Scale struct {
	Min, Max float64
	// Percent colors each column by severity instead of a flat color.
	Percent bool
}

// PercentScale is the fixed 0-100 range used for utilization channels.
var PercentScale = Scale{Min: 0, Max: 100, Percent: true}

// AutoScale fits the range to data. Non-negative data is anchored at zero so
// a flat line of throughput doesn't fill the graph.
func AutoScale(data []float64) Scale {
	if len(data) == 0 {
		return Scale{Min: 0, Max: 1}
	}
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo >= 0 {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}
	return Scale{Min: lo, Max: hi}
}

func (s Scale) normalize(v float64) float64 {
	if s.Max <= s.Min {
		return 0.5
	}
	n := (v - s.Min) / (s.Max - s.Min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// RenderBrailleSparkline plots data right-aligned in a width x height block
// of braille cells. Data longer than 2*width is downsampled keeping peaks.
func RenderBrailleSparkline(data []float64, width, height int, scale Scale, color lipgloss.Color) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	totalDots := height * 4
	slots := width * 2
	points := data
	if len(points) > slots {
		points = resampleData(points, slots)
	}
	offset := slots - len(points)

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(brailleBase), width))
	}
	colPeak := make([]float64, width)

	for i, v := range points {
		col := (i + offset) / 2
		sub := (i + offset) % 2
		if v > colPeak[col] {
			colPeak[col] = v
		}

		dots := int(scale.normalize(v) * float64(totalDots))
		if dots == 0 && v > scale.Min {
			dots = 1
		}
		for dot := 0; dot < dots; dot++ {
			row := height - 1 - dot/4
			grid[row][col] |= rune(1) << brailleDots[3-dot%4][sub]
		}
	}

	lines := make([]string, height)
	for r, row := range grid {
		var b strings.Builder
		for c, cell := range row {
			fg := color
			if scale.Percent {
				fg = MetricColor(colPeak[c])
			}
			b.WriteString(lipgloss.NewStyle().Foreground(fg).Render(string(cell)))
		}
		lines[r] = b.String()
	}
	return strings.Join(lines, "\n")
}

// RenderMiniSparkline renders one row of block characters, one per column.
func RenderMiniSparkline(data []float64, width int, scale Scale) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	points := data
	if len(points) > width {
		points = resampleData(points, width)
	}

	var b strings.Builder
	for _, v := range points {
		idx := int(scale.normalize(v) * float64(len(sparklineBlocks)-1))
		b.WriteRune(sparklineBlocks[idx])
	}
	return b.String()
}

// resampleData downsamples by taking the max of each bucket, so spikes
// survive, and upsamples by linear interpolation.
func resampleData(data []float64, target int) []float64 {
	if len(data) == 0 || target <= 0 {
		return nil
	}
	if len(data) == target {
		return data
	}

	out := make([]float64, target)
	if len(data) == 1 {
		for i := range out {
			out[i] = data[0]
		}
		return out
	}

	if len(data) > target {
		bucket := float64(len(data)) / float64(target)
		for i := 0; i < target; i++ {
			start := int(float64(i) * bucket)
			end := int(float64(i+1) * bucket)
			if end > len(data) {
				end = len(data)
			}
			if start >= end {
				start = end - 1
			}
			peak := data[start]
			for _, v := range data[start+1 : end] {
				if v > peak {
					peak = v
				}
			}
			out[i] = peak
		}
		return out
	}

	step := float64(len(data)-1) / float64(target-1)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(data)-1 {
			out[i] = data[len(data)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = data[idx]*(1-frac) + data[idx+1]*frac
	}
	return out
}
