package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

const (
	cardGraphHeight = 2
	cardLabelWidth  = 12
	cardValueWidth  = 12
	cardMinGraph    = 8
	coreRowsMax     = 8
)

// kindTitles are the card headings.
var kindTitles = map[monitor.Kind]string{
	monitor.KindNetwork:   "Network",
	monitor.KindStorageIO: "Pool I/O",
	monitor.KindARC:       "ARC",
	monitor.KindCPU:       "CPU",
	monitor.KindMemory:    "Memory",
}

// channelUnit returns the display unit for a channel and whether its values
// are percentages.
func channelUnit(kind monitor.Kind, channel string) (unit string, percent bool) {
	switch channel {
	case monitor.ChannelUtilization, monitor.ChannelHitRatio:
		return "%", true
	case monitor.ChannelLoad1, monitor.ChannelLoad5, monitor.ChannelLoad15:
		return "", false
	}
	switch kind {
	case monitor.KindNetwork:
		return "Mb/s", false
	case monitor.KindStorageIO:
		return "MB/s", false
	case monitor.KindARC, monitor.KindMemory:
		return "GiB", false
	}
	return "", false
}

// FormatValue renders a channel value with its unit.
func FormatValue(kind monitor.Kind, channel string, v float64) string {
	unit, percent := channelUnit(kind, channel)
	switch {
	case percent:
		return fmt.Sprintf("%.1f%%", v)
	case unit == "":
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.2f %s", v, unit)
	}
}

// channelLabel turns a channel name into a column label.
func channelLabel(channel string) string {
	switch channel {
	case monitor.ChannelHitRatio:
		return "hit ratio"
	case monitor.ChannelUtilization:
		return "util"
	}
	return channel
}

func values(points []monitor.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// graphScale picks the scale for one channel's graph.
func graphScale(kind monitor.Kind, channel string, data []float64) Scale {
	if _, percent := channelUnit(kind, channel); percent {
		s := PercentScale
		// A hit ratio is good when high; color it flat rather than by severity.
		if channel == monitor.ChannelHitRatio {
			s.Percent = false
		}
		return s
	}
	return AutoScale(data)
}

// renderCard renders one kind's card at the given outer width.
func (m Model) renderCard(kind monitor.Kind, width int, focused bool) string {
	entity := m.SelectedEntity(kind)
	entities := m.src.Entities(kind)

	value := ""
	if len(entities) > 1 || kind.MultiEntity() {
		value = entity
		if len(entities) > 1 {
			value = fmt.Sprintf("%s %d/%d", entity, indexOf(entities, entity)+1, len(entities))
		}
	}

	lines := []string{SectionHeader(kindTitles[kind], value, width, focused)}
	inner := width - 4

	if err := m.status.KindErrors[kind]; err != nil {
		msg := truncate("! "+noticeText(err), inner)
		lines = append(lines, SectionContentLine(NoticeStyle.Render(msg), width, focused))
	}

	channels := m.src.Channels(kind, entity)
	if len(channels) == 0 {
		lines = append(lines, SectionContentLine(MutedStyle.Render(m.emptyCardText()), width, focused))
	}

	graphWidth := inner - cardLabelWidth - cardValueWidth - 2
	for _, ch := range channels {
		data := values(m.src.Series(kind, entity, ch))
		if len(data) == 0 {
			continue
		}
		last := data[len(data)-1]

		label := LabelStyle.Width(cardLabelWidth).Render(channelLabel(ch))
		valueStyle := ValueStyle
		if _, percent := channelUnit(kind, ch); percent && ch != monitor.ChannelHitRatio {
			valueStyle = valueStyle.Foreground(MetricColor(last))
		}
		val := valueStyle.Width(cardValueWidth).Align(lipgloss.Right).Render(FormatValue(kind, ch, last))

		if graphWidth < cardMinGraph {
			lines = append(lines, SectionContentLine(label+val, width, focused))
			continue
		}
		graph := RenderBrailleSparkline(data, graphWidth, cardGraphHeight, graphScale(kind, ch, data), ColorGraph)
		for i, row := range strings.Split(graph, "\n") {
			prefix := strings.Repeat(" ", cardLabelWidth+cardValueWidth)
			if i == 0 {
				prefix = label + val
			}
			lines = append(lines, SectionContentLine(prefix+"  "+row, width, focused))
		}
	}

	if kind == monitor.KindCPU && entity == kind.SingletonEntity() {
		lines = append(lines, m.renderCoreRows(width, focused)...)
	}

	lines = append(lines, SectionFooter(width, focused))
	return strings.Join(lines, "\n")
}

// renderCoreRows adds one mini sparkline per core under the CPU card.
func (m Model) renderCoreRows(width int, focused bool) []string {
	single := monitor.KindCPU.SingletonEntity()
	var cores []string
	for _, e := range m.src.Entities(monitor.KindCPU) {
		if e != single {
			cores = append(cores, e)
		}
	}
	if len(cores) == 0 {
		return nil
	}

	inner := width - 4
	graphWidth := inner - cardLabelWidth - cardValueWidth - 2
	if graphWidth < cardMinGraph {
		graphWidth = cardMinGraph
	}

	var lines []string
	for i, core := range cores {
		if i == coreRowsMax {
			more := fmt.Sprintf("+%d more cores (j/k to inspect)", len(cores)-coreRowsMax)
			lines = append(lines, SectionContentLine(MutedStyle.Render(more), width, focused))
			break
		}
		data := values(m.src.Series(monitor.KindCPU, core, monitor.ChannelUtilization))
		if len(data) == 0 {
			continue
		}
		last := data[len(data)-1]
		label := MutedStyle.Width(cardLabelWidth).Render(core)
		val := lipgloss.NewStyle().Foreground(MetricColor(last)).Width(cardValueWidth).Align(lipgloss.Right).
			Render(FormatValue(monitor.KindCPU, monitor.ChannelUtilization, last))
		spark := lipgloss.NewStyle().Foreground(MetricColor(last)).
			Render(RenderMiniSparkline(data, graphWidth, PercentScale))
		lines = append(lines, SectionContentLine(label+val+"  "+spark, width, focused))
	}
	return lines
}

func (m Model) emptyCardText() string {
	switch m.status.State {
	case monitor.StateIdle:
		return "no host selected"
	case monitor.StateAwaitingInitialLoad:
		return "loading history..."
	}
	return "no data in this window"
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}

// truncate shortens s to max display cells, adding an ellipsis.
func truncate(s string, max int) string {
	if max <= 3 || lipgloss.Width(s) <= max {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+3 > max {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
