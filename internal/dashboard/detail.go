package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const detailGraphHeight = 4

// channelStats summarizes a series for the detail view.
type channelStats struct {
	Min, Max, Avg, Last float64
	Points             int
}

func summarize(data []float64) channelStats {
	if len(data) == 0 {
		return channelStats{}
	}
	s := channelStats{Min: data[0], Max: data[0], Last: data[len(data)-1], Points: len(data)}
	sum := 0.0
	for _, v := range data {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
	}
	s.Avg = sum / float64(len(data))
	return s
}

// updateDetailViewportContent refreshes the scrollable detail content.
func (m *Model) updateDetailViewportContent() {
	if !m.viewportReady {
		return
	}
	m.detailViewport.SetContent(m.renderDetail())
}

// renderDetail renders every entity and channel of the focused kind with
// taller graphs and window statistics.
func (m Model) renderDetail() string {
	kind := m.FocusedKind()
	width := m.width
	if width == 0 {
		width = 100
	}
	inner := width - 4

	entities := m.src.Entities(kind)
	if len(entities) == 0 {
		return SectionHeader(kindTitles[kind], "", width, true) + "\n" +
			SectionContentLine(MutedStyle.Render(m.emptyCardText()), width, true) + "\n" +
			SectionFooter(width, true)
	}

	selected := m.SelectedEntity(kind)
	var sections []string
	for _, entity := range entities {
		title := kindTitles[kind]
		if entity != "" {
			title += " · " + entity
		}
		focused := entity == selected
		lines := []string{SectionHeader(title, string(m.status.Window), width, focused)}

		for _, ch := range m.src.Channels(kind, entity) {
			data := values(m.src.Series(kind, entity, ch))
			if len(data) == 0 {
				continue
			}
			st := summarize(data)
			head := fmt.Sprintf("%s  now %s  min %s  avg %s  max %s  (%d pts)",
				channelLabel(ch),
				FormatValue(kind, ch, st.Last),
				FormatValue(kind, ch, st.Min),
				FormatValue(kind, ch, st.Avg),
				FormatValue(kind, ch, st.Max),
				st.Points)
			lines = append(lines, SectionContentLine(LabelStyle.Render(truncate(head, inner)), width, focused))

			graph := RenderBrailleSparkline(data, inner, detailGraphHeight, graphScale(kind, ch, data), ColorGraph)
			for _, row := range strings.Split(graph, "\n") {
				lines = append(lines, SectionContentLine(row, width, focused))
			}
		}
		lines = append(lines, SectionFooter(width, focused))
		sections = append(sections, strings.Join(lines, "\n"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
