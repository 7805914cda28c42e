package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if banner := m.renderBanner(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.viewMode == ViewDetail && m.viewportReady {
		b.WriteString(m.detailViewport.View())
	} else if m.viewMode == ViewDetail {
		b.WriteString(m.renderDetail())
	} else {
		b.WriteString(m.renderCards())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader shows host, engine state, the view settings and freshness.
func (m Model) renderHeader() string {
	host := m.status.Host
	if host == "" {
		host = m.SelectedHost()
	}
	if host == "" {
		host = "no host"
	}

	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render("hostwatch")
	hostText := ValueStyle.Render(host)
	settings := LabelStyle.Render(fmt.Sprintf("%s · %s · %s",
		m.status.Window, m.status.Resolution, formatInterval(m.status.RefreshInterval)))

	parts := []string{title, hostText, StateBadge(m.status.State, m.frame), settings, LabelStyle.Render(m.updatedText())}
	return HeaderStyle.Render(strings.Join(parts, MutedStyle.Render(" │ ")))
}

func (m Model) updatedText() string {
	if m.status.InFlight && m.status.State == monitor.StateActive {
		return "refreshing..."
	}
	switch s := m.SecondsSinceUpdate(); s {
	case -1:
		return "waiting for data"
	case 0:
		return "updated just now"
	default:
		return fmt.Sprintf("updated %ds ago", s)
	}
}

// renderBanner shows the all-kinds-failed error, if any.
func (m Model) renderBanner() string {
	if m.status.Banner == nil {
		return ""
	}
	text := "Monitoring API unavailable: " + noticeText(m.status.Banner)
	if m.width > 0 {
		text = truncate(text, m.width-2)
	}
	return BannerStyle.Render(text)
}

// cardWidth sizes cards for the current layout.
func (m Model) cardWidth() int {
	if m.width == 0 {
		return 80
	}
	if m.LayoutMode() == LayoutWide {
		return m.width/2 - 1
	}
	return m.width - 1
}

// renderCards lays out one card per kind.
func (m Model) renderCards() string {
	width := m.cardWidth()
	cards := make([]string, len(monitor.AllKinds))
	for i, kind := range monitor.AllKinds {
		cards[i] = m.renderCard(kind, width, i == m.focus)
	}

	if m.LayoutMode() != LayoutWide {
		return lipgloss.JoinVertical(lipgloss.Left, cards...)
	}

	var rows []string
	for i := 0; i < len(cards); i += 2 {
		if i+1 < len(cards) {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i], " ", cards[i+1]))
		} else {
			rows = append(rows, cards[i])
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderFooter shows the last notice, or the key hints.
func (m Model) renderFooter() string {
	if m.notice != "" {
		return FooterStyle.Render(NoticeStyle.Render(m.notice))
	}
	hints := []string{"q quit", "r refresh", "w window", "s resolution", "i interval", "h host", "? help"}
	if m.viewMode == ViewDetail {
		hints = []string{"esc back", "↑↓ scroll", "q quit"}
	}
	return FooterStyle.Render(strings.Join(hints, " | "))
}

func formatInterval(d time.Duration) string {
	if d == 0 {
		return "refresh off"
	}
	return "every " + d.String()
}
