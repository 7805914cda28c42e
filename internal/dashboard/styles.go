package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// Dashboard color palette.
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent    = lipgloss.Color("#FF2E97")
	ColorAccentDim = lipgloss.Color("#BF40FF")

	ColorGraph = lipgloss.Color("#00FFFF")
)

// Thresholds for percentage channels.
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	BannerStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorCritical).
			Bold(true).
			Padding(0, 1)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)
)

// Engine state glyphs.
const (
	GlyphIdle    = "◌"
	GlyphLoading = "◐"
	GlyphActive  = "◉"
)

// LoadingSpinnerFrames animate the header while a backfill is running.
var LoadingSpinnerFrames = []string{"◐", "◓", "◑", "◒"}

// StateBadge renders the engine state as glyph plus label.
func StateBadge(state monitor.State, frame int) string {
	switch state {
	case monitor.StateActive:
		return lipgloss.NewStyle().Foreground(ColorHealthy).Render(GlyphActive + " " + state.String())
	case monitor.StateAwaitingInitialLoad:
		glyph := LoadingSpinnerFrames[frame%len(LoadingSpinnerFrames)]
		return lipgloss.NewStyle().Foreground(ColorWarning).Render(glyph + " " + state.String())
	default:
		return MutedStyle.Render(GlyphIdle + " " + state.String())
	}
}

// MetricColor returns the severity color for a percentage value.
func MetricColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalThreshold:
		return ColorCritical
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// SectionHeader renders ╭─ Title ──────── Value ╮ at the given width.
func SectionHeader(title, value string, width int, focused bool) string {
	if width < 10 {
		width = 10
	}

	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2
	fill := width - leftWidth - rightWidth
	if fill < 1 {
		fill = 1
	}

	border := lipgloss.NewStyle().Foreground(ColorBorder)
	if focused {
		border = border.Foreground(ColorAccent)
	}
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(ColorGraph).Bold(true)

	return border.Render("╭─ ") +
		titleStyle.Render(title) +
		border.Render(" "+strings.Repeat("─", fill)+" ") +
		valueStyle.Render(value) +
		border.Render(" ╮")
}

// SectionFooter renders ╰───╯ at the given width.
func SectionFooter(width int, focused bool) string {
	if width < 2 {
		width = 2
	}
	border := lipgloss.NewStyle().Foreground(ColorBorder)
	if focused {
		border = border.Foreground(ColorAccent)
	}
	return border.Render("╰" + strings.Repeat("─", width-2) + "╯")
}

// SectionContentLine renders │ content │ padded to width.
func SectionContentLine(content string, width int, focused bool) string {
	if width < 4 {
		width = 4
	}
	border := lipgloss.NewStyle().Foreground(ColorBorder)
	if focused {
		border = border.Foreground(ColorAccent)
	}

	pad := width - 4 - lipgloss.Width(content)
	if pad < 0 {
		pad = 0
	}
	return border.Render("│") + " " + content + strings.Repeat(" ", pad) + " " + border.Render("│")
}
