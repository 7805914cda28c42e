package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn is a column title and its width in cells.
type TableColumn struct {
	Title string
	Width int
}

// FitColumns widens each column to fit its title and every row's cell.
func FitColumns(titles []string, rows [][]string) []TableColumn {
	cols := make([]TableColumn, len(titles))
	for i, title := range titles {
		cols[i] = TableColumn{Title: title, Width: lipgloss.Width(title)}
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(cols) && lipgloss.Width(cell) > cols[i].Width {
				cols[i].Width = lipgloss.Width(cell)
			}
		}
	}
	return cols
}

// NewTable creates a non-focused Bubbles table sized to show every row.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		// Header row plus its bottom border.
		table.WithHeight(len(rows)+2),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Nothing is focused in printed output, so the cursor row looks like any other.
	s.Selected = s.Cell
	t.SetStyles(s)
	return t
}

// RenderTable renders rows under titles for plain CLI output.
func RenderTable(titles []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	view := NewTable(FitColumns(titles, rows), tableRows).View()
	return strings.TrimRight(view, " \n")
}
