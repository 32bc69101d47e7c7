package cli

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

// NewTable returns a rounded table with themed headers and padded cells.
// Columns listed in rightAligned are right aligned.
func NewTable(headers []string, rows [][]string, rightAligned ...int) *ltable.Table {
	t := DefaultTheme
	right := make(map[int]bool, len(rightAligned))
	for _, col := range rightAligned {
		right[col] = true
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Colors.Border)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return t.TableHeader
			}
			style := cell
			if right[col] {
				style = style.Align(lipgloss.Right)
			}
			return style
		})
}
