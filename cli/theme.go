package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Colors is the palette used by CLI output.
type Colors struct {
	Red    lipgloss.TerminalColor
	Green  lipgloss.TerminalColor
	Yellow lipgloss.TerminalColor
	Orange lipgloss.TerminalColor
	Blue   lipgloss.TerminalColor
	Cyan   lipgloss.TerminalColor
	Violet lipgloss.TerminalColor
	Muted  lipgloss.TerminalColor
	Border lipgloss.TerminalColor
}

// Theme holds the styles shared by help output and tables.
type Theme struct {
	Colors      Colors
	Muted       lipgloss.Style
	Italic      lipgloss.Style
	Bold        lipgloss.Style
	TableHeader lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Error       lipgloss.Style
}

// DefaultTheme is the kanagawa-based theme.
var DefaultTheme = NewTheme()

// NewTheme builds the default theme.
func NewTheme() *Theme {
	c := Colors{
		Red:    lipgloss.AdaptiveColor{Light: "#C84053", Dark: "#FF5D62"},
		Green:  lipgloss.AdaptiveColor{Light: "#6F894E", Dark: "#98BB6C"},
		Yellow: lipgloss.AdaptiveColor{Light: "#CC6D00", Dark: "#FF9E3B"},
		Orange: lipgloss.AdaptiveColor{Light: "#E98A00", Dark: "#FFA066"},
		Blue:   lipgloss.AdaptiveColor{Light: "#4D699B", Dark: "#7FB4CA"},
		Cyan:   lipgloss.AdaptiveColor{Light: "#597B75", Dark: "#7E9CD8"},
		Violet: lipgloss.AdaptiveColor{Light: "#624C83", Dark: "#957FB8"},
		Muted:  lipgloss.AdaptiveColor{Light: "#8A8980", Dark: "#727169"},
		Border: lipgloss.AdaptiveColor{Light: "#C7C7C0", Dark: "#363646"},
	}
	return &Theme{
		Colors:      c,
		Muted:       lipgloss.NewStyle().Foreground(c.Muted),
		Italic:      lipgloss.NewStyle().Italic(true),
		Bold:        lipgloss.NewStyle().Bold(true),
		TableHeader: lipgloss.NewStyle().Bold(true).Foreground(c.Orange).Padding(0, 1),
		Success:     lipgloss.NewStyle().Foreground(c.Green),
		Warning:     lipgloss.NewStyle().Foreground(c.Yellow),
		Error:       lipgloss.NewStyle().Bold(true).Foreground(c.Red),
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
