package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Console writes short styled status lines for CLI users. Structured logs go
// through NewLogger; Console is for what the user is meant to read.
type Console struct {
	writer io.Writer
	styles ConsoleStyles
}

// ConsoleStyles contains lipgloss styles for console lines.
type ConsoleStyles struct {
	Success lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Path    lipgloss.Style
}

// DefaultConsoleStyles returns the default styling.
func DefaultConsoleStyles() ConsoleStyles {
	return ConsoleStyles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Key:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Value:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Italic(true),
	}
}

// NewConsole creates a console writing to stderr.
func NewConsole() *Console {
	return &Console{
		writer: os.Stderr,
		styles: DefaultConsoleStyles(),
	}
}

// WithWriter sets a custom writer.
func (c *Console) WithWriter(w io.Writer) *Console {
	c.writer = w
	return c
}

// Success prints a message with a checkmark.
func (c *Console) Success(message string) {
	fmt.Fprintf(c.writer, "%s %s\n", c.styles.Success.Render("✓"), c.styles.Success.Render(message))
}

// Info prints a plain informational message.
func (c *Console) Info(message string) {
	fmt.Fprintf(c.writer, "%s\n", c.styles.Info.Render(message))
}

// Warn prints a warning.
func (c *Console) Warn(message string) {
	fmt.Fprintf(c.writer, "%s %s\n", c.styles.Warning.Render("⚠"), c.styles.Warning.Render(message))
}

// Error prints an error with an optional cause.
func (c *Console) Error(message string, err error) {
	fmt.Fprintf(c.writer, "%s %s", c.styles.Error.Render("✗"), c.styles.Error.Render(message))
	if err != nil {
		fmt.Fprintf(c.writer, ": %s", c.styles.Error.Render(err.Error()))
	}
	fmt.Fprintln(c.writer)
}

// Field prints a key-value pair.
func (c *Console) Field(key string, value interface{}) {
	fmt.Fprintf(c.writer, "%s: %s\n", c.styles.Key.Render(key), c.styles.Value.Render(fmt.Sprint(value)))
}

// Path prints a labelled file path.
func (c *Console) Path(label, path string) {
	fmt.Fprintf(c.writer, "%s: %s\n", c.styles.Key.Render(label), c.styles.Path.Render(path))
}
