package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	helpMaxWidth = 72
	helpMinWidth = 40
)

// SetStyledHelp installs the styled help renderer on a single command.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelp)
}

// ApplyStyledHelpRecursive installs the styled help renderer on cmd and every
// subcommand. Usage output on errors is suppressed; ErrorHandler prints the
// hint instead. Call it after the command tree is complete.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelp)
	cmd.SetUsageFunc(func(*cobra.Command) error { return nil })
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

func helpWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return helpMaxWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < helpMinWidth {
		return helpMaxWidth
	}
	return min(width, helpMaxWidth)
}

// wrapText wraps each paragraph of text at width columns.
func wrapText(text string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			lines = append(lines, paragraph)
			continue
		}
		var line string
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseDescription splits a long description at its "Examples:" heading.
func parseDescription(long string) (description, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return strings.TrimSpace(long), ""
}

func styledHelp(cmd *cobra.Command, _ []string) {
	t := DefaultTheme
	out := cmd.OutOrStdout()
	width := helpWidth(out) - 2

	title := lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Orange)
	section := lipgloss.NewStyle().Italic(true).Foreground(t.Colors.Orange)
	name := lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Blue)
	flagStyle := lipgloss.NewStyle().Foreground(t.Colors.Violet)

	fmt.Fprintln(out, " "+title.Render(strings.ToUpper(cmd.CommandPath())))
	for _, line := range wrapText(cmd.Short, width) {
		fmt.Fprintln(out, " "+t.Italic.Render(line))
	}

	description, examples := parseDescription(cmd.Long)
	if description != "" && description != cmd.Short {
		fmt.Fprintln(out)
		for _, line := range wrapText(description, width) {
			fmt.Fprintln(out, " "+line)
		}
	}

	fmt.Fprintln(out, "\n "+section.Render("USAGE"))
	if cmd.Runnable() {
		fmt.Fprintf(out, " %s\n", cmd.UseLine())
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(out, " %s [command]\n", cmd.CommandPath())

		var subs []*cobra.Command
		pad := 0
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() {
				subs = append(subs, sub)
				pad = max(pad, len(sub.Name()))
			}
		}
		fmt.Fprintln(out, "\n "+section.Render("COMMANDS"))
		for _, sub := range subs {
			fmt.Fprintf(out, " %s%s  %s\n", name.Render(sub.Name()), strings.Repeat(" ", pad-len(sub.Name())), sub.Short)
		}
	}

	var flags []*pflag.Flag
	pad := 0
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags = append(flags, f)
			pad = max(pad, len(flagLabel(f)))
		}
	})
	if len(flags) > 0 {
		fmt.Fprintln(out, "\n "+section.Render("FLAGS"))
		for _, f := range flags {
			label := flagLabel(f)
			usage := f.Usage
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" && f.DefValue != "0" {
				usage += t.Muted.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
			}
			fmt.Fprintf(out, " %s%s  %s\n", flagStyle.Render(label), strings.Repeat(" ", pad-len(label)), usage)
		}
	}

	if cmd.Example != "" {
		examples = cmd.Example
	}
	if examples != "" {
		fmt.Fprintln(out, "\n "+section.Render("EXAMPLES"))
		for _, line := range strings.Split(examples, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				fmt.Fprintln(out)
			case strings.HasPrefix(line, "#"):
				fmt.Fprintln(out, " "+t.Muted.Render(line))
			default:
				fmt.Fprintln(out, "   "+styleExample(line, cmd.Root().Name(), name, flagStyle))
			}
		}
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(out, "\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

// styleExample highlights the binary name and flags of an example line.
func styleExample(line, root string, nameStyle, flagStyle lipgloss.Style) string {
	parts := strings.Fields(line)
	for i, part := range parts {
		switch {
		case i == 0 && part == root:
			parts[i] = nameStyle.Render(part)
		case strings.HasPrefix(part, "-"):
			parts[i] = flagStyle.Render(part)
		}
	}
	return strings.Join(parts, " ")
}

func flagLabel(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return "    --" + f.Name
}
