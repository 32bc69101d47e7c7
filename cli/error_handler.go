package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/telemetry/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to out
func NewErrorHandler(out io.Writer, verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     out,
	}
}

// Handle prints a message for err based on its code and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	red := DefaultTheme.Error
	muted := DefaultTheme.Muted
	groveErr, _ := errors.As(err)
	detail := func(key string) interface{} {
		if groveErr == nil || groveErr.Details == nil {
			return ""
		}
		return groveErr.Details[key]
	}

	fmt.Fprintf(h.Out, "%s %v\n", red.Render("Error:"), err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintln(h.Out, muted.Render(fmt.Sprintf("No configuration at %v. Omit --config to use defaults.", detail("path"))))

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintln(h.Out, muted.Render("Check the file against 'telemetry config schema'."))

	case errors.ErrCodeNotFound:
		switch detail("kind") {
		case "project", "project directory":
			fmt.Fprintln(h.Out, muted.Render("Run 'telemetry projects' to list known projects."))
		case "session":
			fmt.Fprintln(h.Out, muted.Render("Run 'telemetry sessions <project>' to list its sessions."))
		case "pty session":
			fmt.Fprintln(h.Out, muted.Render("Run 'telemetry pty list' to see running terminals."))
		}

	case errors.ErrCodeInvalidInput:
		fmt.Fprintln(h.Out, muted.Render("Run the command with --help for accepted values."))

	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintln(h.Out, muted.Render("Start it with 'telemetry daemon start'."))

	case errors.ErrCodeCommandNotFound:
		fmt.Fprintln(h.Out, muted.Render("Live detection needs 'ps' and 'lsof' on PATH."))

	case errors.ErrCodeEnumerationError:
		fmt.Fprintln(h.Out, muted.Render("The process table could not be read; live sessions are unavailable."))
	}

	if h.Verbose && groveErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", groveErr.ToJSON())
	}
	return err
}
