// Package output provides consistent CLI messages: status lines, warnings
// and structured error reports.
package output

import (
	"fmt"
	"io"
	"strings"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/ui"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer. Color is used only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return NewWithColor(out, !ui.NoColor(out))
}

// NewWithColor creates a Writer with explicit color choice.
func NewWithColor(out io.Writer, color bool) *Writer {
	return &Writer{out: out, styles: ui.GetStyles(!color)}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", w.styles.Success.Render(msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.styles.Warning.Render(msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", w.styles.Error.Render(msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Report prints err with its hint and code. Warning-severity errors (a
// missing key, a refused secret) use the warning icon.
func (w *Writer) Report(err error) {
	if err == nil {
		return
	}
	ve, ok := vonerrors.As(err)
	if !ok {
		w.Error(err.Error())
		return
	}

	if ve.Severity == vonerrors.SeverityWarning {
		w.Warning(ve.Message)
	} else {
		w.Error(ve.Message)
	}
	if ve.Suggestion != "" {
		w.Status("", w.styles.Label.Render("Hint: ")+ve.Suggestion)
	}
	w.Status("", w.styles.Dim.Render(ve.Code))
}

// Lines prints each line of content indented.
func (w *Writer) Lines(content string) {
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
