// Package output provides consistent CLI output formatting, with ANSI
// color only when writing to a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ANSI sequences used when color is enabled.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiCyan   = "\033[36m"
)

// Writer provides formatted output for CLI commands.
type Writer struct {
	out      io.Writer
	useColor bool
}

// New creates a Writer. Color is enabled when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return &Writer{out: out, useColor: isTTY(out) && !noColor()}
}

// NewPlain creates a Writer with color disabled.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func noColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// color wraps s in the sequence when color is enabled.
func (w *Writer) color(seq, s string) string {
	if !w.useColor {
		return s
	}
	return seq + s + ansiReset
}

// Printf writes formatted text. Write errors on console output are
// intentionally ignored.
func (w *Writer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}

// Println writes a line.
func (w *Writer) Println(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Newline writes an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Success writes a success line.
func (w *Writer) Success(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.color(ansiGreen, "ok"), fmt.Sprintf(format, args...))
}

// Warning writes a warning line.
func (w *Writer) Warning(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.color(ansiYellow, "warning:"), fmt.Sprintf(format, args...))
}

// Error writes an error line.
func (w *Writer) Error(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.color(ansiRed, "error:"), fmt.Sprintf(format, args...))
}

// Header writes a bold section header.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.color(ansiBold, msg))
}

// Field writes an aligned name/value line.
func (w *Writer) Field(name string, value any) {
	_, _ = fmt.Fprintf(w.out, "  %-18s %v\n", name+":", value)
}

// Path writes a highlighted file path.
func (w *Writer) Path(p string) string {
	return w.color(ansiCyan, p)
}

// Dim renders de-emphasized text.
func (w *Writer) Dim(s string) string {
	return w.color(ansiDim, s)
}

// Score renders a merge score with fixed precision.
func (w *Writer) Score(score float64) string {
	return w.color(ansiBold, fmt.Sprintf("%.3f", score))
}

// Indent writes a block of text indented by two spaces.
func (w *Writer) Indent(content string) {
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
}
