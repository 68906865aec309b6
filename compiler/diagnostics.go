package compiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/urdwyrd/urd/diag"
)

// FormatDiagnostics renders every diagnostic in c in sorted order, one per
// line in the form "[severity] file:line:col: message (code)", with any
// related-info lines indented beneath the primary line.
func FormatDiagnostics(c *diag.Collector) string {
	var b strings.Builder
	for _, d := range c.Sorted() {
		writeDiagnostic(&b, d)
	}
	return b.String()
}

// WriteDiagnostics writes the same rendering FormatDiagnostics produces
// directly to w, the form a CLI's error stream would use.
func WriteDiagnostics(w io.Writer, c *diag.Collector) error {
	_, err := io.WriteString(w, FormatDiagnostics(c))
	return err
}

func writeDiagnostic(b *strings.Builder, d diag.Diagnostic) {
	fmt.Fprintf(b, "[%s] %s:%d:%d: %s (%s)\n", d.Severity, d.Span.File, d.Span.StartLine, d.Span.StartCol, d.Message, d.Code)
	for _, rel := range d.Related {
		fmt.Fprintf(b, "    %s:%d:%d: %s\n", rel.Span.File, rel.Span.StartLine, rel.Span.StartCol, rel.Message)
	}
}

// ExitCode returns the process exit code a CLI caller should use for c:
// 0 when error-free, 1 otherwise.
func ExitCode(c *diag.Collector) int {
	if c.HasErrors() {
		return 1
	}
	return 0
}
