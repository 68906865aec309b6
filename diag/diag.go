// Package diag implements the shared diagnostic collector every compiler
// phase writes into.
//
// Code ranges by phase:
//
//	PARSE    URD100-URD199
//	IMPORT   URD200-URD299
//	LINK     URD300-URD399
//	VALIDATE URD400-URD499
//	EMIT     URD500-URD599
//	ANALYZE  URD600-URD699
package diag

import (
	"fmt"
	"sort"

	"github.com/urdwyrd/urd/span"
)

// Severity orders Error before Warning before Info so the collector's
// stable sort places the most actionable diagnostics first within a
// source position.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Code is a diagnostic code in the URDxxx format.
type Code string

// NewCode formats n as a three-digit URD code, e.g. NewCode(303) == "URD303".
func NewCode(n int) Code {
	return Code(fmt.Sprintf("URD%03d", n))
}

// RelatedInfo attaches supplementary context to a Diagnostic, such as
// "first declared here".
type RelatedInfo struct {
	Message string
	Span    span.Span
}

// Diagnostic is a single compiler message.
type Diagnostic struct {
	Severity   Severity
	Code       Code
	Message    string
	Span       span.Span
	Suggestion *string
	Related    []RelatedInfo
}

// Collector accumulates diagnostics from every phase without halting
// compilation, so a single run can report as many issues as possible.
type Collector struct {
	diagnostics []Diagnostic
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Error records an error-severity diagnostic.
func (c *Collector) Error(code Code, message string, sp span.Span) {
	c.diagnostics = append(c.diagnostics, Diagnostic{Severity: SeverityError, Code: code, Message: message, Span: sp})
}

// Warning records a warning-severity diagnostic.
func (c *Collector) Warning(code Code, message string, sp span.Span) {
	c.diagnostics = append(c.diagnostics, Diagnostic{Severity: SeverityWarning, Code: code, Message: message, Span: sp})
}

// Info records an info-severity diagnostic.
func (c *Collector) Info(code Code, message string, sp span.Span) {
	c.diagnostics = append(c.diagnostics, Diagnostic{Severity: SeverityInfo, Code: code, Message: message, Span: sp})
}

// Emit records a fully specified diagnostic, e.g. one carrying a
// suggestion or related-info list.
func (c *Collector) Emit(d Diagnostic) {
	c.diagnostics = append(c.diagnostics, d)
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Sorted returns all diagnostics ordered by (file, start line, start
// column, severity).
func (c *Collector) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Span.File != b.Span.File {
			return a.Span.File < b.Span.File
		}
		if a.Span.StartLine != b.Span.StartLine {
			return a.Span.StartLine < b.Span.StartLine
		}
		if a.Span.StartCol != b.Span.StartCol {
			return a.Span.StartCol < b.Span.StartCol
		}
		return a.Severity < b.Severity
	})
	return out
}

// Len returns the total number of diagnostics recorded.
func (c *Collector) Len() int {
	return len(c.diagnostics)
}

// IsEmpty reports whether no diagnostics have been recorded.
func (c *Collector) IsEmpty() bool {
	return len(c.diagnostics) == 0
}

// All returns every diagnostic in insertion order.
func (c *Collector) All() []Diagnostic {
	return c.diagnostics
}
