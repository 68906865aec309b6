// Package span carries source locations through every compiler phase.
package span

import "fmt"

// Span identifies a range of text within a single source file. Lines and
// columns are 1-indexed, matching the editor convention diagnostics are
// rendered against.
type Span struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Synthetic returns the zero-value span used for diagnostics the compiler
// itself generates rather than attributes to a specific source location.
func Synthetic() Span {
	return Span{}
}

// IsSynthetic reports whether s carries no real source location.
func (s Span) IsSynthetic() bool {
	return s.File == "" && s.StartLine == 0 && s.StartCol == 0 && s.EndLine == 0 && s.EndCol == 0
}

func (s Span) String() string {
	if s.IsSynthetic() {
		return "<synthetic>"
	}
	if s.StartLine == s.EndLine {
		return fmt.Sprintf("%s:%d:%d-%d", s.File, s.StartLine, s.StartCol, s.EndCol)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.File, s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// New builds a single-point span covering one position.
func New(file string, line, col int) Span {
	return Span{File: file, StartLine: line, StartCol: col, EndLine: line, EndCol: col}
}

// Cover returns the smallest span enclosing both a and b. Both must belong
// to the same file; if they don't, a is returned unchanged.
func Cover(a, b Span) Span {
	if a.File != b.File {
		return a
	}
	out := a
	if b.StartLine < out.StartLine || (b.StartLine == out.StartLine && b.StartCol < out.StartCol) {
		out.StartLine, out.StartCol = b.StartLine, b.StartCol
	}
	if b.EndLine > out.EndLine || (b.EndLine == out.EndLine && b.EndCol > out.EndCol) {
		out.EndLine, out.EndCol = b.EndLine, b.EndCol
	}
	return out
}
