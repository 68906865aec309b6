// Package parse implements PARSE: source bytes and a path turn into a
// per-file AST with spans. Grammar failures never abort the file: each is
// reported as a diagnostic and scanning resumes at the next line. No
// ast.ErrorNode is produced — a line matching no construct becomes Prose,
// and an unrecognised condition or effect is kept as a placeholder
// expression beside its diagnostic (URD106/URD107).
//
// There is no general-purpose grammar library behind this scanner (see
// DESIGN.md for why go-tree-sitter was dropped): PARSE is a hand-rolled,
// indentation-sensitive recursive-descent reader over lines, matching the
// architecture brief's explicit error-recovery contract. Frontmatter is
// the one sub-grammar delegated to a library, gopkg.in/yaml.v3, because
// its node tree already carries line/column information this compiler
// needs for spans.
package parse

import (
	"strings"
	"unicode/utf8"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/span"
)

// Parse converts source into a FileAST rooted at path. It returns nil
// only on a catastrophic failure to interpret source as text at all;
// every other failure is reported as a diagnostic (see the package doc
// for what takes the failed line's place), and parsing continues.
func Parse(path string, source string, c *diag.Collector) *ast.FileAST {
	if !isValidUTF8(source) {
		c.Error(diag.NewCode(100), "file is not valid UTF-8 text", span.New(path, 1, 1))
		return nil
	}

	file := &ast.FileAST{Path: path, Span: span.New(path, 1, 1)}

	body := source
	startLine := 1
	if trimmed := strings.TrimLeft(source, "\n"); strings.HasPrefix(trimmed, "---") {
		lines := strings.Split(source, "\n")
		closeIdx := -1
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				closeIdx = i
				break
			}
		}
		if closeIdx == -1 {
			c.Error(diag.NewCode(108), "frontmatter block is not closed with '---'", span.New(path, 1, 1))
		} else {
			block := strings.Join(lines[1:closeIdx], "\n")
			file.Frontmatter = parseFrontmatter(path, block, 2, c)
			body = strings.Join(lines[closeIdx+1:], "\n")
			startLine = closeIdx + 2
		}
	}

	lines := scanLines(body, startLine)
	file.Content = parseContent(path, lines, c)
	if len(file.Content) > 0 {
		file.Span = span.Cover(file.Span, file.Content[len(file.Content)-1].NodeSpan())
	}
	return file
}

func isValidUTF8(s string) bool {
	return utf8.ValidString(s)
}
