// Package link implements LINK: two sequential passes over every file in
// topological order. Pass 1 (collect.go) registers every declaration in
// the symbol table. Pass 2 (resolve.go) resolves every reference,
// filling in each AST node's Annotation.
package link

import (
	"strconv"
	"strings"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/symtab"
)

// FileContext carries the per-file state collection needs: the file's
// stem, the set of paths it can reference (itself plus its direct
// imports — imports are not transitive), and a local name -> compiled ID
// map for its own section labels.
type FileContext struct {
	FileStem      string
	VisibleScope  map[string]bool
	LocalSections map[string]string
}

// WorldConfig accumulates the `world:` block's start/entry targets as
// they're encountered during collection, across every file in the
// compilation unit (only one file is expected to declare them, but
// collection doesn't enforce that — a later declaration simply
// overwrites the stored target, mirroring a single mutable slot).
type WorldConfig struct {
	Start *symtab.WorldTarget
	Entry *symtab.WorldTarget
}

// visibleScope computes the set of paths a file at filePath may
// reference: itself plus its direct imports.
func visibleScope(filePath string, graph *dgraph.DependencyGraph) map[string]bool {
	scope := map[string]bool{filePath: true}
	if node, ok := graph.Node(filePath); ok {
		for _, imported := range node.Imports {
			scope[imported] = true
		}
	}
	return scope
}

// parsePropertyType maps a raw type-string to the corresponding
// PropertyType, defaulting to PropertyString for anything unrecognised.
// VALIDATE's type-definition pass separately warns (URD429) when the raw
// string isn't one of the recognised spellings.
func parsePropertyType(raw string) symtab.PropertyType {
	switch raw {
	case "bool", "boolean":
		return symtab.PropertyBoolean
	case "int", "integer":
		return symtab.PropertyInteger
	case "num", "number":
		return symtab.PropertyNumber
	case "enum":
		return symtab.PropertyEnum
	case "ref":
		return symtab.PropertyRef
	case "list":
		return symtab.PropertyList
	default:
		return symtab.PropertyString
	}
}

// scalarToValue converts a parsed frontmatter scalar into the symbol
// table's Value representation.
func scalarToValue(s ast.Scalar) symtab.Value {
	switch s.Kind {
	case ast.ScalarString:
		return symtab.Value{Kind: symtab.ValueString, StringVal: s.StringVal}
	case ast.ScalarInteger:
		return symtab.Value{Kind: symtab.ValueInteger, IntegerVal: s.IntegerVal}
	case ast.ScalarNumber:
		return symtab.Value{Kind: symtab.ValueNumber, NumberVal: s.NumberVal}
	case ast.ScalarBoolean:
		return symtab.Value{Kind: symtab.ValueBoolean, BooleanVal: s.BooleanVal}
	case ast.ScalarEntityRef:
		return symtab.Value{Kind: symtab.ValueEntityRef, EntityRefID: s.EntityRefID}
	case ast.ScalarListKind:
		list := make([]symtab.Value, 0, len(s.ListVal))
		for _, item := range s.ListVal {
			list = append(list, scalarToValue(item))
		}
		return symtab.Value{Kind: symtab.ValueList, ListVal: list}
	default:
		return symtab.Value{Kind: symtab.ValueString}
	}
}

// literalToValue parses a raw string literal the way rule where-clauses
// and inline comparisons do: true/false -> boolean, integer and number
// literals, @id -> entity ref, anything else -> string.
func literalToValue(raw string) symtab.Value {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "true":
		return symtab.Value{Kind: symtab.ValueBoolean, BooleanVal: true}
	case "false":
		return symtab.Value{Kind: symtab.ValueBoolean, BooleanVal: false}
	}
	if strings.HasPrefix(trimmed, "@") {
		return symtab.Value{Kind: symtab.ValueEntityRef, EntityRefID: strings.TrimPrefix(trimmed, "@")}
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return symtab.Value{Kind: symtab.ValueInteger, IntegerVal: i}
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return symtab.Value{Kind: symtab.ValueNumber, NumberVal: f}
	}
	return symtab.Value{Kind: symtab.ValueString, StringVal: trimmed}
}
