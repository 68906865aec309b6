// Package compiler implements the top-level orchestrator: source text (via
// an entry file and an injectable reader) through PARSE, IMPORT, LINK,
// VALIDATE, FACTS, ANALYZE, and EMIT to a Result.
//
// Compile is a pure function of its inputs. It holds no package-level
// mutable state so independent callers can invoke it concurrently from
// separate goroutines with separate inputs.
package compiler

import (
	"github.com/urdwyrd/urd/analyze"
	"github.com/urdwyrd/urd/defindex"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/diff"
	"github.com/urdwyrd/urd/emit"
	"github.com/urdwyrd/urd/facts"
	"github.com/urdwyrd/urd/imp"
	"github.com/urdwyrd/urd/link"
	"github.com/urdwyrd/urd/parse"
	"github.com/urdwyrd/urd/span"
	"github.com/urdwyrd/urd/symtab"
	"github.com/urdwyrd/urd/validate"
)

// Result is the outcome of one Compile call.
type Result struct {
	// Success is true when compilation completed with zero errors.
	Success bool
	// World is the emitted JSON document, present only when Success.
	World []byte
	// Diagnostics carries every diagnostic from every phase that ran.
	Diagnostics *diag.Collector

	// SymbolTable is present whenever LINK produced any output, even if
	// VALIDATE later reported errors.
	SymbolTable *symtab.SymbolTable
	// Graph is the dependency graph IMPORT built.
	Graph *dgraph.DependencyGraph
	// Definitions is the definition index built from the symbol table.
	Definitions *defindex.Index
	// Facts is the fact set FACTS extracted, present whenever LINK ran.
	Facts *facts.FactSet
	// PropertyDependencies indexes Facts by property key.
	PropertyDependencies *facts.PropertyDependencyIndex
	// Snapshot is the diff-engine projection of this compilation, built
	// whenever Facts is present, so two Results can be diffed against
	// each other regardless of whether either one emitted successfully.
	Snapshot *diff.Snapshot
}

// Compile orchestrates the full pipeline for entryPath, reading source text
// through reader. entryDir is the directory entryPath's relative import
// paths are resolved against; pass "" to resolve against the working
// directory reader already roots its paths at.
func Compile(entryPath string, entryDir string, reader imp.FileReader) *Result {
	c := diag.NewCollector()

	source, err := reader.ReadFile(entryPath)
	if err != nil {
		c.Error(errCodeFor(err.Kind), "cannot read file '"+entryPath+"': "+err.Message, span.New(entryPath, 1, 1))
		return &Result{Success: false, Diagnostics: c}
	}

	entryAST := parse.Parse(entryPath, source, c)
	if entryAST == nil {
		return &Result{Success: false, Diagnostics: c}
	}

	unit := imp.ResolveImportsWithReader(entryAST, entryDir, c, reader)
	graph := unit.Graph

	st := symtab.New()
	world := &link.WorldConfig{}
	orderedPaths := graph.TopologicalOrder()

	ctxs := link.Collect(graph, orderedPaths, st, world, c)
	link.Resolve(graph, orderedPaths, st, world, ctxs, c)

	validate.Validate(graph, st, c)

	result := &Result{
		Diagnostics: c,
		SymbolTable: st,
		Graph:       graph,
		Definitions: defindex.Build(st),
	}

	fs := facts.Extract(graph, st)
	result.Facts = fs
	idx := facts.Build(fs)
	result.PropertyDependencies = idx
	analyze.Analyze(fs, idx, c)
	result.Snapshot = diff.Build(graph, st, fs, idx)

	if c.HasErrors() {
		result.Success = false
		return result
	}

	doc, emitErr := emit.Emit(graph, st)
	if emitErr != nil {
		c.Error(diag.NewCode(500), "emit failed: "+emitErr.Error(), span.Synthetic())
		result.Success = false
		return result
	}

	result.Success = true
	result.World = doc
	return result
}

// errCodeFor maps an entry-file read failure to the URD100 code family,
// the only phase step where a read failure precedes PARSE ever running.
func errCodeFor(kind imp.ReadErrorKind) diag.Code {
	switch kind {
	case imp.ReadTooLarge:
		return diag.NewCode(103)
	default:
		return diag.NewCode(100)
	}
}
