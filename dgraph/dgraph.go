// Package dgraph implements the dependency graph IMPORT builds from a
// file's import declarations: a directed acyclic graph, depth-limited,
// with file stems required to be unique and the whole structure stable
// across runs over the same inputs.
package dgraph

import (
	"sort"
	"strings"

	"github.com/urdwyrd/urd/ast"
)

const (
	// MaxImportDepth is the maximum import chain depth.
	MaxImportDepth = 64
	// MaxFileCount is the maximum number of files in a compilation unit.
	MaxFileCount = 256
	// MaxFileSize is the maximum file size in bytes (1 MB).
	MaxFileSize = 1_048_576
	// MaxChoiceNestingDepth is the nesting depth that becomes an error.
	MaxChoiceNestingDepth = 4
	// WarnChoiceNestingDepth is the nesting depth that triggers a warning.
	WarnChoiceNestingDepth = 3
	// MaxFrontmatterNestingDepth is the maximum nesting depth of
	// frontmatter maps/lists.
	MaxFrontmatterNestingDepth = 8
)

// FileNode is one node in the dependency graph: a parsed file plus the
// paths it directly imports.
type FileNode struct {
	Path    string
	AST     *ast.FileAST
	Imports []string
}

// DependencyGraph is the directed acyclic graph of file imports produced
// by IMPORT.
type DependencyGraph struct {
	EntryPath string
	nodeOrder []string
	nodes     map[string]*FileNode
	Edges     [][2]string
}

// New returns an empty DependencyGraph.
func New() *DependencyGraph {
	return &DependencyGraph{nodes: make(map[string]*FileNode)}
}

// AddNode registers a file node, preserving first-insertion order.
func (g *DependencyGraph) AddNode(node *FileNode) {
	if _, exists := g.nodes[node.Path]; !exists {
		g.nodeOrder = append(g.nodeOrder, node.Path)
	}
	g.nodes[node.Path] = node
}

// Node returns the node registered at path, if any.
func (g *DependencyGraph) Node(path string) (*FileNode, bool) {
	n, ok := g.nodes[path]
	return n, ok
}

// NodeCount returns the number of registered nodes.
func (g *DependencyGraph) NodeCount() int {
	return len(g.nodes)
}

// Paths returns every registered path in insertion order.
func (g *DependencyGraph) Paths() []string {
	out := make([]string, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// AddEdge records a dependency edge from importer to target and appends
// target to importer's node imports list if not already present.
func (g *DependencyGraph) AddEdge(importer, target string) {
	g.Edges = append(g.Edges, [2]string{importer, target})
	if node, ok := g.nodes[importer]; ok {
		for _, existing := range node.Imports {
			if existing == target {
				return
			}
		}
		node.Imports = append(node.Imports, target)
	}
}

// TopologicalOrder returns every node path ordered so that dependencies
// precede their importers (Kahn's algorithm over Edges), breaking ties
// alphabetically among nodes that become ready at the same step. The
// entry file, having no remaining dependents pointing to it consumed
// last, sorts last among files at its depth. The graph is guaranteed
// acyclic by the time this is called (IMPORT rejects cycles before
// compilation proceeds further), so every node is eventually emitted.
func (g *DependencyGraph) TopologicalOrder() []string {
	inDegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for path := range g.nodes {
		inDegree[path] = 0
	}
	// An edge importer -> target means target must be emitted before
	// importer (it's a dependency), so for topological purposes importer
	// depends on target: importer's in-degree counts its own imports.
	for _, e := range g.Edges {
		importer, target := e[0], e[1]
		if _, ok := g.nodes[importer]; !ok {
			continue
		}
		if _, ok := g.nodes[target]; !ok {
			continue
		}
		inDegree[importer]++
		dependents[target] = append(dependents[target], importer)
	}

	var ready []string
	for path, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		var newlyReady []string
		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sort.Strings(newlyReady)
		ready = append(ready, newlyReady...)
	}
	return order
}

// FileStems returns a map from file stem to the (first) path producing
// it, mirroring the original's file_stems() helper.
func (g *DependencyGraph) FileStems() map[string]string {
	stems := make(map[string]string, len(g.nodes))
	for _, path := range g.nodeOrder {
		stems[FileStem(path)] = path
	}
	return stems
}

// FileStem extracts the file stem from a path: strip directory and the
// .urd.md extension. content/tavern.urd.md -> tavern.
func FileStem(path string) string {
	name := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		name = path[idx+1:]
	}
	return strings.TrimSuffix(name, ".urd.md")
}
