package imp

import (
	"sort"
	"strings"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/parse"
	"github.com/urdwyrd/urd/span"
)

// CompilationUnit is IMPORT's output: the dependency graph plus every
// discovered file's AST in topological order (dependencies first, entry
// file last).
type CompilationUnit struct {
	Graph       *dgraph.DependencyGraph
	OrderedASTs []*ast.FileAST
}

// ResolveImports discovers every file reachable from entryAST via
// frontmatter import declarations, using the default OS-backed reader.
func ResolveImports(entryAST *ast.FileAST, entryDir string, c *diag.Collector) *CompilationUnit {
	return ResolveImportsWithReader(entryAST, entryDir, c, NewOsFileReader())
}

// ResolveImportsWithReader is ResolveImports with an explicit FileReader,
// the seam production code and tests both go through.
func ResolveImportsWithReader(entryAST *ast.FileAST, entryDir string, c *diag.Collector, reader FileReader) *CompilationUnit {
	graph := dgraph.New()

	entryPath := entryAST.Path
	entryImports := extractImportDecls(entryAST)

	graph.AddNode(&dgraph.FileNode{Path: entryPath, AST: entryAST})
	graph.EntryPath = entryPath

	visited := map[string]bool{entryPath: true}
	traversalStack := []string{entryPath}

	processImports(entryPath, entryImports, entryDir, graph, visited, &traversalStack, c, reader)

	checkFileCount(graph, c)
	checkFileStems(graph, c)

	order := graph.TopologicalOrder()
	orderedASTs := make([]*ast.FileAST, 0, len(order))
	for _, path := range order {
		if node, ok := graph.Node(path); ok {
			orderedASTs = append(orderedASTs, node.AST)
		}
	}

	return &CompilationUnit{Graph: graph, OrderedASTs: orderedASTs}
}

func extractImportDecls(file *ast.FileAST) []ast.ImportDecl {
	if file.Frontmatter == nil {
		return nil
	}
	var out []ast.ImportDecl
	for _, entry := range file.Frontmatter.Entries {
		if entry.Value.Kind == ast.FrontmatterImportDecl && entry.Value.ImportDecl != nil {
			out = append(out, *entry.Value.ImportDecl)
		}
	}
	return out
}

func pathDir(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx+1]
	}
	return ""
}

func pathFilename(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func collapseDotDot(path string) (string, bool) {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "..":
			if len(segments) == 0 {
				return "", false
			}
			segments = segments[:len(segments)-1]
		case ".", "":
		default:
			segments = append(segments, seg)
		}
	}
	return strings.Join(segments, "/"), true
}

func validateImportPath(writtenPath, sourceFile string, importSpan span.Span, c *diag.Collector) bool {
	if writtenPath == "" {
		c.Error(diag.NewCode(211), "empty import path", importSpan)
		return false
	}
	if strings.HasPrefix(writtenPath, "/") ||
		(len(writtenPath) >= 2 && isASCIILetter(writtenPath[0]) && writtenPath[1] == ':') {
		c.Error(diag.NewCode(209), "absolute import paths are not supported: '"+writtenPath+"'", importSpan)
		return false
	}
	if !strings.HasSuffix(writtenPath, ".urd.md") {
		c.Error(diag.NewCode(210), "import path '"+writtenPath+"' does not have the .urd.md extension", importSpan)
		return false
	}
	return true
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func resolveImportPath(writtenPath, importerPath string, importSpan span.Span, c *diag.Collector) (string, bool) {
	stripped := strings.TrimPrefix(writtenPath, "./")
	dir := pathDir(importerPath)
	joined := stripped
	if dir != "" {
		joined = dir + stripped
	}
	normalised, ok := collapseDotDot(joined)
	if !ok {
		c.Error(diag.NewCode(208), "import path '"+writtenPath+"' resolves outside the project root", importSpan)
		return "", false
	}
	return normalised, true
}

func processImports(importerPath string, decls []ast.ImportDecl, entryDir string, graph *dgraph.DependencyGraph, visited map[string]bool, traversalStack *[]string, c *diag.Collector, reader FileReader) {
	edgesFromThisFile := map[string]bool{}
	for _, decl := range decls {
		processSingleImport(importerPath, decl, entryDir, graph, visited, traversalStack, edgesFromThisFile, c, reader)
	}
}

func processSingleImport(importerPath string, decl ast.ImportDecl, entryDir string, graph *dgraph.DependencyGraph, visited map[string]bool, traversalStack *[]string, edgesFromThisFile map[string]bool, c *diag.Collector, reader FileReader) {
	trimmed := strings.TrimSpace(decl.Path)
	writtenPath := strings.ReplaceAll(trimmed, "\\", "/")

	if !validateImportPath(writtenPath, importerPath, decl.Span, c) {
		return
	}

	normalisedPath, ok := resolveImportPath(writtenPath, importerPath, decl.Span, c)
	if !ok {
		return
	}

	if normalisedPath == importerPath {
		c.Error(diag.NewCode(207), "file imports itself: '"+writtenPath+"'", decl.Span)
		return
	}

	for _, p := range *traversalStack {
		if p == normalisedPath {
			cyclePath := append(append([]string{}, cycleTail(*traversalStack, normalisedPath)...), normalisedPath)
			c.Error(diag.NewCode(202), "circular import detected: "+strings.Join(cyclePath, " -> "), decl.Span)
			return
		}
	}

	if len(*traversalStack) >= dgraph.MaxImportDepth {
		c.Error(diag.NewCode(204), "import depth limit exceeded (64 files in chain)", decl.Span)
		return
	}

	if visited[normalisedPath] {
		addEdge(importerPath, normalisedPath, edgesFromThisFile, graph)
		return
	}

	fsPath := normalisedPath
	if entryDir != "" {
		fsPath = entryDir + normalisedPath
	}

	source, err := reader.ReadFile(fsPath)
	if err != nil {
		switch err.Kind {
		case ReadNotFound:
			c.Error(diag.NewCode(201), "imported file not found: '"+writtenPath+"' (imported from "+importerPath+")", decl.Span)
		case ReadPermissionDenied:
			c.Error(diag.NewCode(213), "cannot read file '"+normalisedPath+"': permission denied", decl.Span)
		case ReadInvalidUTF8:
			c.Error(diag.NewCode(212), "file contains invalid UTF-8: '"+normalisedPath+"'", decl.Span)
		case ReadTooLarge:
			c.Error(diag.NewCode(103), "file exceeds 1 MB size limit: '"+normalisedPath+"'", decl.Span)
		default:
			c.Error(diag.NewCode(214), "i/o error reading '"+normalisedPath+"': "+err.Message, decl.Span)
		}
		return
	}

	filename := pathFilename(normalisedPath)
	fsDir := pathDir(normalisedPath)
	if entryDir != "" {
		fsDir = entryDir + fsDir
	}
	if canonical, mismatched := reader.CanonicalFilename(fsDir, filename); mismatched {
		dirPart := pathDir(normalisedPath)
		corrected := canonical
		if dirPart != "" {
			corrected = dirPart + canonical
		}
		c.Warning(diag.NewCode(206), "import path '"+writtenPath+"' differs in filename casing from discovered file '"+corrected+"'; using discovered casing", decl.Span)
		normalisedPath = corrected
		if visited[normalisedPath] {
			addEdge(importerPath, normalisedPath, edgesFromThisFile, graph)
			return
		}
	}

	if len(source) > dgraph.MaxFileSize {
		c.Error(diag.NewCode(103), "file exceeds 1 MB size limit: '"+normalisedPath+"'", decl.Span)
		return
	}

	fileAST := parse.Parse(normalisedPath, source, c)
	if fileAST == nil {
		return
	}

	newImports := extractImportDecls(fileAST)
	graph.AddNode(&dgraph.FileNode{Path: normalisedPath, AST: fileAST})
	visited[normalisedPath] = true
	addEdge(importerPath, normalisedPath, edgesFromThisFile, graph)

	*traversalStack = append(*traversalStack, normalisedPath)
	processImports(normalisedPath, newImports, entryDir, graph, visited, traversalStack, c, reader)
	*traversalStack = (*traversalStack)[:len(*traversalStack)-1]
}

func cycleTail(stack []string, from string) []string {
	for i, p := range stack {
		if p == from {
			return stack[i:]
		}
	}
	return stack
}

func addEdge(importer, target string, edgesFromThisFile map[string]bool, graph *dgraph.DependencyGraph) {
	if !edgesFromThisFile[target] {
		edgesFromThisFile[target] = true
		graph.AddEdge(importer, target)
	}
}

func checkFileCount(graph *dgraph.DependencyGraph, c *diag.Collector) {
	if graph.NodeCount() > dgraph.MaxFileCount {
		c.Error(diag.NewCode(205), "compilation unit exceeds 256 files", span.Synthetic())
	}
}

func checkFileStems(graph *dgraph.DependencyGraph, c *diag.Collector) {
	stems := map[string][]string{}
	for _, path := range graph.Paths() {
		stem := dgraph.FileStem(path)
		stems[stem] = append(stems[stem], path)
	}
	sortedStems := make([]string, 0, len(stems))
	for stem := range stems {
		sortedStems = append(sortedStems, stem)
	}
	sort.Strings(sortedStems)

	for _, stem := range sortedStems {
		paths := stems[stem]
		if len(paths) <= 1 {
			continue
		}
		sort.Strings(paths)
		for i := 0; i < len(paths); i++ {
			for j := i + 1; j < len(paths); j++ {
				c.Error(diag.NewCode(203), "file stem collision: '"+stem+"' is produced by both "+paths[i]+" and "+paths[j], span.Synthetic())
			}
		}
	}
}
