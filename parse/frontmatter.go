package parse

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/span"
)

// parseFrontmatter decodes the `---`-delimited block at the top of a file
// using yaml.v3's node tree (rather than decoding into Go structs)
// specifically because yaml.Node carries Line/Column, giving every
// frontmatter value a real span for span-tracked diagnostics downstream.
func parseFrontmatter(path, block string, startLine int, c *diag.Collector) *ast.Frontmatter {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		c.Error(diag.NewCode(101), "frontmatter is not valid YAML: "+err.Error(), span.New(path, startLine, 1))
		return nil
	}
	if len(doc.Content) == 0 {
		return &ast.Frontmatter{Span: span.New(path, startLine, 1)}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		c.Error(diag.NewCode(102), "frontmatter must be a mapping of keys to values", nodeSpan(path, root))
		return nil
	}

	fm := &ast.Frontmatter{Span: span.Cover(span.New(path, startLine, 1), nodeSpan(path, root))}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := root.Content[i]
		valNode := root.Content[i+1]
		entry := ast.FrontmatterEntry{
			Key:   keyNode.Value,
			Value: classifyFrontmatterValue(path, keyNode.Value, valNode, c, 0),
			Span:  span.Cover(nodeSpan(path, keyNode), nodeSpan(path, valNode)),
		}
		fm.Entries = append(fm.Entries, entry)
	}
	return fm
}

func nodeSpan(path string, n *yaml.Node) span.Span {
	if n == nil {
		return span.Synthetic()
	}
	line := n.Line
	if line == 0 {
		line = 1
	}
	col := n.Column
	if col == 0 {
		col = 1
	}
	return span.New(path, line, col)
}

func classifyFrontmatterValue(path, key string, n *yaml.Node, c *diag.Collector, depth int) ast.FrontmatterValue {
	if depth > 8 {
		c.Error(diag.NewCode(104), "frontmatter nesting exceeds 8 levels", nodeSpan(path, n))
		return ast.FrontmatterValue{Kind: ast.FrontmatterScalar}
	}

	switch key {
	case "import":
		if n.Kind == yaml.ScalarNode {
			return ast.FrontmatterValue{
				Kind: ast.FrontmatterImportDecl,
				ImportDecl: &ast.ImportDecl{
					Path: n.Value,
					Span: nodeSpan(path, n),
				},
			}
		}
	case "world":
		if n.Kind == yaml.MappingNode {
			wb := &ast.WorldBlock{Span: nodeSpan(path, n)}
			for i := 0; i+1 < len(n.Content); i += 2 {
				wb.Fields = append(wb.Fields, ast.WorldField{
					Key:   n.Content[i].Value,
					Value: classifyScalar(n.Content[i+1]),
				})
			}
			return ast.FrontmatterValue{Kind: ast.FrontmatterWorldBlock, WorldBlock: wb}
		}
	}

	if strings.HasPrefix(key, "@") && n.Kind == yaml.MappingNode {
		return ast.FrontmatterValue{Kind: ast.FrontmatterEntityDecl, EntityDecl: classifyEntityDecl(path, key, n)}
	}

	if n.Kind == yaml.MappingNode && looksLikeTypeDef(n) {
		return ast.FrontmatterValue{Kind: ast.FrontmatterTypeDef, TypeDef: classifyTypeDef(path, key, n, c)}
	}

	switch n.Kind {
	case yaml.ScalarNode:
		return ast.FrontmatterValue{Kind: ast.FrontmatterScalar, Scalar: classifyScalar(n)}
	case yaml.SequenceNode:
		list := make([]ast.FrontmatterValue, 0, len(n.Content))
		for _, item := range n.Content {
			list = append(list, classifyFrontmatterValue(path, "", item, c, depth+1))
		}
		return ast.FrontmatterValue{Kind: ast.FrontmatterList, List: list}
	case yaml.MappingNode:
		entries := make([]ast.FrontmatterEntry, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			entries = append(entries, ast.FrontmatterEntry{
				Key:   n.Content[i].Value,
				Value: classifyFrontmatterValue(path, n.Content[i].Value, n.Content[i+1], c, depth+1),
				Span:  nodeSpan(path, n.Content[i]),
			})
		}
		if n.Style == yaml.FlowStyle {
			return ast.FrontmatterValue{Kind: ast.FrontmatterInlineObject, InlineObject: entries}
		}
		return ast.FrontmatterValue{Kind: ast.FrontmatterMap, Map: entries}
	}
	return ast.FrontmatterValue{Kind: ast.FrontmatterScalar}
}

// looksLikeTypeDef heuristically recognizes a type definition: a
// non-empty mapping whose every value is itself a mapping (a property
// descriptor). A scalar or list value anywhere in it disqualifies it.
func looksLikeTypeDef(n *yaml.Node) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i+1].Kind != yaml.MappingNode {
			return false
		}
	}
	return len(n.Content) > 0
}

func classifyTypeDef(path, name string, n *yaml.Node, c *diag.Collector) *ast.TypeDef {
	td := &ast.TypeDef{Name: strings.TrimSuffix(strings.Split(name, " ")[0], ":"), Span: nodeSpan(path, n)}
	parts := strings.Fields(name)
	if len(parts) > 1 {
		td.Name = parts[0]
		traitsBlob := strings.Join(parts[1:], " ")
		traitsBlob = strings.Trim(traitsBlob, "[]")
		for _, t := range strings.Split(traitsBlob, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				td.Traits = append(td.Traits, t)
			}
		}
	} else {
		td.Name = name
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		propName := n.Content[i].Value
		propNode := n.Content[i+1]
		td.Properties = append(td.Properties, classifyPropertyDef(path, propName, propNode, c))
	}
	return td
}

func classifyPropertyDef(path, name string, n *yaml.Node, c *diag.Collector) ast.PropertyDef {
	pd := ast.PropertyDef{Name: name, Span: nodeSpan(path, n)}
	get := func(key string) *yaml.Node {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				return n.Content[i+1]
			}
		}
		return nil
	}
	if v := get("type"); v != nil {
		pd.RawTypeString = v.Value
		pd.PropertyType = v.Value
	}
	if v := get("default"); v != nil {
		s := classifyScalar(v)
		pd.Default = &s
	}
	if v := get("visibility"); v != nil {
		val := v.Value
		pd.Visibility = &val
	}
	if v := get("values"); v != nil && v.Kind == yaml.SequenceNode {
		for _, item := range v.Content {
			pd.Values = append(pd.Values, item.Value)
		}
	}
	if v := get("min"); v != nil {
		if f, err := strconv.ParseFloat(v.Value, 64); err == nil {
			pd.Min = &f
		}
	}
	if v := get("max"); v != nil {
		if f, err := strconv.ParseFloat(v.Value, 64); err == nil {
			pd.Max = &f
		}
	}
	if v := get("ref"); v != nil {
		val := v.Value
		pd.RefType = &val
	}
	if v := get("element"); v != nil && v.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(v.Content); i += 2 {
			switch v.Content[i].Value {
			case "type":
				val := v.Content[i+1].Value
				pd.ElementType = &val
			case "values":
				for _, item := range v.Content[i+1].Content {
					pd.ElementValues = append(pd.ElementValues, item.Value)
				}
			case "ref":
				val := v.Content[i+1].Value
				pd.ElementRefType = &val
			}
		}
	}
	if v := get("description"); v != nil {
		val := v.Value
		pd.Description = &val
	}
	return pd
}

func classifyEntityDecl(path, key string, n *yaml.Node) *ast.EntityDecl {
	decl := &ast.EntityDecl{ID: strings.TrimPrefix(key, "@"), Span: nodeSpan(path, n)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		v := n.Content[i+1]
		if k == "type" {
			decl.TypeName = v.Value
			continue
		}
		decl.PropertyOverrides = append(decl.PropertyOverrides, ast.EntityPropertyOverride{
			Key:   k,
			Value: classifyScalar(v),
		})
	}
	return decl
}

func classifyScalar(n *yaml.Node) ast.Scalar {
	if n == nil {
		return ast.Scalar{Kind: ast.ScalarString}
	}
	if n.Kind == yaml.SequenceNode {
		list := make([]ast.Scalar, 0, len(n.Content))
		for _, item := range n.Content {
			list = append(list, classifyScalar(item))
		}
		return ast.Scalar{Kind: ast.ScalarListKind, ListVal: list}
	}
	raw := n.Value
	if strings.HasPrefix(raw, "@") {
		return ast.Scalar{Kind: ast.ScalarEntityRef, EntityRefID: strings.TrimPrefix(raw, "@")}
	}
	switch n.Tag {
	case "!!bool":
		return ast.Scalar{Kind: ast.ScalarBoolean, BooleanVal: raw == "true"}
	case "!!int":
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return ast.Scalar{Kind: ast.ScalarInteger, IntegerVal: i}
		}
	case "!!float":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return ast.Scalar{Kind: ast.ScalarNumber, NumberVal: f}
		}
	}
	return ast.Scalar{Kind: ast.ScalarString, StringVal: raw}
}
