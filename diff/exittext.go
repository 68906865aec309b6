package diff

import (
	"fmt"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/slugify"
)

// exitDeclText carries the rendered condition/blocked-message text found
// directly under one exit declaration.
type exitDeclText struct {
	Condition      string
	BlockedMessage string
}

// collectExitConditionText walks every file's content tree once, the same
// traversal shape facts/extract.go and emit/emit.go use, to recover the
// human-readable condition text behind each exit's AstNodeRef — a
// LocationSymbol only stores that condition's position in the AST, not
// its rendered text.
func collectExitConditionText(graph *dgraph.DependencyGraph) map[string]map[string]exitDeclText {
	out := make(map[string]map[string]exitDeclText)
	var currentLocation string

	var walk func(node ast.ContentNode)
	walk = func(node ast.ContentNode) {
		switch node.Kind {
		case ast.NodeLocationHeading:
			currentLocation = slugify.Slugify(node.LocationHeading.DisplayName)

		case ast.NodeExitDeclaration:
			if currentLocation != "" {
				recordExitText(out, currentLocation, node.ExitDeclaration)
			}
			for _, child := range node.ExitDeclaration.Children {
				walk(child)
			}

		case ast.NodeChoice:
			for _, child := range node.Choice.Content {
				walk(child)
			}
		}
	}

	for _, path := range graph.Paths() {
		n, ok := graph.Node(path)
		if !ok {
			continue
		}
		currentLocation = ""
		for _, content := range n.AST.Content {
			walk(content)
		}
	}
	return out
}

func recordExitText(out map[string]map[string]exitDeclText, locationID string, exit *ast.ExitDeclaration) {
	var text exitDeclText
	for _, child := range exit.Children {
		switch child.Kind {
		case ast.NodeCondition:
			text.Condition = renderCondition(child.Condition.Expr)
		case ast.NodeBlockedMessage:
			text.BlockedMessage = child.BlockedMessage.Text
		}
	}
	if text.Condition == "" && text.BlockedMessage == "" {
		return
	}
	if out[locationID] == nil {
		out[locationID] = make(map[string]exitDeclText)
	}
	out[locationID][exit.Direction] = text
}

// renderCondition reconstructs a comparable source form of a condition
// expression, mirroring emit/render.go's renderConditionExpr. Kept as a
// separate small copy rather than importing emit, since diff must stay
// usable without pulling in the full document-rendering package.
func renderCondition(expr ast.ConditionExpr) string {
	switch expr.Kind {
	case ast.ExprPropertyComparison:
		pc := expr.PropertyComparison
		return fmt.Sprintf("@%s.%s %s %s", pc.EntityRef, pc.Property, pc.Operator, pc.Value)
	case ast.ExprContainmentCheck:
		cc := expr.ContainmentCheck
		if cc.Negated {
			return fmt.Sprintf("@%s not in %s", cc.EntityRef, cc.ContainerRef)
		}
		return fmt.Sprintf("@%s in %s", cc.EntityRef, cc.ContainerRef)
	case ast.ExprExhaustionCheck:
		return "exhausted " + expr.ExhaustionCheck.SectionName
	default:
		return ""
	}
}
