package validate

import (
	"fmt"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/symtab"
)

// Validate runs VALIDATE's five fixed steps in order: type declarations,
// entity overrides, conditions, effects, and (since reachability analysis
// is independent of the other four) global reachability. Each step applies
// the skip rule to LINK's annotations; no step reads another step's
// diagnostics.
func Validate(graph *dgraph.DependencyGraph, st *symtab.SymbolTable, c *diag.Collector) {
	validateTypes(st, c)
	validateEntities(st, c)
	validateConditions(graph, st, c)
	validateEffects(graph, st, c)
	validateReachability(graph, st, c)
}

// validateReachability is the optional global step: it flags locations
// unreachable from world.start by following resolved exits, and choices
// whose condition can never be satisfied by any effect anywhere in the
// world.
func validateReachability(graph *dgraph.DependencyGraph, st *symtab.SymbolTable, c *diag.Collector) {
	validateLocationReachability(st, c)
	validateChoiceReachability(graph, st, c)
}

func validateLocationReachability(st *symtab.SymbolTable, c *diag.Collector) {
	if st.WorldStart == nil || st.Locations.Len() == 0 {
		return // No declared start: nothing to anchor reachability to.
	}

	reachable := map[string]bool{st.WorldStart.ID: true}
	queue := []string{st.WorldStart.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		loc, ok := st.Locations.Get(id)
		if !ok {
			continue
		}
		for _, direction := range loc.Exits.Keys() {
			exit, _ := loc.Exits.Get(direction)
			if exit.ResolvedDestination == nil {
				continue
			}
			dest := *exit.ResolvedDestination
			if !reachable[dest] {
				reachable[dest] = true
				queue = append(queue, dest)
			}
		}
	}

	for _, id := range st.Locations.Keys() {
		if reachable[id] {
			continue
		}
		loc, _ := st.Locations.Get(id)
		c.Warning(diag.NewCode(430), fmt.Sprintf(
			"Location '%s' is unreachable from the declared starting location.", loc.DisplayName,
		), loc.DeclaredIn)
	}
}

// validateChoiceReachability gathers every literal value ever assigned by a
// Set effect to each (type, property) pair, then flags any equality
// condition guarding a choice whose compared value is never produced by any
// write in the world — such a choice can never be taken.
func validateChoiceReachability(graph *dgraph.DependencyGraph, st *symtab.SymbolTable, c *diag.Collector) {
	written := make(map[string]map[string]bool) // "type.property" -> set of written literal values

	record := func(node ast.ContentNode) {}
	record = func(node ast.ContentNode) {
		switch node.Kind {
		case ast.NodeEffect:
			eff := node.Effect
			if eff.EffectType.Kind == ast.EffectSet && eff.Annotation != nil &&
				eff.Annotation.ResolvedType != nil && eff.Annotation.ResolvedProperty != nil {
				key := *eff.Annotation.ResolvedType + "." + *eff.Annotation.ResolvedProperty
				if written[key] == nil {
					written[key] = make(map[string]bool)
				}
				written[key][eff.EffectType.ValueExpr] = true
			}
		case ast.NodeChoice:
			for _, child := range node.Choice.Content {
				record(child)
			}
		case ast.NodeExitDeclaration:
			for _, child := range node.ExitDeclaration.Children {
				record(child)
			}
		case ast.NodeRuleBlock:
			for i := range node.RuleBlock.Effects {
				eff := &node.RuleBlock.Effects[i]
				if eff.EffectType.Kind == ast.EffectSet && eff.Annotation != nil &&
					eff.Annotation.ResolvedType != nil && eff.Annotation.ResolvedProperty != nil {
					key := *eff.Annotation.ResolvedType + "." + *eff.Annotation.ResolvedProperty
					if written[key] == nil {
						written[key] = make(map[string]bool)
					}
					written[key][eff.EffectType.ValueExpr] = true
				}
			}
		}
	}

	for _, path := range graph.Paths() {
		node, ok := graph.Node(path)
		if !ok {
			continue
		}
		for _, content := range node.AST.Content {
			record(content)
		}
	}

	check := func(node ast.ContentNode) {}
	check = func(node ast.ContentNode) {
		if node.Kind == ast.NodeChoice {
			choice := node.Choice
			for _, child := range choice.Content {
				if child.Kind != ast.NodeCondition {
					continue
				}
				pc := child.Condition.Expr.PropertyComparison
				if child.Condition.Expr.Kind != ast.ExprPropertyComparison || pc == nil || pc.Operator != "==" {
					continue
				}
				if pc.Annotation == nil || pc.Annotation.ResolvedType == nil || pc.Annotation.ResolvedProperty == nil {
					continue
				}
				key := *pc.Annotation.ResolvedType + "." + *pc.Annotation.ResolvedProperty
				if !written[key][pc.Value] {
					c.Warning(diag.NewCode(432), fmt.Sprintf(
						"Choice '%s' requires %s == %s, but no effect in the world ever sets that value.",
						choice.Label, key, pc.Value,
					), choice.Span)
				}
			}
			for _, child := range choice.Content {
				check(child)
			}
		}
	}

	for _, path := range graph.Paths() {
		node, ok := graph.Node(path)
		if !ok {
			continue
		}
		for _, content := range node.AST.Content {
			check(content)
		}
	}
}
