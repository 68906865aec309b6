package validate

import (
	"fmt"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/symtab"
)

var arithmeticOperators = map[string]bool{"+": true, "-": true}

// validateEffects is step 4: the same content-tree walk as step 3, this
// time dispatching every Effect node and every rule block's Effects slice.
func validateEffects(graph *dgraph.DependencyGraph, st *symtab.SymbolTable, c *diag.Collector) {
	for _, path := range graph.Paths() {
		node, ok := graph.Node(path)
		if !ok {
			continue
		}
		for _, content := range node.AST.Content {
			walkEffects(content, st, c)
		}
	}
}

func walkEffects(node ast.ContentNode, st *symtab.SymbolTable, c *diag.Collector) {
	switch node.Kind {
	case ast.NodeEffect:
		validateEffect(node.Effect, st, c)

	case ast.NodeChoice:
		for _, child := range node.Choice.Content {
			walkEffects(child, st, c)
		}

	case ast.NodeExitDeclaration:
		for _, child := range node.ExitDeclaration.Children {
			walkEffects(child, st, c)
		}

	case ast.NodeRuleBlock:
		rule := node.RuleBlock
		for i := range rule.Effects {
			validateEffect(&rule.Effects[i], st, c)
		}
	}
}

func validateEffect(eff *ast.Effect, st *symtab.SymbolTable, c *diag.Collector) {
	switch eff.EffectType.Kind {
	case ast.EffectSet:
		validateSetEffect(eff, st, c)
	case ast.EffectMove:
		validateMoveEffect(eff, st, c)
	case ast.EffectReveal:
		validateRevealEffect(eff, st, c)
	case ast.EffectDestroy:
		// No further checks: the entity reference itself was already
		// validated by LINK (301).
	}
}

func validateSetEffect(eff *ast.Effect, st *symtab.SymbolTable, c *diag.Collector) {
	ann := eff.Annotation
	if ann == nil || ann.ResolvedProperty == nil || ann.ResolvedType == nil {
		return
	}
	typeSym, ok := st.Types.Get(*ann.ResolvedType)
	if !ok {
		return
	}
	prop, ok := typeSym.Properties.Get(*ann.ResolvedProperty)
	if !ok {
		return
	}

	op := eff.EffectType.Operator
	if arithmeticOperators[op] && prop.PropertyType != symtab.PropertyInteger && prop.PropertyType != symtab.PropertyNumber {
		c.Error(diag.NewCode(424), fmt.Sprintf(
			"Arithmetic operator '%s' is not valid on non-numeric property '%s'.", op, prop.Name,
		), eff.Span)
		return
	}

	value := parseStringToValue(eff.EffectType.ValueExpr, prop.PropertyType)
	entityID := ""
	if ann.ResolvedEntity != nil {
		entityID = *ann.ResolvedEntity
	}
	checkValue(value, prop, entityID, typeSym.Name, checkConditionOrEffect, st, eff.Span, c)
}

func validateMoveEffect(eff *ast.Effect, st *symtab.SymbolTable, c *diag.Collector) {
	ann := eff.Annotation
	if ann == nil {
		return
	}
	if ann.ResolvedEntity != nil {
		entity, ok := st.Entities.Get(*ann.ResolvedEntity)
		if ok && entity.TypeSymbol != nil && !hasTrait(*entity.TypeSymbol, "portable", st) {
			c.Error(diag.NewCode(425), fmt.Sprintf(
				"Entity '@%s' is moved but its type '%s' does not declare the portable trait.",
				*ann.ResolvedEntity, *entity.TypeSymbol,
			), eff.Span)
		}
	}

	if ann.DestinationKind != nil && ann.DestinationKind.Tag == ast.DestinationEntityRef {
		destEntity, ok := st.Entities.Get(ann.DestinationKind.RefID)
		if ok && destEntity.TypeSymbol != nil && !hasTrait(*destEntity.TypeSymbol, "container", st) {
			c.Warning(diag.NewCode(422), fmt.Sprintf(
				"Entity '@%s' is used as a move destination but its type '%s' does not declare the container trait.",
				ann.DestinationKind.RefID, *destEntity.TypeSymbol,
			), eff.Span)
		}
	}
}

func validateRevealEffect(eff *ast.Effect, st *symtab.SymbolTable, c *diag.Collector) {
	ann := eff.Annotation
	if ann == nil || ann.ResolvedProperty == nil || ann.ResolvedType == nil {
		return
	}
	typeSym, ok := st.Types.Get(*ann.ResolvedType)
	if !ok {
		return
	}
	prop, ok := typeSym.Properties.Get(*ann.ResolvedProperty)
	if !ok {
		return
	}
	if prop.Visibility != symtab.VisibilityHidden {
		c.Warning(diag.NewCode(426), fmt.Sprintf(
			"Reveal effect targets property '%s', which is not declared hidden.", prop.Name,
		), eff.Span)
	}
}
