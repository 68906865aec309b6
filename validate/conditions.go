package validate

import (
	"fmt"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/symtab"
)

var orderComparisonOperators = map[string]bool{"<": true, ">": true, "<=": true, ">=": true}

// validateConditions is step 3: walk every file's content tree, checking
// every condition expression reachable from a Condition node, an
// OrConditionBlock, a choice's nested content, an exit's children, or a
// rule block's where-clauses and select clause.
func validateConditions(graph *dgraph.DependencyGraph, st *symtab.SymbolTable, c *diag.Collector) {
	for _, path := range graph.Paths() {
		node, ok := graph.Node(path)
		if !ok {
			continue
		}
		stem := dgraph.FileStem(path)
		localSections := localSectionIDs(st, stem)
		for _, content := range node.AST.Content {
			walkConditions(content, st, localSections, c)
		}
	}
}

func localSectionIDs(st *symtab.SymbolTable, fileStem string) map[string]bool {
	ids := make(map[string]bool)
	for _, secID := range st.Sections.Keys() {
		sec, _ := st.Sections.Get(secID)
		if sec.FileStem == fileStem {
			ids[sec.LocalName] = true
		}
	}
	return ids
}

func walkConditions(node ast.ContentNode, st *symtab.SymbolTable, localSections map[string]bool, c *diag.Collector) {
	switch node.Kind {
	case ast.NodeCondition:
		validateConditionExpr(&node.Condition.Expr, st, localSections, c)

	case ast.NodeOrConditionBlock:
		for i := range node.OrConditionBlock.Conditions {
			validateConditionExpr(&node.OrConditionBlock.Conditions[i], st, localSections, c)
		}

	case ast.NodeChoice:
		for _, child := range node.Choice.Content {
			walkConditions(child, st, localSections, c)
		}

	case ast.NodeExitDeclaration:
		for _, child := range node.ExitDeclaration.Children {
			walkConditions(child, st, localSections, c)
		}

	case ast.NodeRuleBlock:
		rule := node.RuleBlock
		for i := range rule.WhereClauses {
			validateConditionExpr(&rule.WhereClauses[i], st, localSections, c)
		}
		if rule.Select != nil {
			for i := range rule.Select.WhereClauses {
				validateConditionExpr(&rule.Select.WhereClauses[i], st, localSections, c)
			}
		}
	}
}

func validateConditionExpr(expr *ast.ConditionExpr, st *symtab.SymbolTable, localSections map[string]bool, c *diag.Collector) {
	switch expr.Kind {
	case ast.ExprPropertyComparison:
		validatePropertyComparison(expr.PropertyComparison, st, c)

	case ast.ExprContainmentCheck:
		validateContainmentCheck(expr.ContainmentCheck, st, c)

	case ast.ExprExhaustionCheck:
		validateExhaustionCheck(expr.ExhaustionCheck, localSections, c)
	}
}

func validatePropertyComparison(pc *ast.PropertyComparison, st *symtab.SymbolTable, c *diag.Collector) {
	if pc.Annotation == nil || pc.Annotation.ResolvedProperty == nil || pc.Annotation.ResolvedType == nil {
		return // Skip rule: LINK already reported the unresolved reference.
	}
	typeSym, ok := st.Types.Get(*pc.Annotation.ResolvedType)
	if !ok {
		return
	}
	prop, ok := typeSym.Properties.Get(*pc.Annotation.ResolvedProperty)
	if !ok {
		return
	}

	if orderComparisonOperators[pc.Operator] && prop.PropertyType != symtab.PropertyInteger && prop.PropertyType != symtab.PropertyNumber {
		c.Error(diag.NewCode(420), fmt.Sprintf(
			"Operator '%s' is not valid on non-numeric property '%s'.", pc.Operator, prop.Name,
		), pc.Span)
		return
	}

	value := parseStringToValue(pc.Value, prop.PropertyType)
	entityID := ""
	if pc.Annotation.ResolvedEntity != nil {
		entityID = *pc.Annotation.ResolvedEntity
	}
	checkValue(value, prop, entityID, typeSym.Name, checkConditionOrEffect, st, pc.Span, c)
}

func validateContainmentCheck(cc *ast.ContainmentCheck, st *symtab.SymbolTable, c *diag.Collector) {
	if cc.Annotation == nil || cc.Annotation.ContainerKind == nil {
		return
	}
	kind := cc.Annotation.ContainerKind
	if kind.Tag != ast.ContainerEntityRef {
		return // Keywords and location refs are always valid containers.
	}
	entity, ok := st.Entities.Get(kind.RefID)
	if !ok || entity.TypeSymbol == nil {
		return // Skip rule: already reported by LINK.
	}
	if !hasTrait(*entity.TypeSymbol, "container", st) {
		c.Warning(diag.NewCode(422), fmt.Sprintf(
			"Entity '@%s' is used as a container but its type '%s' does not declare the container trait.",
			kind.RefID, *entity.TypeSymbol,
		), cc.Span)
	}
}

func validateExhaustionCheck(ec *ast.ExhaustionCheck, localSections map[string]bool, c *diag.Collector) {
	if ec.Annotation == nil {
		return
	}
	if ec.Annotation.ResolvedSection == nil {
		if !localSections[ec.SectionName] {
			c.Error(diag.NewCode(423), fmt.Sprintf(
				"Exhaustion check references section '%s', which is not local to this file.", ec.SectionName,
			), ec.Span)
		}
	}
}
