package emit

import (
	"fmt"

	"github.com/urdwyrd/urd/ast"
)

// renderConditionExpr reconstructs a human-readable source form of a
// condition expression for emission, since EMIT's dialogue output carries
// conditions/effects as display strings rather than re-exposing the AST.
func renderConditionExpr(expr ast.ConditionExpr) string {
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

// renderEffect reconstructs a human-readable source form of an effect.
func renderEffect(eff ast.EffectType) string {
	switch eff.Kind {
	case ast.EffectSet:
		return fmt.Sprintf("@%s %s %s", eff.TargetProp, eff.Operator, eff.ValueExpr)
	case ast.EffectMove:
		return fmt.Sprintf("move @%s -> %s", eff.EntityRef, eff.DestinationRef)
	case ast.EffectReveal:
		return "reveal @" + eff.TargetProp
	case ast.EffectDestroy:
		return "destroy @" + eff.EntityRef
	default:
		return ""
	}
}
