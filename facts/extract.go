package facts

import (
	"strconv"
	"strings"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/slugify"
	"github.com/urdwyrd/urd/symtab"
)

// Extract walks every annotated AST in graph and the resolved symbol table
// to build a FactSet. It is meant to run after LINK succeeds, independent
// of whether VALIDATE reported errors.
func Extract(graph *dgraph.DependencyGraph, st *symtab.SymbolTable) *FactSet {
	fs := New()
	exitIndex := extractExits(st, fs)

	for _, path := range graph.Paths() {
		node, ok := graph.Node(path)
		if !ok {
			continue
		}
		e := &extractor{fs: fs, fileStem: dgraph.FileStem(path), exitIndex: exitIndex}
		for _, content := range node.AST.Content {
			e.walk(content)
		}
	}
	return fs
}

// extractExits seeds the Exits table from the symbol table (the only place
// resolved exit destinations live) and returns a lookup from
// "location/direction" to that exit's index in fs, so the content walk can
// patch in guard_reads once it reaches the exit's actual condition
// expression.
func extractExits(st *symtab.SymbolTable, fs *FactSet) map[string]int {
	index := make(map[string]int)
	for _, locID := range st.Locations.Keys() {
		loc, _ := st.Locations.Get(locID)
		for _, direction := range loc.Exits.Keys() {
			exit, _ := loc.Exits.Get(direction)
			to := ""
			if exit.ResolvedDestination != nil {
				to = *exit.ResolvedDestination
			}
			isConditional := exit.ConditionNode != nil
			idx := fs.addExit(Exit{
				FromLocation:  locID,
				ToLocation:    to,
				ExitName:      direction,
				IsConditional: isConditional,
			})
			index[locID+"/"+direction] = idx
		}
	}
	return index
}

// extractor carries the state a single file's content walk needs: the
// section/location it's currently inside, mirroring link/collect.go's
// current-context tracking so choice and rule site ids can be recomputed
// without a second symbol-table lookup pass.
type extractor struct {
	fs                *FactSet
	fileStem          string
	currentSectionID  *string
	currentLocationID *string
	exitIndex         map[string]int
}

func (e *extractor) walk(node ast.ContentNode) {
	switch node.Kind {
	case ast.NodeLocationHeading:
		id := slugify.Slugify(node.LocationHeading.DisplayName)
		e.currentLocationID = &id
		e.currentSectionID = nil

	case ast.NodeSectionLabel:
		id := e.fileStem + "/" + node.SectionLabel.Name
		e.currentSectionID = &id

	case ast.NodeChoice:
		e.extractChoice(node.Choice)

	case ast.NodeExitDeclaration:
		e.extractExitGuard(node.ExitDeclaration)
		for _, child := range node.ExitDeclaration.Children {
			e.walk(child)
		}

	case ast.NodeRuleBlock:
		e.extractRule(node.RuleBlock)
	}
}

// extractExitGuard records a Read fact for exit's guard condition, if any,
// and patches it into the matching Exits-table row built by extractExits.
func (e *extractor) extractExitGuard(exit *ast.ExitDeclaration) {
	if e.currentLocationID == nil {
		return
	}
	idx, ok := e.exitIndex[*e.currentLocationID+"/"+exit.Direction]
	if !ok {
		return
	}
	site := Site{Kind: SiteExit, ID: *e.currentLocationID + "/" + exit.Direction}

	var guardReads []int
	for _, child := range exit.Children {
		switch child.Kind {
		case ast.NodeCondition:
			if ri, ok := recordConditionExpr(e.fs, site, child.Condition.Expr); ok {
				guardReads = append(guardReads, ri)
			}
		case ast.NodeOrConditionBlock:
			for _, expr := range child.OrConditionBlock.Conditions {
				if ri, ok := recordConditionExpr(e.fs, site, expr); ok {
					guardReads = append(guardReads, ri)
				}
			}
		}
	}
	if len(guardReads) > 0 {
		e.fs.exits[idx].GuardReads = guardReads
	}
}

func (e *extractor) sectionPrefix() string {
	if e.currentSectionID == nil {
		return ""
	}
	return *e.currentSectionID
}

func (e *extractor) extractChoice(choice *ast.Choice) {
	slug := slugify.Slugify(choice.Label)
	choiceID := e.sectionPrefix() + "/" + slug
	site := Site{Kind: SiteChoice, ID: choiceID}

	var reads, writes []int
	for _, child := range choice.Content {
		switch child.Kind {
		case ast.NodeCondition:
			if idx, ok := recordConditionExpr(e.fs, site, child.Condition.Expr); ok {
				reads = append(reads, idx)
			}
		case ast.NodeOrConditionBlock:
			for _, expr := range child.OrConditionBlock.Conditions {
				if idx, ok := recordConditionExpr(e.fs, site, expr); ok {
					reads = append(reads, idx)
				}
			}
		case ast.NodeEffect:
			if idx, ok := recordEffect(e.fs, site, child.Effect); ok {
				writes = append(writes, idx)
			}
		case ast.NodeJump:
			e.fs.addJump(jumpFact(e.sectionPrefix(), child.Jump))
		}
		// Choices may themselves nest further content (sticky sub-choices,
		// prose); walk it for any further choices/rules it contains.
		e.walk(child)
	}

	e.fs.addChoice(Choice{
		Section:        e.sectionPrefix(),
		ChoiceID:       choiceID,
		Label:          choice.Label,
		Sticky:         choice.Sticky,
		ConditionReads: reads,
		EffectWrites:   writes,
	})
}

func (e *extractor) extractRule(rule *ast.RuleBlock) {
	site := Site{Kind: SiteRule, ID: rule.Name}
	var reads, writes []int

	for _, expr := range rule.WhereClauses {
		if idx, ok := recordConditionExpr(e.fs, site, expr); ok {
			reads = append(reads, idx)
		}
	}
	if rule.Select != nil {
		for _, expr := range rule.Select.WhereClauses {
			if idx, ok := recordConditionExpr(e.fs, site, expr); ok {
				reads = append(reads, idx)
			}
		}
	}
	for i := range rule.Effects {
		if idx, ok := recordEffect(e.fs, site, &rule.Effects[i]); ok {
			writes = append(writes, idx)
		}
	}

	e.fs.addRule(Rule{RuleID: rule.Name, ConditionReads: reads, EffectWrites: writes})
}

func jumpFact(fromSection string, j *ast.Jump) Jump {
	if j.IsExitQualified {
		return Jump{FromSection: fromSection, TargetKind: JumpToExit, TargetID: j.Target}
	}
	if strings.EqualFold(strings.TrimSpace(j.Target), "end") {
		return Jump{FromSection: fromSection, TargetKind: JumpToEnd}
	}
	target := j.Target
	if j.Annotation != nil && j.Annotation.ResolvedSection != nil {
		target = *j.Annotation.ResolvedSection
	}
	return Jump{FromSection: fromSection, TargetKind: JumpToSection, TargetID: target}
}

// recordConditionExpr records a Read fact for a property comparison,
// returning its index. Containment and exhaustion checks don't produce
// Read facts — FACTS's Reads table is specifically property comparisons.
func recordConditionExpr(fs *FactSet, site Site, expr ast.ConditionExpr) (int, bool) {
	if expr.Kind != ast.ExprPropertyComparison {
		return 0, false
	}
	pc := expr.PropertyComparison
	if pc.Annotation == nil || pc.Annotation.ResolvedType == nil {
		return 0, false // Skip rule: LINK already reported the unresolved reference.
	}
	op, ok := compareOp(pc.Operator)
	if !ok {
		return 0, false
	}
	kind := classifyLiteral(pc.Value)
	idx := fs.addRead(Read{
		Site:         site,
		EntityType:   *pc.Annotation.ResolvedType,
		Property:     pc.Property,
		Operator:     op,
		ValueLiteral: pc.Value,
		ValueKind:    kind,
		Span:         pc.Span,
	})
	return idx, true
}

// recordEffect records a Write fact for a Set effect, returning its index.
// Move/Reveal/Destroy effects don't produce Write facts in this schema —
// FACTS's Writes table tracks scalar property mutation only.
func recordEffect(fs *FactSet, site Site, eff *ast.Effect) (int, bool) {
	if eff.EffectType.Kind != ast.EffectSet {
		return 0, false
	}
	ann := eff.Annotation
	if ann == nil || ann.ResolvedType == nil || ann.ResolvedProperty == nil {
		return 0, false
	}
	op, ok := writeOp(eff.EffectType.Operator)
	if !ok {
		return 0, false
	}
	kind := classifyLiteral(eff.EffectType.ValueExpr)
	idx := fs.addWrite(Write{
		Site:       site,
		EntityType: *ann.ResolvedType,
		Property:   *ann.ResolvedProperty,
		Operator:   op,
		ValueExpr:  eff.EffectType.ValueExpr,
		ValueKind:  &kind,
		Span:       eff.Span,
	})
	return idx, true
}

func compareOp(op string) (CompareOp, bool) {
	switch op {
	case "==":
		return CompareEq, true
	case "!=":
		return CompareNe, true
	case "<":
		return CompareLt, true
	case ">":
		return CompareGt, true
	case "<=":
		return CompareLe, true
	case ">=":
		return CompareGe, true
	default:
		return 0, false
	}
}

func writeOp(op string) (WriteOp, bool) {
	switch op {
	case "=":
		return WriteSet, true
	case "+":
		return WriteAdd, true
	case "-":
		return WriteSub, true
	default:
		return 0, false
	}
}

// classifyLiteral classifies a raw value expression's surface syntax,
// mirroring the type-check helper contract's own literal dispatch
// (true/false -> bool; integer/number literals; "@id" -> treated as an
// identifier for FACTS purposes since FACTS has no ref kind; anything
// else -> ident if it looks like a bare word, else string).
func classifyLiteral(raw string) LiteralKind {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "true", "false":
		return LiteralBool
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return LiteralInt
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return LiteralNum
	}
	if strings.HasPrefix(trimmed, "@") && isBareWord(trimmed[1:]) {
		return LiteralIdent
	}
	if isBareWord(trimmed) {
		return LiteralIdent
	}
	return LiteralStr
}

func isBareWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
