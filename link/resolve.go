package link

import (
	"fmt"
	"strings"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/slugify"
	"github.com/urdwyrd/urd/span"
	"github.com/urdwyrd/urd/symtab"
)

// Resolve runs LINK's pass 2 over every file in orderedPaths: it walks
// every AST again, filling in each node's Annotation. It never mutates
// the symbol table except for the entity-type (EntitySymbol.TypeSymbol),
// exit-destination and world-target slots and the LocationSymbol.Contains
// lists fed by presence lines, which are themselves resolution outputs
// rather than new declarations.
func Resolve(graph *dgraph.DependencyGraph, orderedPaths []string, st *symtab.SymbolTable, world *WorldConfig, fileContexts map[string]*FileContext, c *diag.Collector) {
	stemToPath := make(map[string]string, len(orderedPaths))
	for _, p := range orderedPaths {
		stemToPath[dgraph.FileStem(p)] = p
	}

	resolveEntityTypes(st, c)
	resolveExitDestinations(st, c)
	resolveWorldTargets(st, world, c)

	for _, filePath := range orderedPaths {
		node, ok := graph.Node(filePath)
		if !ok {
			continue
		}
		ctx := fileContexts[filePath]
		if ctx == nil {
			ctx = &FileContext{LocalSections: map[string]string{}}
		}

		r := &resolver{
			filePath:   filePath,
			ctx:        ctx,
			st:         st,
			stemToPath: stemToPath,
			c:          c,
		}
		for _, content := range node.AST.Content {
			r.resolveContentNode(content)
		}
	}
}

// resolveEntityTypes resolves every declared entity's TypeName against the
// Types namespace exactly once, storing the result on EntitySymbol.TypeSymbol.
// Every later lookup (property resolution, trait checks in VALIDATE) reads
// this field rather than re-resolving, which is what makes 307 fire once per
// entity rather than once per reference site.
func resolveEntityTypes(st *symtab.SymbolTable, c *diag.Collector) {
	for _, id := range st.Entities.Keys() {
		entity, _ := st.Entities.Get(id)
		typeSym, ok := st.Types.Get(entity.TypeName)
		if !ok {
			c.Error(diag.NewCode(307), fmt.Sprintf(
				"Entity '@%s' declares unknown type '%s'.", id, entity.TypeName,
			), entity.DeclaredIn)
			continue
		}
		name := typeSym.Name
		entity.TypeSymbol = &name
	}
}

// resolveExitDestinations resolves every registered exit's written
// Destination (a location display name) to a location slug, storing the
// result on the exit symbol itself. Unresolved destinations emit 311.
func resolveExitDestinations(st *symtab.SymbolTable, c *diag.Collector) {
	for _, locID := range st.Locations.Keys() {
		loc, _ := st.Locations.Get(locID)
		for _, direction := range loc.Exits.Keys() {
			exit, _ := loc.Exits.Get(direction)
			slug := slugify.Slugify(exit.Destination)
			if dest, ok := st.Locations.Get(slug); ok {
				resolved := dest.ID
				exit.ResolvedDestination = &resolved
				continue
			}
			c.Error(diag.NewCode(311), fmt.Sprintf(
				"Exit '%s' from location '%s' names unknown destination '%s'.", direction, loc.ID, exit.Destination,
			), exit.DeclaredIn)
		}
	}
}

// resolveWorldTargets resolves world.start (a location) and world.entry
// (a sequence) recorded during collection, storing the result on the
// symbol table.
func resolveWorldTargets(st *symtab.SymbolTable, world *WorldConfig, c *diag.Collector) {
	if world.Start != nil {
		if _, ok := st.Locations.Get(world.Start.ID); ok {
			st.WorldStart = world.Start
		} else {
			c.Error(diag.NewCode(311), fmt.Sprintf("world.start names unknown location '%s'.", world.Start.ID), world.Start.Span)
		}
	}
	if world.Entry != nil {
		if _, ok := st.Sequences.Get(world.Entry.ID); ok {
			st.WorldEntry = world.Entry
		} else {
			c.Error(diag.NewCode(309), fmt.Sprintf("world.entry names unknown sequence '%s'.", world.Entry.ID), world.Entry.Span)
		}
	}
}

// resolver carries the state pass 2 needs while walking a single file's
// content tree: the current location (exits and entity presence are
// location-scoped), the file's context, and lookup tables shared across
// the whole compilation unit.
type resolver struct {
	filePath   string
	ctx        *FileContext
	st         *symtab.SymbolTable
	stemToPath map[string]string
	c          *diag.Collector

	currentLocationID *string
}

func (r *resolver) resolveContentNode(node ast.ContentNode) {
	switch node.Kind {
	case ast.NodeLocationHeading:
		id := slugify.Slugify(node.LocationHeading.DisplayName)
		if id != "" {
			r.currentLocationID = &id
		}

	case ast.NodeEntityPresence:
		ep := node.EntityPresence
		for _, ref := range ep.EntityRefs {
			ann := r.resolveEntityRef(ref, ep.Span)
			ep.Annotations = append(ep.Annotations, ann)
			if ann.ResolvedEntity != nil && r.currentLocationID != nil {
				r.addContainment(*r.currentLocationID, *ann.ResolvedEntity)
			}
		}

	case ast.NodeEntitySpeech:
		node.EntitySpeech.Annotation = r.resolveEntityRef(node.EntitySpeech.EntityRef, node.EntitySpeech.Span)

	case ast.NodeStageDirection:
		node.StageDirection.Annotation = r.resolveEntityRef(node.StageDirection.EntityRef, node.StageDirection.Span)

	case ast.NodeChoice:
		r.resolveChoice(node.Choice)
		for _, child := range node.Choice.Content {
			r.resolveContentNode(child)
		}

	case ast.NodeCondition:
		r.resolveConditionExpr(&node.Condition.Expr)

	case ast.NodeOrConditionBlock:
		for i := range node.OrConditionBlock.Conditions {
			r.resolveConditionExpr(&node.OrConditionBlock.Conditions[i])
		}

	case ast.NodeEffect:
		r.resolveEffect(node.Effect)

	case ast.NodeJump:
		node.Jump.Annotation = r.resolveJumpTarget(node.Jump.Target, node.Jump.IsExitQualified, node.Jump.Span)

	case ast.NodeExitDeclaration:
		r.resolveExitDeclaration(node.ExitDeclaration)
		for _, child := range node.ExitDeclaration.Children {
			r.resolveContentNode(child)
		}

	case ast.NodeRuleBlock:
		r.resolveRuleBlock(node.RuleBlock)
	}
}

// addContainment records that locationID's Contains list holds entityID,
// the resolution-time counterpart of collectLocation/collectEntity — this
// is the only place a [@ref, ...] presence line ever feeds EMIT's
// computed-container lookup, since nothing at collection time knows yet
// whether the referenced entity resolves.
func (r *resolver) addContainment(locationID, entityID string) {
	loc, ok := r.st.Locations.Get(locationID)
	if !ok {
		return
	}
	for _, existing := range loc.Contains {
		if existing == entityID {
			return
		}
	}
	loc.Contains = append(loc.Contains, entityID)
}

func (r *resolver) resolveEntityRef(ref string, sp span.Span) *ast.Annotation {
	ann := &ast.Annotation{}
	if _, ok := r.st.Entities.Get(ref); !ok {
		r.c.Error(diag.NewCode(301), fmt.Sprintf("Unresolved entity reference '@%s'.", ref), sp)
		return ann
	}
	resolved := ref
	ann.ResolvedEntity = &resolved
	return ann
}

// resolveEntityProperty resolves both halves of an `@entity.property`
// reference onto ann, reporting 301 (unresolved entity) and 308 (property
// missing on the resolved type). An entity whose type never resolved
// (TypeSymbol nil) already got its single 307 from resolveEntityTypes, so
// this silently stops at ResolvedEntity per the skip rule.
func (r *resolver) resolveEntityProperty(entityRef, property string, sp span.Span) *ast.Annotation {
	ann := &ast.Annotation{}
	entity, ok := r.st.Entities.Get(entityRef)
	if !ok {
		r.c.Error(diag.NewCode(301), fmt.Sprintf("Unresolved entity reference '@%s'.", entityRef), sp)
		return ann
	}
	resolvedEntity := entityRef
	ann.ResolvedEntity = &resolvedEntity

	if entity.TypeSymbol == nil {
		return ann
	}
	typeSym, ok := r.st.Types.Get(*entity.TypeSymbol)
	if !ok {
		return ann
	}
	resolvedType := typeSym.Name
	ann.ResolvedType = &resolvedType

	if property == "" {
		return ann
	}
	if _, ok := typeSym.Properties.Get(property); !ok {
		r.c.Error(diag.NewCode(308), fmt.Sprintf(
			"Type '%s' has no property '%s' (referenced via '@%s.%s').", typeSym.Name, property, entityRef, property,
		), sp)
		return ann
	}
	resolvedProp := property
	ann.ResolvedProperty = &resolvedProp
	return ann
}

func (r *resolver) resolveConditionExpr(expr *ast.ConditionExpr) {
	switch expr.Kind {
	case ast.ExprPropertyComparison:
		pc := expr.PropertyComparison
		pc.Annotation = r.resolveEntityProperty(pc.EntityRef, pc.Property, pc.Span)

	case ast.ExprContainmentCheck:
		cc := expr.ContainmentCheck
		ann := r.resolveEntityRef(cc.EntityRef, cc.Span)
		ann.ContainerKind = r.classifyContainer(cc.ContainerRef)
		cc.Annotation = ann

	case ast.ExprExhaustionCheck:
		ec := expr.ExhaustionCheck
		ann := &ast.Annotation{}
		if compiledID, ok := r.ctx.LocalSections[ec.SectionName]; ok {
			id := compiledID
			ann.ResolvedSection = &id
		}
		// Unresolved (non-file-local) exhaustion targets are left with a
		// nil ResolvedSection; VALIDATE reports 423 for that case.
		ec.Annotation = ann
	}
}

// classifyContainer classifies a containment-check or move-destination
// reference: the keywords "player"/"here", an "@"-prefixed entity ref,
// or a bare location slug.
func (r *resolver) classifyContainer(raw string) *ast.ContainerKind {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "player":
		return &ast.ContainerKind{Tag: ast.ContainerKeywordPlayer}
	case "here":
		return &ast.ContainerKind{Tag: ast.ContainerKeywordHere}
	}
	if strings.HasPrefix(trimmed, "@") {
		return &ast.ContainerKind{Tag: ast.ContainerEntityRef, RefID: strings.TrimPrefix(trimmed, "@")}
	}
	slug := slugify.Slugify(trimmed)
	return &ast.ContainerKind{Tag: ast.ContainerLocationRef, RefID: slug}
}

func (r *resolver) classifyDestination(raw string) *ast.DestinationKind {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "player":
		return &ast.DestinationKind{Tag: ast.DestinationKeywordPlayer}
	case "here":
		return &ast.DestinationKind{Tag: ast.DestinationKeywordHere}
	}
	if strings.HasPrefix(trimmed, "@") {
		return &ast.DestinationKind{Tag: ast.DestinationEntityRef, RefID: strings.TrimPrefix(trimmed, "@")}
	}
	return &ast.DestinationKind{Tag: ast.DestinationLocationRef, RefID: slugify.Slugify(trimmed)}
}

func (r *resolver) resolveEffect(eff *ast.Effect) {
	ann := &ast.Annotation{}
	switch eff.EffectType.Kind {
	case ast.EffectSet, ast.EffectReveal:
		entity, property := splitEntityAndProperty(eff.EffectType.TargetProp)
		propAnn := r.resolveEntityProperty(entity, property, eff.Span)
		ann = propAnn

	case ast.EffectMove:
		entityAnn := r.resolveEntityRef(eff.EffectType.EntityRef, eff.Span)
		entityAnn.DestinationKind = r.classifyDestination(eff.EffectType.DestinationRef)
		ann = entityAnn

	case ast.EffectDestroy:
		ann = r.resolveEntityRef(eff.EffectType.EntityRef, eff.Span)
	}
	eff.Annotation = ann
}

func splitEntityAndProperty(targetProp string) (entity, property string) {
	if idx := strings.LastIndex(targetProp, "."); idx >= 0 {
		return targetProp[:idx], targetProp[idx+1:]
	}
	return targetProp, ""
}

func (r *resolver) resolveChoice(choice *ast.Choice) {
	if choice.Target == nil {
		return
	}
	isExitQualified := choice.TargetType != nil && *choice.TargetType == "exit"
	choice.Annotation = r.resolveJumpTarget(*choice.Target, isExitQualified, choice.Span)
}

// resolveJumpTarget implements the decision recorded in DESIGN.md for
// exit-qualified jump syntax: an exit-qualified target containing a dot
// is treated as `<location>.<direction>` and resolves only when the prefix
// names a known location and the suffix names one of its declared exits;
// one without a dot is looked up among the current location's exits. An
// exit-qualified target that resolves neither way reports 309 and is not
// retried as a section name. Every other target resolves as a section
// name, first against the current file's local sections, then against
// every section visible from this file; `end` (any case) that matches no
// section ends the dialogue and reports nothing.
func (r *resolver) resolveJumpTarget(target string, isExitQualified bool, sp span.Span) *ast.Annotation {
	ann := &ast.Annotation{}

	if isExitQualified {
		if dotIdx := strings.LastIndex(target, "."); dotIdx >= 0 {
			prefix, suffix := target[:dotIdx], target[dotIdx+1:]
			if loc, ok := r.st.Locations.Get(slugify.Slugify(prefix)); ok {
				if exit, ok := loc.Exits.Get(suffix); ok {
					if exit.ResolvedDestination != nil {
						dest := *exit.ResolvedDestination
						ann.ResolvedLocation = &dest
						return ann
					}
				}
			}
		} else if r.currentLocationID != nil {
			if loc, ok := r.st.Locations.Get(*r.currentLocationID); ok {
				if exit, ok := loc.Exits.Get(target); ok && exit.ResolvedDestination != nil {
					dest := *exit.ResolvedDestination
					ann.ResolvedLocation = &dest
					return ann
				}
			}
		}
		r.c.Error(diag.NewCode(309), fmt.Sprintf("Unresolved exit jump target '%s'.", target), sp)
		return ann
	}

	if compiledID, ok := r.ctx.LocalSections[target]; ok {
		id := compiledID
		ann.ResolvedSection = &id
		return ann
	}

	var matches []string
	for _, sectionID := range r.st.Sections.Keys() {
		sec, _ := r.st.Sections.Get(sectionID)
		if sec.LocalName != target {
			continue
		}
		declaredPath, ok := r.stemToPath[sec.FileStem]
		if !ok || !r.ctx.VisibleScope[declaredPath] {
			continue
		}
		matches = append(matches, sec.CompiledID)
	}

	switch len(matches) {
	case 0:
		if strings.EqualFold(strings.TrimSpace(target), "end") {
			break // `-> end` ends the dialogue; it names no section.
		}
		r.c.Error(diag.NewCode(309), fmt.Sprintf("Unresolved jump target '%s'.", target), sp)
	case 1:
		ann.ResolvedSection = &matches[0]
	default:
		r.c.Error(diag.NewCode(310), fmt.Sprintf("Ambiguous jump target '%s' matches sections: %s.", target, strings.Join(matches, ", ")), sp)
	}
	return ann
}

func (r *resolver) resolveExitDeclaration(exit *ast.ExitDeclaration) {
	ann := &ast.Annotation{}
	if r.currentLocationID != nil {
		if loc, ok := r.st.Locations.Get(*r.currentLocationID); ok {
			if sym, ok := loc.Exits.Get(exit.Direction); ok && sym.ResolvedDestination != nil {
				dest := *sym.ResolvedDestination
				ann.ResolvedLocation = &dest
			}
		}
	}
	exit.Annotation = ann
}

func (r *resolver) resolveRuleBlock(rule *ast.RuleBlock) {
	for i := range rule.WhereClauses {
		r.resolveConditionExpr(&rule.WhereClauses[i])
	}
	for i := range rule.Effects {
		r.resolveEffect(&rule.Effects[i])
	}
	if rule.Select != nil {
		for i := range rule.Select.WhereClauses {
			r.resolveConditionExpr(&rule.Select.WhereClauses[i])
		}
	}
}
