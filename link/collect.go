package link

import (
	"fmt"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/slugify"
	"github.com/urdwyrd/urd/symtab"
)

// Collect runs LINK's pass 1 over every file in orderedPaths (topological
// order): it registers every declaration in st and accumulates the
// `world:` block's start/entry targets into world.
func Collect(graph *dgraph.DependencyGraph, orderedPaths []string, st *symtab.SymbolTable, world *WorldConfig, c *diag.Collector) map[string]*FileContext {
	fileContexts := make(map[string]*FileContext, len(orderedPaths))

	for _, filePath := range orderedPaths {
		node, ok := graph.Node(filePath)
		if !ok {
			continue
		}

		stem := dgraph.FileStem(filePath)
		scope := visibleScope(filePath, graph)

		ctx := &FileContext{
			FileStem:      stem,
			VisibleScope:  scope,
			LocalSections: map[string]string{},
		}

		var currentLocationID *string
		var currentSectionID *string
		var currentSequenceID *string

		if node.AST.Frontmatter != nil {
			for _, entry := range node.AST.Frontmatter.Entries {
				collectFrontmatterEntry(entry.Value, st, world, c)
			}
		}

		for _, content := range node.AST.Content {
			collectContentNode(content, filePath, stem, ctx, &currentLocationID, &currentSectionID, &currentSequenceID, st, c)
		}

		fileContexts[filePath] = ctx
	}

	return fileContexts
}

func collectFrontmatterEntry(value ast.FrontmatterValue, st *symtab.SymbolTable, world *WorldConfig, c *diag.Collector) {
	switch value.Kind {
	case ast.FrontmatterTypeDef:
		collectTypeDef(value.TypeDef, st, c)

	case ast.FrontmatterEntityDecl:
		collectEntityDecl(value.EntityDecl, st, c)

	case ast.FrontmatterWorldBlock:
		for _, field := range value.WorldBlock.Fields {
			if field.Value.Kind != ast.ScalarString {
				continue
			}
			target := &symtab.WorldTarget{ID: field.Value.StringVal, Span: value.WorldBlock.Span}
			switch field.Key {
			case "start":
				world.Start = target
			case "entry":
				world.Entry = target
			}
		}

	case ast.FrontmatterImportDecl:
		// Already processed by IMPORT.

	case ast.FrontmatterMap:
		for _, entry := range value.Map {
			collectFrontmatterEntry(entry.Value, st, world, c)
		}
	}
}

func collectTypeDef(td *ast.TypeDef, st *symtab.SymbolTable, c *diag.Collector) {
	properties := symtab.NewPropertyMap()
	for _, prop := range td.Properties {
		propType := parsePropertyType(prop.PropertyType)
		var def *symtab.Value
		if prop.Default != nil {
			v := scalarToValue(*prop.Default)
			def = &v
		}
		visibility := symtab.VisibilityVisible
		if prop.Visibility != nil && *prop.Visibility == "hidden" {
			visibility = symtab.VisibilityHidden
		}
		var elementType *symtab.PropertyType
		if prop.ElementType != nil {
			t := parsePropertyType(*prop.ElementType)
			elementType = &t
		}

		properties.Insert(prop.Name, &symtab.PropertySymbol{
			Name:           prop.Name,
			PropertyType:   propType,
			RawTypeString:  prop.RawTypeString,
			Description:    prop.Description,
			Default:        def,
			Visibility:     visibility,
			Values:         prop.Values,
			Min:            prop.Min,
			Max:            prop.Max,
			RefType:        prop.RefType,
			ElementType:    elementType,
			ElementValues:  prop.ElementValues,
			ElementRefType: prop.ElementRefType,
			DeclaredIn:     prop.Span,
		})
	}

	typeSym := symtab.TypeSymbol{
		Name:       td.Name,
		Traits:     td.Traits,
		Properties: properties,
		DeclaredIn: td.Span,
	}

	if first, exists := st.Types.Get(td.Name); exists {
		c.Error(diag.NewCode(303), fmt.Sprintf(
			"Duplicate type name '%s' declared in %s:%d and %s:%d.",
			td.Name, first.DeclaredIn.File, first.DeclaredIn.StartLine, td.Span.File, td.Span.StartLine,
		), td.Span)
		st.AddDuplicate("types", td.Name, td.Span)
		return
	}
	st.Types.Insert(td.Name, &typeSym)
}

func collectEntityDecl(ed *ast.EntityDecl, st *symtab.SymbolTable, c *diag.Collector) {
	overrides := symtab.NewValueMap()
	for _, ov := range ed.PropertyOverrides {
		overrides.Insert(ov.Key, scalarToValue(ov.Value))
	}

	entitySym := symtab.EntitySymbol{
		ID:                ed.ID,
		TypeName:          ed.TypeName,
		PropertyOverrides: overrides,
		DeclaredIn:        ed.Span,
	}

	if first, exists := st.Entities.Get(ed.ID); exists {
		c.Error(diag.NewCode(302), fmt.Sprintf(
			"Duplicate entity ID '@%s' declared in %s:%d and %s:%d.",
			ed.ID, first.DeclaredIn.File, first.DeclaredIn.StartLine, ed.Span.File, ed.Span.StartLine,
		), ed.Span)
		st.AddDuplicate("entities", ed.ID, ed.Span)
		return
	}
	st.Entities.Insert(ed.ID, &entitySym)
}

func collectContentNode(node ast.ContentNode, filePath, fileStem string, ctx *FileContext, currentLocationID, currentSectionID, currentSequenceID **string, st *symtab.SymbolTable, c *diag.Collector) {
	switch node.Kind {
	case ast.NodeLocationHeading:
		collectLocation(node.LocationHeading, currentLocationID, currentSectionID, st, c)

	case ast.NodeSectionLabel:
		collectSection(node.SectionLabel, filePath, fileStem, ctx, currentSectionID, st, c)

	case ast.NodeSequenceHeading:
		collectSequence(node.SequenceHeading, currentSequenceID, st, c)

	case ast.NodePhaseHeading:
		collectPhase(node.PhaseHeading, *currentSequenceID, st)

	case ast.NodeChoice:
		collectChoice(node.Choice, *currentSectionID, st, c)

	case ast.NodeExitDeclaration:
		collectExit(node.ExitDeclaration, filePath, *currentLocationID, st, c)

	case ast.NodeEntityPresence:
		if *currentLocationID == nil {
			c.Error(diag.NewCode(314), "Entity presence construct outside of a location context.", node.EntityPresence.Span)
		}
		// Raw refs stored; resolution in pass 2.

	case ast.NodeRuleBlock:
		collectRule(node.RuleBlock, st, c)
	}
}

func collectLocation(loc *ast.LocationHeading, currentLocationID, currentSectionID **string, st *symtab.SymbolTable, c *diag.Collector) {
	id := slugify.Slugify(loc.DisplayName)
	if id == "" {
		c.Error(diag.NewCode(313), fmt.Sprintf("Heading '%s' produces an empty ID after slugification.", loc.DisplayName), loc.Span)
		return
	}

	if first, exists := st.Locations.Get(id); exists {
		c.Error(diag.NewCode(304), fmt.Sprintf(
			"Duplicate location ID '%s' — locations '%s' and '%s' both slugify to '%s'.",
			id, first.DisplayName, loc.DisplayName, id,
		), loc.Span)
		st.AddDuplicate("locations", id, loc.Span)
	} else {
		st.Locations.Insert(id, &symtab.LocationSymbol{
			ID:          id,
			DisplayName: loc.DisplayName,
			Exits:       symtab.NewExitMap(),
			DeclaredIn:  loc.Span,
		})
	}

	idCopy := id
	*currentLocationID = &idCopy
	*currentSectionID = nil
}

func collectSection(sec *ast.SectionLabel, filePath, fileStem string, ctx *FileContext, currentSectionID **string, st *symtab.SymbolTable, c *diag.Collector) {
	compiledID := fileStem + "/" + sec.Name

	if _, exists := ctx.LocalSections[sec.Name]; exists {
		c.Error(diag.NewCode(305), fmt.Sprintf(
			"Duplicate section name '%s' in %s. Section names must be unique within a file.", sec.Name, filePath,
		), sec.Span)
		st.AddDuplicate("sections", compiledID, sec.Span)
	} else {
		ctx.LocalSections[sec.Name] = compiledID
		st.Sections.Insert(compiledID, &symtab.SectionSymbol{
			LocalName:  sec.Name,
			CompiledID: compiledID,
			FileStem:   fileStem,
			DeclaredIn: sec.Span,
		})
	}

	idCopy := compiledID
	*currentSectionID = &idCopy
}

func collectSequence(seq *ast.SequenceHeading, currentSequenceID **string, st *symtab.SymbolTable, c *diag.Collector) {
	id := slugify.Slugify(seq.DisplayName)
	if id == "" {
		c.Error(diag.NewCode(313), fmt.Sprintf("Heading '%s' produces an empty ID after slugification.", seq.DisplayName), seq.Span)
		return
	}

	if first, exists := st.Sequences.Get(id); exists {
		c.Error(diag.NewCode(313), fmt.Sprintf(
			"Duplicate sequence ID '%s' — sequences '%s' and '%s' both slugify to '%s'.",
			id, first.ID, seq.DisplayName, id,
		), seq.Span)
		st.AddDuplicate("sequences", id, seq.Span)
	} else {
		st.Sequences.Insert(id, &symtab.SequenceSymbol{ID: id, DeclaredIn: seq.Span})
	}

	idCopy := id
	*currentSequenceID = &idCopy
}

func collectPhase(phase *ast.PhaseHeading, currentSequenceID *string, st *symtab.SymbolTable) {
	id := slugify.Slugify(phase.DisplayName)
	if id == "" || currentSequenceID == nil {
		return
	}

	seqSym, exists := st.Sequences.Get(*currentSequenceID)
	if !exists {
		return
	}

	advance := "manual"
	if phase.Auto {
		advance = "auto"
	}
	seqSym.Phases = append(seqSym.Phases, symtab.PhaseSymbol{
		ID:         id,
		Advance:    advance,
		DeclaredIn: phase.Span,
	})
	st.Sequences.Update(*currentSequenceID, seqSym)
}

func collectChoice(choice *ast.Choice, currentSectionID *string, st *symtab.SymbolTable, c *diag.Collector) {
	if currentSectionID == nil {
		return // No section context — skip.
	}
	sectionID := *currentSectionID

	slug := slugify.Slugify(choice.Label)
	if slug == "" {
		c.Error(diag.NewCode(313), fmt.Sprintf("Heading '%s' produces an empty ID after slugification.", choice.Label), choice.Span)
		return
	}

	choiceID := sectionID + "/" + slug

	sectionSym, sectionExists := st.Sections.Get(sectionID)
	if sectionExists {
		for _, existing := range sectionSym.Choices {
			if existing.CompiledID == choiceID {
				c.Error(diag.NewCode(306), fmt.Sprintf(
					"Duplicate choice ID '%s' in section '%s'. Choices '%s' and '%s' produce the same slugified ID.",
					choiceID, sectionID, existing.Label, choice.Label,
				), choice.Span)
				st.AddDuplicate("choices", choiceID, choice.Span)
				return
			}
		}
	}

	choiceSym := symtab.ChoiceSymbol{
		Label:      choice.Label,
		CompiledID: choiceID,
		Sticky:     choice.Sticky,
		DeclaredIn: choice.Span,
	}
	if sectionExists {
		sectionSym.Choices = append(sectionSym.Choices, choiceSym)
		st.Sections.Update(sectionID, sectionSym)
	}

	actionSym := symtab.ActionSymbol{
		ID:         choiceID,
		Target:     choice.Target,
		TargetType: choice.TargetType,
		DeclaredIn: choice.Span,
	}
	if _, exists := st.Actions.Get(choiceID); exists {
		st.AddDuplicate("actions", choiceID, choice.Span)
	} else {
		st.Actions.Insert(choiceID, &actionSym)
	}

	for _, child := range choice.Content {
		if child.Kind == ast.NodeChoice {
			collectChoice(child.Choice, currentSectionID, st, c)
		}
	}
}

func collectExit(exit *ast.ExitDeclaration, filePath string, currentLocationID *string, st *symtab.SymbolTable, c *diag.Collector) {
	if currentLocationID == nil {
		c.Error(diag.NewCode(314), "Exit construct outside of a location context.", exit.Span)
		return
	}
	locSym, exists := st.Locations.Get(*currentLocationID)
	if !exists {
		return
	}

	var conditionNode, blockedMessageNode *symtab.AstNodeRef
	for i, child := range exit.Children {
		if child.Kind == ast.NodeCondition && conditionNode == nil {
			conditionNode = &symtab.AstNodeRef{File: filePath, NodeIndex: i}
		}
		if child.Kind == ast.NodeBlockedMessage && blockedMessageNode == nil {
			blockedMessageNode = &symtab.AstNodeRef{File: filePath, NodeIndex: i}
		}
	}

	locSym.Exits.Insert(exit.Direction, &symtab.ExitSymbol{
		Direction:          exit.Direction,
		Destination:        exit.Destination,
		ConditionNode:      conditionNode,
		BlockedMessageNode: blockedMessageNode,
		DeclaredIn:         exit.Span,
	})
	st.Locations.Update(*currentLocationID, locSym)
}

func collectRule(rule *ast.RuleBlock, st *symtab.SymbolTable, c *diag.Collector) {
	var sel *symtab.SelectDef
	if rule.Select != nil {
		sel = &symtab.SelectDef{
			Variable:     rule.Select.Variable,
			From:         rule.Select.EntityRefs,
			WhereClauses: rule.Select.WhereClauses,
			Span:         rule.Select.Span,
		}
	}

	ruleSym := symtab.RuleSymbol{
		ID:         rule.Name,
		Actor:      rule.Actor,
		Trigger:    rule.Trigger,
		Select:     sel,
		DeclaredIn: rule.Span,
	}

	if first, exists := st.Rules.Get(rule.Name); exists {
		c.Error(diag.NewCode(302), fmt.Sprintf(
			"Duplicate rule name '%s' declared in %s:%d and %s:%d.",
			rule.Name, first.DeclaredIn.File, first.DeclaredIn.StartLine, rule.Span.File, rule.Span.StartLine,
		), rule.Span)
		st.AddDuplicate("rules", rule.Name, rule.Span)
		return
	}
	st.Rules.Insert(rule.Name, &ruleSym)
}
