// Package emit implements EMIT: the final compiler phase that renders a
// resolved SymbolTable and its dependency graph into the canonical JSON
// document a runtime consumes. EMIT only runs once VALIDATE has reported
// zero errors.
//
// The document's top-level key order is fixed (world, types, entities,
// locations, dialogue, sequences, rules) and every nested object must
// preserve the symbol table's insertion order rather than the alphabetic
// order encoding/json would otherwise impose — orderedMap (see
// orderedmap.go) carries that guarantee through to MarshalJSON.
package emit

import (
	"encoding/json"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/slugify"
	"github.com/urdwyrd/urd/symtab"
)

// exitRender carries the rendered condition/blocked-message text for one
// location's exit, captured during the dialogue content walk since an
// ExitSymbol only stores an AstNodeRef into its declaration's direct
// children rather than the rendered text itself.
type exitRender struct {
	Condition      *string
	BlockedMessage *string
}

// document is the top-level emitted structure. Field order fixes JSON key
// order for everything encoding/json handles directly; the *orderedMap
// fields carry their own order independently.
type document struct {
	World     worldDoc    `json:"world"`
	Types     *orderedMap `json:"types"`
	Entities  *orderedMap `json:"entities"`
	Locations *orderedMap `json:"locations"`
	Dialogue  *orderedMap `json:"dialogue"`
	Sequences *orderedMap `json:"sequences"`
	Rules     *orderedMap `json:"rules"`
}

type worldDoc struct {
	Start string `json:"start"`
	Entry string `json:"entry,omitempty"`
}

type typeDoc struct {
	Traits     []string    `json:"traits,omitempty"`
	Properties *orderedMap `json:"properties"`
}

type propertyDoc struct {
	Type        string      `json:"type"`
	Default     interface{} `json:"default,omitempty"`
	Visibility  string      `json:"visibility,omitempty"`
	Values      []string    `json:"values,omitempty"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
	RefType     *string     `json:"ref_type,omitempty"`
	Description *string     `json:"description,omitempty"`
}

type entityDoc struct {
	Type       string      `json:"type"`
	Container  *string     `json:"container,omitempty"`
	Properties *orderedMap `json:"properties"`
}

type locationDoc struct {
	DisplayName string      `json:"display_name"`
	Exits       *orderedMap `json:"exits"`
	Contains    []string    `json:"contains,omitempty"`
}

type exitDoc struct {
	Destination    string  `json:"destination"`
	Condition      *string `json:"condition,omitempty"`
	BlockedMessage *string `json:"blocked_message,omitempty"`
}

type choiceDoc struct {
	Label      string   `json:"label"`
	Sticky     bool     `json:"sticky"`
	Conditions []string `json:"conditions,omitempty"`
	Effects    []string `json:"effects,omitempty"`
	Target     *string  `json:"target,omitempty"`
}

// contentItem is one entry of a section's ordered dialogue array. Kind
// discriminates which of the optional fields are populated; Go has no sum
// types so this mirrors the AST's own discriminated-struct convention.
type contentItem struct {
	Kind   string     `json:"kind"`
	Text   string     `json:"text,omitempty"`
	Entity string     `json:"entity,omitempty"`
	Choice *choiceDoc `json:"choice,omitempty"`
	Target string     `json:"target,omitempty"`
}

type phaseDoc struct {
	ID      string   `json:"id"`
	Advance string   `json:"advance"`
	Action  *string  `json:"action,omitempty"`
	Actions []string `json:"actions,omitempty"`
	Rule    *string  `json:"rule,omitempty"`
}

type sequenceDoc struct {
	Phases []phaseDoc `json:"phases"`
}

type selectDoc struct {
	Variable string   `json:"variable"`
	From     []string `json:"from,omitempty"`
	Where    []string `json:"where,omitempty"`
}

type ruleDoc struct {
	Actor   string     `json:"actor"`
	Trigger string     `json:"trigger"`
	Select  *selectDoc `json:"select,omitempty"`
	Where   []string   `json:"where,omitempty"`
	Effects []string   `json:"effects,omitempty"`
}

// ruleRender carries the rendered select/where/effects text for one rule,
// captured during the dialogue content walk since a RuleSymbol only
// carries the select clause, not the rule's own top-level where-clauses or
// effects — mirroring exitRender's role for exit declarations.
type ruleRender struct {
	Select  *selectDoc
	Where   []string
	Effects []string
}

// Emit renders graph/st into the canonical JSON document and returns its
// serialized bytes. Callers must only invoke this once VALIDATE reports no
// errors — EMIT itself performs no validation.
func Emit(graph *dgraph.DependencyGraph, st *symtab.SymbolTable) ([]byte, error) {
	dialogue, exits, rules := buildDialogue(graph, st)
	doc := document{
		World:     buildWorld(st),
		Types:     buildTypes(st),
		Entities:  buildEntities(st),
		Locations: buildLocations(st, exits),
		Dialogue:  dialogue,
		Sequences: buildSequences(st),
		Rules:     buildRules(st, rules),
	}
	return json.Marshal(doc)
}

func buildWorld(st *symtab.SymbolTable) worldDoc {
	var w worldDoc
	if st.WorldStart != nil {
		w.Start = st.WorldStart.ID
	}
	if st.WorldEntry != nil {
		w.Entry = st.WorldEntry.ID
	}
	return w
}

func buildTypes(st *symtab.SymbolTable) *orderedMap {
	out := newOrderedMap()
	for _, name := range st.Types.Keys() {
		t, _ := st.Types.Get(name)
		props := newOrderedMap()
		for _, propName := range t.Properties.Keys() {
			prop, _ := t.Properties.Get(propName)
			props.Set(propName, buildProperty(prop))
		}
		out.Set(name, typeDoc{Traits: t.Traits, Properties: props})
	}
	return out
}

func buildProperty(prop symtab.PropertySymbol) propertyDoc {
	doc := propertyDoc{Type: prop.RawTypeString, Values: prop.Values, Min: prop.Min, Max: prop.Max, RefType: prop.RefType, Description: prop.Description}
	if prop.Default != nil {
		doc.Default = valueToJSON(*prop.Default)
	}
	if prop.Visibility == symtab.VisibilityHidden {
		doc.Visibility = "hidden"
	}
	return doc
}

func buildEntities(st *symtab.SymbolTable) *orderedMap {
	containers := computeContainers(st)
	out := newOrderedMap()
	for _, id := range st.Entities.Keys() {
		entity, _ := st.Entities.Get(id)
		props := newOrderedMap()
		if entity.TypeSymbol != nil {
			if typeSym, ok := st.Types.Get(*entity.TypeSymbol); ok {
				for _, propName := range typeSym.Properties.Keys() {
					prop, _ := typeSym.Properties.Get(propName)
					overridden := entity.PropertyOverrides != nil && entity.PropertyOverrides.Has(propName)
					if prop.Default != nil && !overridden {
						props.Set(propName, valueToJSON(*prop.Default))
					}
				}
			}
		}
		if entity.PropertyOverrides != nil {
			for _, propName := range entity.PropertyOverrides.Keys() {
				v, _ := entity.PropertyOverrides.Get(propName)
				props.Set(propName, valueToJSON(v))
			}
		}
		var container *string
		if c, ok := containers[id]; ok {
			container = &c
		}
		out.Set("@"+id, entityDoc{Type: entity.TypeName, Container: container, Properties: props})
	}
	return out
}

// computeContainers scans every location's Contains list to find which
// location (if any) currently holds each entity id.
func computeContainers(st *symtab.SymbolTable) map[string]string {
	containers := make(map[string]string)
	for _, locID := range st.Locations.Keys() {
		loc, _ := st.Locations.Get(locID)
		for _, id := range loc.Contains {
			if _, exists := containers[id]; !exists {
				containers[id] = locID
			}
		}
	}
	return containers
}

func buildLocations(st *symtab.SymbolTable, exits map[string]map[string]exitRender) *orderedMap {
	out := newOrderedMap()
	for _, id := range st.Locations.Keys() {
		loc, _ := st.Locations.Get(id)
		exitDocs := newOrderedMap()
		for _, direction := range loc.Exits.Keys() {
			exit, _ := loc.Exits.Get(direction)
			exitDocs.Set(direction, buildExit(exit, exits[id][direction]))
		}
		out.Set(id, locationDoc{DisplayName: loc.DisplayName, Exits: exitDocs, Contains: loc.Contains})
	}
	return out
}

func buildExit(exit symtab.ExitSymbol, render exitRender) exitDoc {
	dest := exit.Destination
	if exit.ResolvedDestination != nil {
		dest = *exit.ResolvedDestination
	}
	return exitDoc{Destination: dest, Condition: render.Condition, BlockedMessage: render.BlockedMessage}
}

// buildDialogue walks every file's content tree once, in the graph's
// insertion order (graph.Paths), collecting the per-section ordered dialogue array, the rendered
// exit condition/blocked-message text keyed by location id and direction,
// and the rendered select/where/effects text for every rule block, keyed
// by rule name.
func buildDialogue(graph *dgraph.DependencyGraph, st *symtab.SymbolTable) (*orderedMap, map[string]map[string]exitRender, map[string]ruleRender) {
	w := &dialogueWalker{
		items: make(map[string][]contentItem),
		exits: make(map[string]map[string]exitRender),
		rules: make(map[string]ruleRender),
	}
	for _, path := range graph.Paths() {
		node, ok := graph.Node(path)
		if !ok {
			continue
		}
		w.fileStem = dgraph.FileStem(path)
		w.currentSection = ""
		w.currentLocation = ""
		for _, content := range node.AST.Content {
			w.walk(content)
		}
	}

	out := newOrderedMap()
	for _, compiledID := range st.Sections.Keys() {
		out.Set(compiledID, w.items[compiledID])
	}
	return out, w.exits, w.rules
}

// dialogueWalker replays the same content tree LINK walked, but collects
// a flat per-section array of renderable dialogue items instead of
// registering symbols.
type dialogueWalker struct {
	fileStem        string
	currentSection  string
	currentLocation string
	items           map[string][]contentItem
	exits           map[string]map[string]exitRender
	rules           map[string]ruleRender
}

func (w *dialogueWalker) append(item contentItem) {
	if w.currentSection == "" {
		return
	}
	w.items[w.currentSection] = append(w.items[w.currentSection], item)
}

func (w *dialogueWalker) walk(node ast.ContentNode) {
	switch node.Kind {
	case ast.NodeSectionLabel:
		w.currentSection = w.fileStem + "/" + node.SectionLabel.Name
		if _, ok := w.items[w.currentSection]; !ok {
			w.items[w.currentSection] = nil
		}

	case ast.NodeLocationHeading:
		w.currentSection = ""
		w.currentLocation = slugify.Slugify(node.LocationHeading.DisplayName)

	case ast.NodeProse:
		w.append(contentItem{Kind: "prose", Text: node.Prose.Text})

	case ast.NodeEntitySpeech:
		w.append(contentItem{Kind: "speech", Entity: "@" + node.EntitySpeech.EntityRef, Text: node.EntitySpeech.Text})

	case ast.NodeStageDirection:
		w.append(contentItem{Kind: "stage_direction", Entity: "@" + node.StageDirection.EntityRef, Text: node.StageDirection.Text})

	case ast.NodeEntityPresence:
		for _, ref := range node.EntityPresence.EntityRefs {
			w.append(contentItem{Kind: "presence", Entity: "@" + ref})
		}

	case ast.NodeCondition:
		w.append(contentItem{Kind: "condition", Text: renderConditionExpr(node.Condition.Expr)})

	case ast.NodeOrConditionBlock:
		for _, expr := range node.OrConditionBlock.Conditions {
			w.append(contentItem{Kind: "condition", Text: renderConditionExpr(expr)})
		}

	case ast.NodeEffect:
		w.append(contentItem{Kind: "effect", Text: renderEffect(node.Effect.EffectType)})

	case ast.NodeJump:
		target := node.Jump.Target
		if node.Jump.Annotation != nil && node.Jump.Annotation.ResolvedSection != nil {
			target = *node.Jump.Annotation.ResolvedSection
		}
		w.append(contentItem{Kind: "jump", Target: target})

	case ast.NodeChoice:
		w.appendChoice(node.Choice)

	case ast.NodeExitDeclaration:
		w.recordExit(node.ExitDeclaration)
		for _, child := range node.ExitDeclaration.Children {
			w.walk(child)
		}

	case ast.NodeRuleBlock:
		// Rules are emitted separately under the rules key; this walk only
		// captures the render-only fields not stored in the symbol table.
		w.recordRule(node.RuleBlock)
	}
}

func (w *dialogueWalker) appendChoice(choice *ast.Choice) {
	doc := choiceDoc{Label: choice.Label, Sticky: choice.Sticky}
	var target *string
	for _, child := range choice.Content {
		switch child.Kind {
		case ast.NodeCondition:
			doc.Conditions = append(doc.Conditions, renderConditionExpr(child.Condition.Expr))
		case ast.NodeOrConditionBlock:
			for _, expr := range child.OrConditionBlock.Conditions {
				doc.Conditions = append(doc.Conditions, renderConditionExpr(expr))
			}
		case ast.NodeEffect:
			doc.Effects = append(doc.Effects, renderEffect(child.Effect.EffectType))
		case ast.NodeJump:
			t := child.Jump.Target
			if child.Jump.Annotation != nil && child.Jump.Annotation.ResolvedSection != nil {
				t = *child.Jump.Annotation.ResolvedSection
			}
			target = &t
		}
	}
	if choice.Target != nil {
		target = choice.Target
	}
	doc.Target = target
	w.append(contentItem{Kind: "choice", Choice: &doc})

	// Sticky and nested choices can themselves contain further choices,
	// prose, or speech lines; replay them into the same section stream.
	for _, child := range choice.Content {
		if child.Kind == ast.NodeChoice || child.Kind == ast.NodeProse || child.Kind == ast.NodeEntitySpeech {
			w.walk(child)
		}
	}
}

// recordExit renders an exit declaration's condition and blocked message,
// if present, keyed by the enclosing location and the exit's direction.
func (w *dialogueWalker) recordExit(exit *ast.ExitDeclaration) {
	if w.currentLocation == "" {
		return
	}
	var render exitRender
	for _, child := range exit.Children {
		switch child.Kind {
		case ast.NodeCondition:
			text := renderConditionExpr(child.Condition.Expr)
			render.Condition = &text
		case ast.NodeBlockedMessage:
			render.BlockedMessage = &child.BlockedMessage.Text
		}
	}
	if render.Condition == nil && render.BlockedMessage == nil {
		return
	}
	if w.exits[w.currentLocation] == nil {
		w.exits[w.currentLocation] = make(map[string]exitRender)
	}
	w.exits[w.currentLocation][exit.Direction] = render
}

// recordRule renders a rule block's own where-clauses, effects, and select
// clause, keyed by the rule's name — a RuleSymbol only carries the select
// clause (collect.go:379-392), not these, so EMIT pulls them straight off
// the AST the same way it pulls exit condition/blocked-message text.
func (w *dialogueWalker) recordRule(rule *ast.RuleBlock) {
	var render ruleRender
	for _, expr := range rule.WhereClauses {
		render.Where = append(render.Where, renderConditionExpr(expr))
	}
	for i := range rule.Effects {
		render.Effects = append(render.Effects, renderEffect(rule.Effects[i].EffectType))
	}
	if rule.Select != nil {
		sel := &selectDoc{Variable: rule.Select.Variable}
		for _, ref := range rule.Select.EntityRefs {
			sel.From = append(sel.From, "@"+ref)
		}
		for _, expr := range rule.Select.WhereClauses {
			sel.Where = append(sel.Where, renderConditionExpr(expr))
		}
		render.Select = sel
	}
	w.rules[rule.Name] = render
}

func buildSequences(st *symtab.SymbolTable) *orderedMap {
	out := newOrderedMap()
	for _, id := range st.Sequences.Keys() {
		seq, _ := st.Sequences.Get(id)
		phases := make([]phaseDoc, 0, len(seq.Phases))
		for _, ph := range seq.Phases {
			phases = append(phases, phaseDoc{ID: ph.ID, Advance: ph.Advance, Action: ph.Action, Actions: ph.Actions, Rule: ph.Rule})
		}
		out.Set(id, sequenceDoc{Phases: phases})
	}
	return out
}

func buildRules(st *symtab.SymbolTable, rules map[string]ruleRender) *orderedMap {
	out := newOrderedMap()
	for _, name := range st.Rules.Keys() {
		rule, _ := st.Rules.Get(name)
		doc := ruleDoc{Actor: rule.Actor, Trigger: rule.Trigger}
		if render, ok := rules[name]; ok {
			doc.Select = render.Select
			doc.Where = render.Where
			doc.Effects = render.Effects
		}
		out.Set(name, doc)
	}
	return out
}

func valueToJSON(v symtab.Value) interface{} {
	switch v.Kind {
	case symtab.ValueString:
		return v.StringVal
	case symtab.ValueInteger:
		return v.IntegerVal
	case symtab.ValueNumber:
		return v.NumberVal
	case symtab.ValueBoolean:
		return v.BooleanVal
	case symtab.ValueEntityRef:
		return "@" + v.EntityRefID
	case symtab.ValueList:
		out := make([]interface{}, 0, len(v.ListVal))
		for _, item := range v.ListVal {
			out = append(out, valueToJSON(item))
		}
		return out
	default:
		return nil
	}
}
