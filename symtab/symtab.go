// Package symtab implements the compiler's global symbol table: a
// registry of every declared name, populated by LINK's collection pass
// and queried by its resolution pass, VALIDATE, and EMIT.
//
// Every namespace uses the teacher's slice-plus-index-map pattern
// (compare inspector/graph.File's functionMap/typeMap): an ordered slice
// for deterministic iteration plus a private map[string]int for O(1)
// lookup. Insertion order is preserved; a second declaration under a name
// already present is recorded in Duplicates rather than overwriting the
// first.
package symtab

import (
	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/span"
)

// Duplicate records a second-or-later declaration under a name already
// registered in some namespace. The canonical (first) declaration remains
// the one found by lookups.
type Duplicate struct {
	Namespace  string
	Name       string
	DeclaredIn span.Span
}

// PropertyType discriminates the seven scalar/structural property kinds.
type PropertyType int

const (
	PropertyBoolean PropertyType = iota
	PropertyInteger
	PropertyNumber
	PropertyString
	PropertyEnum
	PropertyRef
	PropertyList
)

// Visibility discriminates property visibility; it defaults to Visible.
type Visibility int

const (
	VisibilityVisible Visibility = iota
	VisibilityHidden
)

// ValueKind discriminates Value's variants.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInteger
	ValueNumber
	ValueBoolean
	ValueList
	ValueEntityRef
)

// Value is a scalar value stored in the symbol table (property defaults,
// entity overrides).
type Value struct {
	Kind        ValueKind
	StringVal   string
	IntegerVal  int64
	NumberVal   float64
	BooleanVal  bool
	ListVal     []Value
	EntityRefID string
}

// TypeSymbol is a registered type definition.
type TypeSymbol struct {
	Name       string
	Traits     []string
	Properties *PropertyMap
	DeclaredIn span.Span
}

// PropertySymbol is a property within a type.
type PropertySymbol struct {
	Name           string
	PropertyType   PropertyType
	RawTypeString  string
	Description    *string
	Default        *Value
	Visibility     Visibility
	Values         []string
	Min            *float64
	Max            *float64
	RefType        *string
	ElementType    *PropertyType
	ElementValues  []string
	ElementRefType *string
	DeclaredIn     span.Span
}

// EntitySymbol is a registered entity declaration.
type EntitySymbol struct {
	ID                string
	TypeName          string
	TypeSymbol        *string
	PropertyOverrides *ValueMap
	DeclaredIn        span.Span
}

// ChoiceSymbol is a choice registered within a section.
type ChoiceSymbol struct {
	Label      string
	CompiledID string
	Sticky     bool
	DeclaredIn span.Span
}

// SectionSymbol is a registered `== name` section.
type SectionSymbol struct {
	LocalName  string
	CompiledID string
	FileStem   string
	Choices    []ChoiceSymbol
	DeclaredIn span.Span
}

// AstNodeRef is a lightweight reference to an AST node: the file it lives
// in and its index within that file's flattened content-node slice.
type AstNodeRef struct {
	File      string
	NodeIndex int
}

// ExitSymbol is an exit registered within a location.
type ExitSymbol struct {
	Direction           string
	Destination         string
	ResolvedDestination *string
	ConditionNode       *AstNodeRef
	BlockedMessageNode  *AstNodeRef
	DeclaredIn          span.Span
}

// LocationSymbol is a registered `# Heading` location.
type LocationSymbol struct {
	ID          string
	DisplayName string
	Exits       *ExitMap
	Contains    []string
	DeclaredIn  span.Span
}

// ActionSymbol is registered for every choice (paired action) or explicit
// frontmatter action declaration.
type ActionSymbol struct {
	ID         string
	Target     *string
	TargetType *string
	DeclaredIn span.Span
}

// SelectDef is the `selects...from...where` definition stored on a rule.
type SelectDef struct {
	Variable     string
	From         []string
	WhereClauses []ast.ConditionExpr
	Span         span.Span
}

// RuleSymbol is a registered rule.
type RuleSymbol struct {
	ID         string
	Actor      string
	Trigger    string
	Select     *SelectDef
	DeclaredIn span.Span
}

// PhaseSymbol is a phase registered within a sequence.
type PhaseSymbol struct {
	ID         string
	Advance    string
	Action     *string
	Actions    []string
	Rule       *string
	DeclaredIn span.Span
}

// SequenceSymbol is a registered `## Heading` sequence.
type SequenceSymbol struct {
	ID         string
	Phases     []PhaseSymbol
	DeclaredIn span.Span
}

// WorldTarget records a resolved world.start/world.entry value and the
// span of the world block that declared it, for diagnostics.
type WorldTarget struct {
	ID   string
	Span span.Span
}

// SymbolTable is the compiler's global registry of declared names: seven
// ordered namespaces (Actions among them, holding the choice-paired action
// registrations) plus a flat duplicate list.
type SymbolTable struct {
	Types      *TypeMap
	Entities   *EntityMap
	Sections   *SectionMap
	Locations  *LocationMap
	Actions    *ActionMap
	Rules      *RuleMap
	Sequences  *SequenceMap
	Duplicates []Duplicate

	WorldStart *WorldTarget
	WorldEntry *WorldTarget
}

// New returns an empty SymbolTable with all namespaces initialized.
func New() *SymbolTable {
	return &SymbolTable{
		Types:     NewTypeMap(),
		Entities:  NewEntityMap(),
		Sections:  NewSectionMap(),
		Locations: NewLocationMap(),
		Actions:   NewActionMap(),
		Rules:     NewRuleMap(),
		Sequences: NewSequenceMap(),
	}
}

// AddDuplicate records a redeclaration for diagnostic purposes. The
// canonical (first) declaration is left untouched in its namespace map.
func (s *SymbolTable) AddDuplicate(namespace, name string, declaredIn span.Span) {
	s.Duplicates = append(s.Duplicates, Duplicate{Namespace: namespace, Name: name, DeclaredIn: declaredIn})
}
