// Package ast defines the AST node types for Urd Schema Markdown.
//
// The AST is the central data structure. PARSE produces it, every
// subsequent phase reads it, and LINK annotates it. EMIT traverses it to
// produce JSON.
//
// Design principles mirrored from the original implementation:
//   - File-scoped: each file produces its own FileAST, never merged.
//   - Annotatable: nodes carry optional annotation slots LINK fills in.
//   - Span-tracked: every node records its exact source position.
package ast

import "github.com/urdwyrd/urd/span"

// FileAST is the root node for a single parsed .urd.md file.
type FileAST struct {
	Path        string
	Frontmatter *Frontmatter
	Content     []ContentNode
	Span        span.Span
}

// Frontmatter is the `---`-delimited block at the top of a file.
type Frontmatter struct {
	Entries []FrontmatterEntry
	Span    span.Span
}

// FrontmatterEntry is a key-value pair in frontmatter.
type FrontmatterEntry struct {
	Key   string
	Value FrontmatterValue
	Span  span.Span
}

// FrontmatterValueKind discriminates the variants of FrontmatterValue. Go
// has no sum types, so the discriminated-struct technique used throughout
// this AST (a Kind tag plus the payload fields relevant to that kind) takes
// its place.
type FrontmatterValueKind int

const (
	FrontmatterScalar FrontmatterValueKind = iota
	FrontmatterList
	FrontmatterMap
	FrontmatterInlineObject
	FrontmatterEntityDecl
	FrontmatterTypeDef
	FrontmatterImportDecl
	FrontmatterWorldBlock
)

// FrontmatterValue is a typed frontmatter value.
type FrontmatterValue struct {
	Kind Kind

	Scalar       Scalar
	List         []FrontmatterValue
	Map          []FrontmatterEntry
	InlineObject []FrontmatterEntry
	EntityDecl   *EntityDecl
	TypeDef      *TypeDef
	ImportDecl   *ImportDecl
	WorldBlock   *WorldBlock
}

// Kind is the shared discriminator type for FrontmatterValue.
type Kind = FrontmatterValueKind

// ScalarKind discriminates Scalar's variants.
type ScalarKind int

const (
	ScalarString ScalarKind = iota
	ScalarInteger
	ScalarNumber
	ScalarBoolean
	ScalarListKind
	ScalarEntityRef
)

// Scalar is a frontmatter primitive value: string, integer, number,
// boolean, list of scalars, or an entity reference (`@name`).
type Scalar struct {
	Kind        ScalarKind
	StringVal   string
	IntegerVal  int64
	NumberVal   float64
	BooleanVal  bool
	ListVal     []Scalar
	EntityRefID string
}

// ImportDecl is `import: ./path.urd.md`.
type ImportDecl struct {
	Path string
	Span span.Span
}

// WorldField is one key-value pair in a WorldBlock.
type WorldField struct {
	Key   string
	Value Scalar
}

// WorldBlock is the `world:` block in frontmatter.
type WorldBlock struct {
	Fields []WorldField
	Span   span.Span
}

// TypeDef is a type definition: `TypeName [traits]: properties`.
type TypeDef struct {
	Name       string
	Traits     []string
	Properties []PropertyDef
	Span       span.Span
}

// PropertyDef is a property within a type definition.
type PropertyDef struct {
	Name           string
	PropertyType   string
	RawTypeString  string
	Default        *Scalar
	Visibility     *string
	Values         []string
	Min            *float64
	Max            *float64
	RefType        *string
	ElementType    *string
	ElementValues  []string
	ElementRefType *string
	Description    *string
	Span           span.Span
}

// EntityPropertyOverride is a single `key: value` override pair on an
// entity declaration.
type EntityPropertyOverride struct {
	Key   string
	Value Scalar
}

// EntityDecl is `@name: Type { overrides }`.
type EntityDecl struct {
	ID                string
	TypeName          string
	PropertyOverrides []EntityPropertyOverride
	Annotation        *Annotation
	Span              span.Span
}

// ContentNodeKind discriminates the 18 content-node variants.
type ContentNodeKind int

const (
	NodeLocationHeading ContentNodeKind = iota
	NodeSequenceHeading
	NodePhaseHeading
	NodeSectionLabel
	NodeEntityPresence
	NodeEntitySpeech
	NodeStageDirection
	NodeProse
	NodeChoice
	NodeCondition
	NodeOrConditionBlock
	NodeEffect
	NodeJump
	NodeExitDeclaration
	NodeBlockedMessage
	NodeRuleBlock
	NodeComment
	NodeErrorNode
)

// ContentNode is a node in the narrative content region of a .urd.md
// file. Exactly one of the typed fields matching Kind is populated.
type ContentNode struct {
	Kind ContentNodeKind

	LocationHeading  *LocationHeading
	SequenceHeading  *SequenceHeading
	PhaseHeading     *PhaseHeading
	SectionLabel     *SectionLabel
	EntityPresence   *EntityPresence
	EntitySpeech     *EntitySpeech
	StageDirection   *StageDirection
	Prose            *Prose
	Choice           *Choice
	Condition        *Condition
	OrConditionBlock *OrConditionBlock
	Effect           *Effect
	Jump             *Jump
	ExitDeclaration  *ExitDeclaration
	BlockedMessage   *BlockedMessage
	RuleBlock        *RuleBlock
	Comment          *Comment
	ErrorNode        *ErrorNode
}

// NodeSpan returns the span of whichever variant is populated.
func (n ContentNode) NodeSpan() span.Span {
	switch n.Kind {
	case NodeLocationHeading:
		return n.LocationHeading.Span
	case NodeSequenceHeading:
		return n.SequenceHeading.Span
	case NodePhaseHeading:
		return n.PhaseHeading.Span
	case NodeSectionLabel:
		return n.SectionLabel.Span
	case NodeEntityPresence:
		return n.EntityPresence.Span
	case NodeEntitySpeech:
		return n.EntitySpeech.Span
	case NodeStageDirection:
		return n.StageDirection.Span
	case NodeProse:
		return n.Prose.Span
	case NodeChoice:
		return n.Choice.Span
	case NodeCondition:
		return n.Condition.Span
	case NodeOrConditionBlock:
		return n.OrConditionBlock.Span
	case NodeEffect:
		return n.Effect.Span
	case NodeJump:
		return n.Jump.Span
	case NodeExitDeclaration:
		return n.ExitDeclaration.Span
	case NodeBlockedMessage:
		return n.BlockedMessage.Span
	case NodeRuleBlock:
		return n.RuleBlock.Span
	case NodeComment:
		return n.Comment.Span
	case NodeErrorNode:
		return n.ErrorNode.Span
	default:
		return span.Synthetic()
	}
}

// LocationHeading is `# Display Name`.
type LocationHeading struct {
	DisplayName string
	Span        span.Span
}

// SequenceHeading is `## Display Name`.
type SequenceHeading struct {
	DisplayName string
	Span        span.Span
}

// PhaseHeading is `### Name (auto)`.
type PhaseHeading struct {
	DisplayName string
	Auto        bool
	Span        span.Span
}

// SectionLabel is `== name`.
type SectionLabel struct {
	Name string
	Span span.Span
}

// EntityPresence is `[@arina, @barrel]` — entity presence in a location.
type EntityPresence struct {
	EntityRefs  []string
	Annotations []*Annotation
	Span        span.Span
}

// EntitySpeech is `@arina: What'll it be?`.
type EntitySpeech struct {
	EntityRef  string
	Text       string
	Annotation *Annotation
	Span       span.Span
}

// StageDirection is `@arina leans in close.`.
type StageDirection struct {
	EntityRef  string
	Text       string
	Annotation *Annotation
	Span       span.Span
}

// Prose is plain narrative text.
type Prose struct {
	Text string
	Span span.Span
}

// Choice is a `*` or `+` choice with nested content.
type Choice struct {
	Sticky      bool
	Label       string
	Target      *string
	TargetType  *string
	Content     []ContentNode
	IndentLevel int
	Annotation  *Annotation
	Span        span.Span
}

// Condition is `? expression`.
type Condition struct {
	Expr        ConditionExpr
	IndentLevel int
	Span        span.Span
}

// OrConditionBlock is a `? any:` block with multiple bare condition
// expressions.
type OrConditionBlock struct {
	Conditions  []ConditionExpr
	IndentLevel int
	Span        span.Span
}

// Effect is `> effect`.
type Effect struct {
	EffectType  EffectType
	IndentLevel int
	Annotation  *Annotation
	Span        span.Span
}

// Jump is `-> name` or `-> exit:name`.
type Jump struct {
	Target          string
	IsExitQualified bool
	IndentLevel     int
	Annotation      *Annotation
	Span            span.Span
}

// ExitDeclaration is `-> direction: Destination`.
type ExitDeclaration struct {
	Direction   string
	Destination string
	Children    []ContentNode
	Annotation  *Annotation
	Span        span.Span
}

// BlockedMessage is `! message`.
type BlockedMessage struct {
	Text        string
	IndentLevel int
	Span        span.Span
}

// Comment is `// text`, retained for potential editor tooling.
type Comment struct {
	Text string
	Span span.Span
}

// ErrorNode is a syntax error marker carrying the raw text of a failed
// construct. The scanner in package parse does not produce it; see that
// package's doc for how it recovers from a failed line.
type ErrorNode struct {
	RawText       string
	AttemptedRule *string
	Span          span.Span
}

// RuleBlock is a `rule name:` block — a complete rule definition.
type RuleBlock struct {
	Name         string
	Actor        string
	Trigger      string
	Select       *SelectClause
	WhereClauses []ConditionExpr
	Effects      []Effect
	Span         span.Span
}

// SelectClause is the `selects...from...where` clause inside a rule block.
type SelectClause struct {
	Variable     string
	EntityRefs   []string
	WhereClauses []ConditionExpr
	Span         span.Span
}

// ConditionExprKind discriminates ConditionExpr's variants.
type ConditionExprKind int

const (
	ExprPropertyComparison ConditionExprKind = iota
	ExprContainmentCheck
	ExprExhaustionCheck
)

// ConditionExpr is the discriminated union of condition expression types.
type ConditionExpr struct {
	Kind ConditionExprKind

	PropertyComparison *PropertyComparison
	ContainmentCheck   *ContainmentCheck
	ExhaustionCheck    *ExhaustionCheck
}

// NodeSpan returns the span of whichever variant is populated.
func (e ConditionExpr) NodeSpan() span.Span {
	switch e.Kind {
	case ExprPropertyComparison:
		return e.PropertyComparison.Span
	case ExprContainmentCheck:
		return e.ContainmentCheck.Span
	case ExprExhaustionCheck:
		return e.ExhaustionCheck.Span
	default:
		return span.Synthetic()
	}
}

// PropertyComparison is `@entity.property op value`.
type PropertyComparison struct {
	EntityRef  string
	Property   string
	Operator   string
	Value      string
	Annotation *Annotation
	Span       span.Span
}

// ContainmentCheck is `@entity in container` or `@entity not in container`.
type ContainmentCheck struct {
	EntityRef    string
	ContainerRef string
	Negated      bool
	Annotation   *Annotation
	Span         span.Span
}

// ExhaustionCheck is `exhausted section_name`.
type ExhaustionCheck struct {
	SectionName string
	Annotation  *Annotation
	Span        span.Span
}

// EffectTypeKind discriminates EffectType's variants.
type EffectTypeKind int

const (
	EffectSet EffectTypeKind = iota
	EffectMove
	EffectReveal
	EffectDestroy
)

// EffectType is the discriminated union of effect node subtypes.
type EffectType struct {
	Kind EffectTypeKind

	// Set: `> @entity.prop = value` or `> @entity.prop + N`
	TargetProp string
	Operator   string
	ValueExpr  string

	// Move: `> move @entity -> container`
	EntityRef      string
	DestinationRef string

	// Reveal: `> reveal @entity.prop` reuses TargetProp above.

	// Destroy: `> destroy @entity` reuses EntityRef above.
}

// ContainerKindTag discriminates ContainerKind's variants.
type ContainerKindTag int

const (
	ContainerKeywordPlayer ContainerKindTag = iota
	ContainerKeywordHere
	ContainerEntityRef
	ContainerLocationRef
)

// ContainerKind is the resolved discriminator for container references in
// a ContainmentCheck, filled in by LINK's resolution pass.
type ContainerKind struct {
	Tag   ContainerKindTag
	RefID string // populated for ContainerEntityRef / ContainerLocationRef
}

// DestinationKindTag discriminates DestinationKind's variants.
type DestinationKindTag int

const (
	DestinationKeywordPlayer DestinationKindTag = iota
	DestinationKeywordHere
	DestinationEntityRef
	DestinationLocationRef
)

// DestinationKind is the resolved discriminator for destination references
// in a Move effect, filled in by LINK's resolution pass.
type DestinationKind struct {
	Tag   DestinationKindTag
	RefID string
}

// Annotation is the resolution slot populated by LINK during the
// resolution sub-pass. Every field starts nil; downstream phases apply
// the "skip rule" and silently ignore any check whose relevant field is
// still nil, since LINK already reported the root cause.
type Annotation struct {
	ResolvedEntity   *string
	ResolvedType     *string
	ResolvedSection  *string
	ResolvedProperty *string
	ResolvedLocation *string
	ContainerKind    *ContainerKind
	DestinationKind  *DestinationKind
}
