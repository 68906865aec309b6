// Package facts implements FACTS extraction: a flat, tabular projection of
// every property read and write site in a compiled world, built by walking
// annotated ASTs once LINK has resolved them. The fact set is the one
// canonical source ANALYZE and the diff engine consume — neither re-walks
// the AST.
package facts

import "github.com/urdwyrd/urd/span"

// CompareOp is a condition's comparison operator.
type CompareOp int

const (
	CompareEq CompareOp = iota
	CompareNe
	CompareLt
	CompareGt
	CompareLe
	CompareGe
)

// WriteOp is an effect's write operator.
type WriteOp int

const (
	WriteSet WriteOp = iota
	WriteAdd
	WriteSub
)

// LiteralKind classifies the syntactic shape of a value literal, since
// FACTS never carries typed symtab.Value data — only the raw text and its
// surface kind.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralNum
	LiteralIdent
	LiteralStr
	LiteralBool
)

// SiteKind discriminates Site's variants.
type SiteKind int

const (
	SiteChoice SiteKind = iota
	SiteExit
	SiteRule
)

// Site identifies where a read or write fact was extracted from.
type Site struct {
	Kind SiteKind
	ID   string
}

// PropertyKey identifies a property on a type, the unit every dependency
// query operates over.
type PropertyKey struct {
	EntityType string
	Property   string
}

// Read is a single condition's property comparison.
type Read struct {
	Site         Site
	EntityType   string
	Property     string
	Operator     CompareOp
	ValueLiteral string
	ValueKind    LiteralKind
	Span         span.Span
}

// Key returns the PropertyKey this read tests.
func (r Read) Key() PropertyKey {
	return PropertyKey{EntityType: r.EntityType, Property: r.Property}
}

// Write is a single effect's property mutation.
type Write struct {
	Site       Site
	EntityType string
	Property   string
	Operator   WriteOp
	ValueExpr  string
	ValueKind  *LiteralKind
	Span       span.Span
}

// Key returns the PropertyKey this write mutates.
func (w Write) Key() PropertyKey {
	return PropertyKey{EntityType: w.EntityType, Property: w.Property}
}

// Exit records a location-to-location traversal edge.
type Exit struct {
	FromLocation  string
	ToLocation    string
	ExitName      string
	IsConditional bool
	GuardReads    []int
}

// JumpTargetKind discriminates Jump's target variants.
type JumpTargetKind int

const (
	JumpToSection JumpTargetKind = iota
	JumpToExit
	JumpToEnd
)

// Jump records a narrative jump from one section.
type Jump struct {
	FromSection string
	TargetKind  JumpTargetKind
	TargetID    string
}

// Choice records a single choice's guarding reads and resulting writes.
type Choice struct {
	Section       string
	ChoiceID      string
	Label         string
	Sticky        bool
	ConditionReads []int
	EffectWrites  []int
}

// Rule records a single rule block's guarding reads and resulting writes,
// parallel to Choice.
type Rule struct {
	RuleID        string
	ConditionReads []int
	EffectWrites  []int
}

// FactSet is the append-only table set produced by extraction. Indices
// into Reads/Writes are stable for the lifetime of one compilation.
type FactSet struct {
	reads   []Read
	writes  []Write
	exits   []Exit
	jumps   []Jump
	choices []Choice
	rules   []Rule
}

// New returns an empty FactSet.
func New() *FactSet {
	return &FactSet{}
}

func (fs *FactSet) addRead(r Read) int {
	fs.reads = append(fs.reads, r)
	return len(fs.reads) - 1
}

func (fs *FactSet) addWrite(w Write) int {
	fs.writes = append(fs.writes, w)
	return len(fs.writes) - 1
}

func (fs *FactSet) addExit(e Exit) int {
	fs.exits = append(fs.exits, e)
	return len(fs.exits) - 1
}
func (fs *FactSet) addJump(j Jump)      { fs.jumps = append(fs.jumps, j) }
func (fs *FactSet) addChoice(ch Choice) { fs.choices = append(fs.choices, ch) }
func (fs *FactSet) addRule(r Rule)      { fs.rules = append(fs.rules, r) }

// AddRead appends a read fact and returns its index. Exported so packages
// outside facts (chiefly analyze's tests) can assemble a synthetic FactSet
// without a full parse/link pipeline; Extract is still the only producer
// used by the compiler itself.
func (fs *FactSet) AddRead(r Read) int { return fs.addRead(r) }

// AddWrite appends a write fact and returns its index.
func (fs *FactSet) AddWrite(w Write) int { return fs.addWrite(w) }

// AddExit appends an exit fact and returns its index.
func (fs *FactSet) AddExit(e Exit) int { return fs.addExit(e) }

// AddJump appends a jump fact.
func (fs *FactSet) AddJump(j Jump) { fs.addJump(j) }

// AddChoice appends a choice fact.
func (fs *FactSet) AddChoice(ch Choice) { fs.addChoice(ch) }

// AddRule appends a rule fact.
func (fs *FactSet) AddRule(r Rule) { fs.addRule(r) }

// Reads returns every extracted read fact in extraction order.
func (fs *FactSet) Reads() []Read { return fs.reads }

// Writes returns every extracted write fact in extraction order.
func (fs *FactSet) Writes() []Write { return fs.writes }

// Exits returns every extracted exit fact.
func (fs *FactSet) Exits() []Exit { return fs.exits }

// Jumps returns every extracted jump fact.
func (fs *FactSet) Jumps() []Jump { return fs.jumps }

// Choices returns every extracted choice fact.
func (fs *FactSet) Choices() []Choice { return fs.choices }

// Rules returns every extracted rule fact.
func (fs *FactSet) Rules() []Rule { return fs.rules }

// ReadIndicesForSite returns the indices of every read whose site matches.
func (fs *FactSet) ReadIndicesForSite(site Site) []int {
	var out []int
	for i, r := range fs.reads {
		if r.Site == site {
			out = append(out, i)
		}
	}
	return out
}

// PropertyDependencyIndex offers O(1) lookup of every read/write site for a
// given property key, derived purely from a FactSet in O(R+W). Key order
// (readOrder/writeOrder) is first-seen-in-extraction, not map iteration
// order, so ReadProperties/WrittenProperties are reproducible across runs.
type PropertyDependencyIndex struct {
	reads      map[PropertyKey][]int
	writes     map[PropertyKey][]int
	readOrder  []PropertyKey
	writeOrder []PropertyKey
}

// Build constructs the index from fs.
func Build(fs *FactSet) *PropertyDependencyIndex {
	idx := &PropertyDependencyIndex{
		reads:  make(map[PropertyKey][]int),
		writes: make(map[PropertyKey][]int),
	}
	for i, r := range fs.reads {
		key := r.Key()
		if _, seen := idx.reads[key]; !seen {
			idx.readOrder = append(idx.readOrder, key)
		}
		idx.reads[key] = append(idx.reads[key], i)
	}
	for i, w := range fs.writes {
		key := w.Key()
		if _, seen := idx.writes[key]; !seen {
			idx.writeOrder = append(idx.writeOrder, key)
		}
		idx.writes[key] = append(idx.writes[key], i)
	}
	return idx
}

// ReadsOf returns the read indices for key, nil if none.
func (idx *PropertyDependencyIndex) ReadsOf(key PropertyKey) []int { return idx.reads[key] }

// WritesOf returns the write indices for key, nil if none.
func (idx *PropertyDependencyIndex) WritesOf(key PropertyKey) []int { return idx.writes[key] }

// ReadProperties returns the distinct set of properties ever read, in
// first-seen order.
func (idx *PropertyDependencyIndex) ReadProperties() []PropertyKey {
	return idx.readOrder
}

// WrittenProperties returns the distinct set of properties ever written, in
// first-seen order.
func (idx *PropertyDependencyIndex) WrittenProperties() []PropertyKey {
	return idx.writeOrder
}

// ReadButNeverWritten returns every property key read somewhere but never
// the target of any write.
func (idx *PropertyDependencyIndex) ReadButNeverWritten() []PropertyKey {
	var out []PropertyKey
	for _, key := range idx.ReadProperties() {
		if len(idx.writes[key]) == 0 {
			out = append(out, key)
		}
	}
	return out
}

// WrittenButNeverRead returns every property key written somewhere but
// never the subject of any read.
func (idx *PropertyDependencyIndex) WrittenButNeverRead() []PropertyKey {
	var out []PropertyKey
	for _, key := range idx.WrittenProperties() {
		if len(idx.reads[key]) == 0 {
			out = append(out, key)
		}
	}
	return out
}
