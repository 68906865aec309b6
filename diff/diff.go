// Package diff implements the diff engine: a Snapshot projection of one
// compilation result, and an ordered Change list between two snapshots.
// Diffing never touches the AST or dependency graph — a Snapshot is
// self-contained and deliberately small enough to persist between builds
// (a CI cache entry, a playground's "what changed" panel).
package diff

import (
	"fmt"
	"sort"

	"github.com/minio/highwayhash"

	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/facts"
	"github.com/urdwyrd/urd/symtab"
)

// SnapshotVersion is bumped whenever the Snapshot schema changes shape.
// BuildFromSnapshot-style callers (persisted snapshots loaded from disk)
// must check this before diffing against a live one.
const SnapshotVersion = "1"

// ErrVersionMismatch is returned by Diff when the two snapshots were
// produced by incompatible schema versions.
type ErrVersionMismatch struct {
	Have, Want string
}

func (e ErrVersionMismatch) Error() string {
	return fmt.Sprintf("diff: snapshot version mismatch: have %q, want %q", e.Have, e.Want)
}

// EntitySnapshot is one entity's comparable projection.
type EntitySnapshot struct {
	Type     string
	Defaults map[string]symtab.Value
}

// ExitSnapshot is one location exit's comparable projection. Condition is
// fingerprinted rather than carried verbatim since the diff only needs to
// know whether it changed, not what it says.
type ExitSnapshot struct {
	Direction           string
	Destination         string
	ConditionFingerprint uint64
	HasCondition        bool
	BlockedMessage      string
}

// LocationSnapshot is one location's comparable projection.
type LocationSnapshot struct {
	DisplayName string
	Exits       []ExitSnapshot
}

// ChoiceSnapshot is one choice's comparable projection.
type ChoiceSnapshot struct {
	ID     string
	Label  string
	Sticky bool
}

// SectionSnapshot is one section's comparable projection.
type SectionSnapshot struct {
	Choices []ChoiceSnapshot
}

// PropertyDependencySnapshot summarizes one property key's read/write
// traffic, the unit property_dependency Change entries compare.
type PropertyDependencySnapshot struct {
	ReadCount    int
	WriteCount   int
	OrphanStatus string
}

// Orphan status values, per spec.md's property_dependency summary.
const (
	OrphanReadNeverWritten = "read_never_written"
	OrphanWrittenNeverRead = "written_never_read"
	OrphanBalanced         = "balanced"
	OrphanNone             = "none"
)

// Snapshot is a serializable projection of one compilation result.
type Snapshot struct {
	Version              string
	Entities             map[string]EntitySnapshot
	Locations            map[string]LocationSnapshot
	Sections             map[string]SectionSnapshot
	PropertyDependencies map[string]PropertyDependencySnapshot
	Reachable            map[string]bool
	ImpossibleChoices    map[string]bool
}

// Build constructs a Snapshot from a resolved symbol table and its
// extracted facts. graph is walked only to recover each exit's rendered
// condition and blocked-message text (collectExitConditionText); the
// reachability BFS walks st.Locations directly, mirroring validate/mod.go's
// validateLocationReachability.
func Build(graph *dgraph.DependencyGraph, st *symtab.SymbolTable, fs *facts.FactSet, idx *facts.PropertyDependencyIndex) *Snapshot {
	snap := &Snapshot{
		Version:              SnapshotVersion,
		Entities:             buildEntities(st),
		Locations:            buildLocations(st, collectExitConditionText(graph)),
		Sections:             buildSections(st),
		PropertyDependencies: buildPropertyDependencies(idx),
		Reachable:            buildReachable(st),
		ImpossibleChoices:    buildImpossibleChoices(fs, idx),
	}
	return snap
}

func buildEntities(st *symtab.SymbolTable) map[string]EntitySnapshot {
	out := make(map[string]EntitySnapshot, st.Entities.Len())
	for _, id := range st.Entities.Keys() {
		entity, _ := st.Entities.Get(id)
		defaults := make(map[string]symtab.Value)
		if entity.PropertyOverrides != nil {
			for _, key := range entity.PropertyOverrides.Keys() {
				v, _ := entity.PropertyOverrides.Get(key)
				defaults[key] = v
			}
		}
		out[id] = EntitySnapshot{Type: entity.TypeName, Defaults: defaults}
	}
	return out
}

func buildLocations(st *symtab.SymbolTable, exitText map[string]map[string]exitDeclText) map[string]LocationSnapshot {
	out := make(map[string]LocationSnapshot, st.Locations.Len())
	for _, id := range st.Locations.Keys() {
		loc, _ := st.Locations.Get(id)
		var exits []ExitSnapshot
		for _, direction := range loc.Exits.Keys() {
			exit, _ := loc.Exits.Get(direction)
			dest := exit.Destination
			if exit.ResolvedDestination != nil {
				dest = *exit.ResolvedDestination
			}
			es := ExitSnapshot{Direction: direction, Destination: dest}
			if text, ok := exitText[id][direction]; ok {
				if text.Condition != "" {
					es.HasCondition = true
					es.ConditionFingerprint = fingerprint(text.Condition)
				}
				es.BlockedMessage = text.BlockedMessage
			}
			exits = append(exits, es)
		}
		sort.Slice(exits, func(i, j int) bool { return exits[i].Direction < exits[j].Direction })
		out[id] = LocationSnapshot{DisplayName: loc.DisplayName, Exits: exits}
	}
	return out
}

func buildSections(st *symtab.SymbolTable) map[string]SectionSnapshot {
	out := make(map[string]SectionSnapshot, st.Sections.Len())
	for _, compiledID := range st.Sections.Keys() {
		sec, _ := st.Sections.Get(compiledID)
		choices := make([]ChoiceSnapshot, 0, len(sec.Choices))
		for _, ch := range sec.Choices {
			choices = append(choices, ChoiceSnapshot{ID: ch.CompiledID, Label: ch.Label, Sticky: ch.Sticky})
		}
		out[compiledID] = SectionSnapshot{Choices: choices}
	}
	return out
}

func buildPropertyDependencies(idx *facts.PropertyDependencyIndex) map[string]PropertyDependencySnapshot {
	out := make(map[string]PropertyDependencySnapshot)
	keys := make(map[facts.PropertyKey]bool)
	for _, k := range idx.ReadProperties() {
		keys[k] = true
	}
	for _, k := range idx.WrittenProperties() {
		keys[k] = true
	}
	for k := range keys {
		reads := len(idx.ReadsOf(k))
		writes := len(idx.WritesOf(k))
		out[propertyKeyString(k)] = PropertyDependencySnapshot{
			ReadCount:    reads,
			WriteCount:   writes,
			OrphanStatus: orphanStatus(reads, writes),
		}
	}
	return out
}

func orphanStatus(reads, writes int) string {
	switch {
	case reads > 0 && writes == 0:
		return OrphanReadNeverWritten
	case writes > 0 && reads == 0:
		return OrphanWrittenNeverRead
	case reads > 0 && writes > 0:
		return OrphanBalanced
	default:
		return OrphanNone
	}
}

func propertyKeyString(k facts.PropertyKey) string {
	return k.EntityType + "." + k.Property
}

// buildReachable runs the same BFS validateLocationReachability performs,
// returning the set actually reached rather than reporting on what wasn't.
func buildReachable(st *symtab.SymbolTable) map[string]bool {
	reachable := make(map[string]bool)
	if st.WorldStart == nil {
		return reachable
	}
	reachable[st.WorldStart.ID] = true
	queue := []string{st.WorldStart.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		loc, ok := st.Locations.Get(id)
		if !ok {
			continue
		}
		for _, direction := range loc.Exits.Keys() {
			exit, _ := loc.Exits.Get(direction)
			if exit.ResolvedDestination == nil {
				continue
			}
			dest := *exit.ResolvedDestination
			if !reachable[dest] {
				reachable[dest] = true
				queue = append(queue, dest)
			}
		}
	}
	return reachable
}

// buildImpossibleChoices replays validateChoiceReachability's "literal
// value this property is ever set to" analysis against the FactSet rather
// than re-walking the AST, since FACTS already carries the same Set-effect
// literals and equality-condition reads URD432 inspects.
func buildImpossibleChoices(fs *facts.FactSet, idx *facts.PropertyDependencyIndex) map[string]bool {
	out := make(map[string]bool)
	reads := fs.Reads()
	for _, choice := range fs.Choices() {
		for _, readIdx := range choice.ConditionReads {
			r := reads[readIdx]
			if r.Operator != facts.CompareEq {
				continue
			}
			writes := idx.WritesOf(r.Key())
			if writtenValueSeen(fs, writes, r.ValueLiteral) {
				continue
			}
			out[choice.ChoiceID] = true
			break
		}
	}
	return out
}

func writtenValueSeen(fs *facts.FactSet, writeIndices []int, literal string) bool {
	writes := fs.Writes()
	for _, i := range writeIndices {
		if writes[i].Operator == facts.WriteSet && writes[i].ValueExpr == literal {
			return true
		}
	}
	return false
}

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// fingerprint hashes text with the same highwayhash construction the
// teacher's content-hashing helper uses, reused verbatim rather than
// reimplemented since it is already the module's one hashing idiom.
func fingerprint(text string) uint64 {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0
	}
	_, _ = h.Write([]byte(text))
	return h.Sum64()
}
