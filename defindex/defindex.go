// Package defindex builds a namespace-prefixed lookup from every
// declaration site in a resolved world, for consumers that want
// go-to-definition-style access (an LSP server, a playground UI) without
// exposing the AST or SymbolTable directly.
package defindex

import (
	"fmt"

	"github.com/urdwyrd/urd/span"
	"github.com/urdwyrd/urd/symtab"
)

// DefinitionKindTag discriminates DefinitionKind's variants.
type DefinitionKindTag int

const (
	KindType DefinitionKindTag = iota
	KindEntity
	KindProperty
	KindSection
	KindLocation
	KindExit
	KindChoice
	KindRule
)

// DefinitionKind carries the metadata specific to one entry's kind. Go has
// no sum types, so only the fields relevant to Tag are populated — the
// same discriminated-struct technique the AST package uses.
type DefinitionKind struct {
	Tag DefinitionKindTag

	// Entity
	TypeName string

	// Property (TypeName reused above)
	PropertyType string
	DefaultRepr  *string
	Description  *string

	// Section
	LocalName string
	FileStem  string

	// Location
	DisplayName string

	// Exit
	FromLocation string
	Destination  string

	// Choice
	SectionID string
	Label     string
}

// Entry is a single definition: a declaration span plus its kind metadata.
type Entry struct {
	Span span.Span
	Kind DefinitionKind
}

// entryMap is the package-local instance of the slice-plus-index-map
// lookup pattern established in symtab/orderedmap.go.
type entryMap struct {
	keys   []string
	values []Entry
	index  map[string]int
}

func newEntryMap() *entryMap {
	return &entryMap{index: make(map[string]int)}
}

func (m *entryMap) insert(key string, value Entry) {
	if _, ok := m.index[key]; ok {
		return
	}
	m.index[key] = len(m.values)
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

// Index maps namespace-prefixed keys (`type:Name`, `entity:@id`,
// `prop:Type.name`, `section:compiled_id`, `location:slug`,
// `exit:location/direction`, `choice:compiled_id`, `rule:name`) to their
// declaration sites. Built once from a resolved SymbolTable.
type Index struct {
	entries *entryMap
}

// Build constructs the index from st, in the order: types and their
// properties, entities, sections and their choices, locations and their
// exits, rules — matching the original implementation's build() order
// exactly so the resulting Keys() sequence is stable across runs.
func Build(st *symtab.SymbolTable) *Index {
	idx := &Index{entries: newEntryMap()}

	for _, name := range st.Types.Keys() {
		typeSym, _ := st.Types.Get(name)
		idx.entries.insert("type:"+name, Entry{
			Span: typeSym.DeclaredIn,
			Kind: DefinitionKind{Tag: KindType},
		})

		for _, propName := range typeSym.Properties.Keys() {
			prop, _ := typeSym.Properties.Get(propName)
			var defaultRepr *string
			if prop.Default != nil {
				repr := formatValue(*prop.Default)
				defaultRepr = &repr
			}
			idx.entries.insert(fmt.Sprintf("prop:%s.%s", name, propName), Entry{
				Span: prop.DeclaredIn,
				Kind: DefinitionKind{
					Tag:          KindProperty,
					TypeName:     name,
					PropertyType: prop.RawTypeString,
					DefaultRepr:  defaultRepr,
					Description:  prop.Description,
				},
			})
		}
	}

	for _, id := range st.Entities.Keys() {
		entity, _ := st.Entities.Get(id)
		idx.entries.insert("entity:@"+id, Entry{
			Span: entity.DeclaredIn,
			Kind: DefinitionKind{Tag: KindEntity, TypeName: entity.TypeName},
		})
	}

	for _, compiledID := range st.Sections.Keys() {
		sec, _ := st.Sections.Get(compiledID)
		idx.entries.insert("section:"+compiledID, Entry{
			Span: sec.DeclaredIn,
			Kind: DefinitionKind{Tag: KindSection, LocalName: sec.LocalName, FileStem: sec.FileStem},
		})

		for _, choice := range sec.Choices {
			idx.entries.insert("choice:"+choice.CompiledID, Entry{
				Span: choice.DeclaredIn,
				Kind: DefinitionKind{Tag: KindChoice, SectionID: compiledID, Label: choice.Label},
			})
		}
	}

	for _, slug := range st.Locations.Keys() {
		loc, _ := st.Locations.Get(slug)
		idx.entries.insert("location:"+slug, Entry{
			Span: loc.DeclaredIn,
			Kind: DefinitionKind{Tag: KindLocation, DisplayName: loc.DisplayName},
		})

		for _, direction := range loc.Exits.Keys() {
			exit, _ := loc.Exits.Get(direction)
			destination := exit.Destination
			if exit.ResolvedDestination != nil {
				destination = *exit.ResolvedDestination
			}
			idx.entries.insert(fmt.Sprintf("exit:%s/%s", slug, direction), Entry{
				Span: exit.DeclaredIn,
				Kind: DefinitionKind{Tag: KindExit, FromLocation: slug, Destination: destination},
			})
		}
	}

	for _, name := range st.Rules.Keys() {
		rule, _ := st.Rules.Get(name)
		idx.entries.insert("rule:"+name, Entry{
			Span: rule.DeclaredIn,
			Kind: DefinitionKind{Tag: KindRule},
		})
	}

	return idx
}

// Get looks up a definition by its namespace-prefixed key.
func (idx *Index) Get(key string) (Entry, bool) {
	i, ok := idx.entries.index[key]
	if !ok {
		return Entry{}, false
	}
	return idx.entries.values[i], true
}

// Keys returns every registered key in insertion order.
func (idx *Index) Keys() []string {
	return idx.entries.keys
}

// Len returns the number of definitions in the index.
func (idx *Index) Len() int {
	return len(idx.entries.values)
}

func formatValue(v symtab.Value) string {
	switch v.Kind {
	case symtab.ValueString:
		return fmt.Sprintf("%q", v.StringVal)
	case symtab.ValueInteger:
		return fmt.Sprintf("%d", v.IntegerVal)
	case symtab.ValueNumber:
		return fmt.Sprintf("%g", v.NumberVal)
	case symtab.ValueBoolean:
		return fmt.Sprintf("%t", v.BooleanVal)
	case symtab.ValueEntityRef:
		return "@" + v.EntityRefID
	case symtab.ValueList:
		out := "["
		for i, item := range v.ListVal {
			if i > 0 {
				out += ", "
			}
			out += formatValue(item)
		}
		return out + "]"
	default:
		return ""
	}
}
