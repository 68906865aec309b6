package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urdwyrd/urd/span"
	"github.com/urdwyrd/urd/symtab"
)

func TestFirstDeclaredWins(t *testing.T) {
	st := symtab.New()
	first := &symtab.LocationSymbol{ID: "cellar", DisplayName: "The Cellar", DeclaredIn: span.New("a.urd.md", 1, 1)}
	second := &symtab.LocationSymbol{ID: "cellar", DisplayName: "Another Cellar", DeclaredIn: span.New("b.urd.md", 1, 1)}

	inserted := st.Locations.Insert("cellar", first)
	assert.True(t, inserted)

	inserted = st.Locations.Insert("cellar", second)
	assert.False(t, inserted)
	st.AddDuplicate("location", "cellar", second.DeclaredIn)

	got, ok := st.Locations.Get("cellar")
	assert.True(t, ok)
	assert.Equal(t, "The Cellar", got.DisplayName)
	assert.Len(t, st.Duplicates, 1)
	assert.Equal(t, "location", st.Duplicates[0].Namespace)
}

func TestInsertionOrderPreserved(t *testing.T) {
	st := symtab.New()
	st.Types.Insert("Portable", &symtab.TypeSymbol{Name: "Portable"})
	st.Types.Insert("Container", &symtab.TypeSymbol{Name: "Container"})
	st.Types.Insert("Lockable", &symtab.TypeSymbol{Name: "Lockable"})

	assert.Equal(t, []string{"Portable", "Container", "Lockable"}, st.Types.Keys())
}

func TestExitMapUpdate(t *testing.T) {
	st := symtab.New()
	loc := &symtab.LocationSymbol{ID: "cellar", Exits: symtab.NewExitMap()}
	st.Locations.Insert("cellar", loc)

	loc.Exits.Insert("north", &symtab.ExitSymbol{Direction: "north", Destination: "pantry"})
	resolved := "pantry"
	ex, _ := loc.Exits.Get("north")
	ex.ResolvedDestination = &resolved
	loc.Exits.Update("north", ex)

	got, ok := loc.Exits.Get("north")
	assert.True(t, ok)
	assert.Equal(t, &resolved, got.ResolvedDestination)
}
