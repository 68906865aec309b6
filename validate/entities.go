package validate

import (
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/symtab"
)

// validateEntities is step 2: every entity whose declared type resolved
// (LINK's resolveEntityTypes already reported 307 for the rest) has each of
// its property overrides checked against that type's property declarations.
func validateEntities(st *symtab.SymbolTable, c *diag.Collector) {
	for _, id := range st.Entities.Keys() {
		entity, _ := st.Entities.Get(id)
		if entity.TypeSymbol == nil {
			continue
		}
		typeSym, ok := st.Types.Get(*entity.TypeSymbol)
		if !ok {
			continue
		}
		if entity.PropertyOverrides == nil {
			continue
		}
		for _, key := range entity.PropertyOverrides.Keys() {
			value, _ := entity.PropertyOverrides.Get(key)
			prop, ok := typeSym.Properties.Get(key)
			if !ok {
				continue // Unknown override key: not this phase's concern.
			}
			checkValue(value, prop, entity.ID, typeSym.Name, checkOverride, st, entity.DeclaredIn, c)
		}
	}
}
