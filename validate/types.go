package validate

import (
	"fmt"
	"strings"

	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/symtab"
)

var recognisedTypeSpellings = map[string]bool{
	"bool": true, "boolean": true,
	"int": true, "integer": true,
	"num": true, "number": true,
	"str": true, "string": true,
	"enum": true,
	"ref":  true,
	"list": true,
}

func isRecognisedType(raw string) bool {
	return recognisedTypeSpellings[strings.ToLower(strings.TrimSpace(raw))]
}

// validateTypes is step 1: every declared type's every property is
// checked in isolation, independent of any entity that might reference it.
func validateTypes(st *symtab.SymbolTable, c *diag.Collector) {
	for _, typeName := range st.Types.Keys() {
		typeSym, _ := st.Types.Get(typeName)
		for _, propName := range typeSym.Properties.Keys() {
			prop, _ := typeSym.Properties.Get(propName)
			validateProperty(typeSym.Name, prop, st, c)
		}
	}
}

func validateProperty(typeName string, prop *symtab.PropertySymbol, st *symtab.SymbolTable, c *diag.Collector) {
	if !isRecognisedType(prop.RawTypeString) {
		c.Warning(diag.NewCode(429), fmt.Sprintf(
			"Property '%s' on type '%s' declares unrecognised type string '%s'.",
			prop.Name, typeName, prop.RawTypeString,
		), prop.DeclaredIn)
	}

	if prop.PropertyType == symtab.PropertyEnum && len(prop.Values) == 0 {
		c.Error(diag.NewCode(414), fmt.Sprintf(
			"Property '%s' on type '%s' is declared enum but lists no values.",
			prop.Name, typeName,
		), prop.DeclaredIn)
	}

	if prop.RefType != nil {
		if _, ok := st.Types.Get(*prop.RefType); !ok {
			c.Error(diag.NewCode(415), fmt.Sprintf(
				"Property '%s' on type '%s' references unknown ref type '%s'.",
				prop.Name, typeName, *prop.RefType,
			), prop.DeclaredIn)
		}
	}

	if prop.Min != nil && prop.Max != nil && *prop.Min > *prop.Max {
		c.Error(diag.NewCode(416), fmt.Sprintf(
			"Property '%s' on type '%s' declares min %g greater than max %g.",
			prop.Name, typeName, *prop.Min, *prop.Max,
		), prop.DeclaredIn)
	}

	if (prop.Min != nil || prop.Max != nil) && prop.PropertyType != symtab.PropertyInteger && prop.PropertyType != symtab.PropertyNumber {
		c.Error(diag.NewCode(417), fmt.Sprintf(
			"Property '%s' on type '%s' declares a range constraint but is not numeric (%s).",
			prop.Name, typeName, formatPropertyType(prop.PropertyType),
		), prop.DeclaredIn)
	}

	if prop.Default != nil {
		checkValue(*prop.Default, prop, "", typeName, checkDefault, st, prop.DeclaredIn, c)
	}
}
