// Package validate implements VALIDATE: a read-only pass over the symbol
// table and annotated ASTs that checks every semantic constraint PARSE,
// IMPORT, and LINK don't already enforce. It never mutates either
// structure. Every check respects the skip rule: a nil annotation field
// means LINK already reported the root cause, so VALIDATE silently omits
// whatever depends on it rather than cascading a second diagnostic.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/span"
	"github.com/urdwyrd/urd/symtab"
)

func hasTrait(typeName, trait string, st *symtab.SymbolTable) bool {
	typeSym, ok := st.Types.Get(typeName)
	if !ok {
		return false
	}
	for _, t := range typeSym.Traits {
		if t == trait {
			return true
		}
	}
	return false
}

// parseStringToValue parses a raw string literal the way a property
// comparison or set effect's value expression is written, given the
// expected property type.
func parseStringToValue(raw string, expected symtab.PropertyType) symtab.Value {
	switch expected {
	case symtab.PropertyBoolean:
		switch raw {
		case "true":
			return symtab.Value{Kind: symtab.ValueBoolean, BooleanVal: true}
		case "false":
			return symtab.Value{Kind: symtab.ValueBoolean, BooleanVal: false}
		default:
			return symtab.Value{Kind: symtab.ValueString, StringVal: raw}
		}
	case symtab.PropertyInteger:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return symtab.Value{Kind: symtab.ValueInteger, IntegerVal: i}
		}
		return symtab.Value{Kind: symtab.ValueString, StringVal: raw}
	case symtab.PropertyNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return symtab.Value{Kind: symtab.ValueNumber, NumberVal: n}
		}
		return symtab.Value{Kind: symtab.ValueString, StringVal: raw}
	case symtab.PropertyEnum, symtab.PropertyString:
		return symtab.Value{Kind: symtab.ValueString, StringVal: raw}
	case symtab.PropertyRef:
		return symtab.Value{Kind: symtab.ValueEntityRef, EntityRefID: raw}
	default:
		// Lists are not parsed from a raw comparison/effect literal.
		return symtab.Value{Kind: symtab.ValueString, StringVal: raw}
	}
}

func formatValue(v symtab.Value) string {
	switch v.Kind {
	case symtab.ValueString:
		return v.StringVal
	case symtab.ValueInteger:
		return strconv.FormatInt(v.IntegerVal, 10)
	case symtab.ValueNumber:
		return strconv.FormatFloat(v.NumberVal, 'g', -1, 64)
	case symtab.ValueBoolean:
		return strconv.FormatBool(v.BooleanVal)
	case symtab.ValueEntityRef:
		return "@" + v.EntityRefID
	case symtab.ValueList:
		parts := make([]string, len(v.ListVal))
		for i, item := range v.ListVal {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

func formatPropertyType(pt symtab.PropertyType) string {
	switch pt {
	case symtab.PropertyBoolean:
		return "boolean"
	case symtab.PropertyInteger:
		return "integer"
	case symtab.PropertyNumber:
		return "number"
	case symtab.PropertyString:
		return "string"
	case symtab.PropertyEnum:
		return "enum"
	case symtab.PropertyRef:
		return "ref"
	case symtab.PropertyList:
		return "list"
	default:
		return "unknown"
	}
}

// checkContext selects which diagnostic code a type mismatch reports
// under, since the same shape of error means something different depending
// on where the value came from.
type checkContext int

const (
	// checkOverride is an entity property override (step 2): enum
	// mismatches report 402.
	checkOverride checkContext = iota
	// checkDefault is a type property default (step 1): every mismatch
	// reports 413.
	checkDefault
	// checkConditionOrEffect is a condition or effect value (steps 3-4):
	// every mismatch reports 401.
	checkConditionOrEffect
)

// checkValue validates value against prop's declared type, emitting
// whichever diagnostic fits ctx. It returns whether the value is valid.
func checkValue(value symtab.Value, prop *symtab.PropertySymbol, entityID, typeName string, ctx checkContext, st *symtab.SymbolTable, sp span.Span, c *diag.Collector) bool {
	isDefault := ctx == checkDefault
	switch prop.PropertyType {
	case symtab.PropertyBoolean:
		if value.Kind != symtab.ValueBoolean {
			emitTypeMismatch(value, prop, entityID, typeName, isDefault, sp, c)
			return false
		}

	case symtab.PropertyInteger:
		if value.Kind != symtab.ValueInteger {
			emitTypeMismatch(value, prop, entityID, typeName, isDefault, sp, c)
			return false
		}
		return checkRange(float64(value.IntegerVal), prop, entityID, sp, c)

	case symtab.PropertyNumber:
		var num float64
		ok := true
		switch value.Kind {
		case symtab.ValueNumber:
			num = value.NumberVal
		case symtab.ValueInteger:
			num = float64(value.IntegerVal)
		default:
			ok = false
		}
		if !ok {
			emitTypeMismatch(value, prop, entityID, typeName, isDefault, sp, c)
			return false
		}
		return checkRange(num, prop, entityID, sp, c)

	case symtab.PropertyString:
		if value.Kind != symtab.ValueString {
			emitTypeMismatch(value, prop, entityID, typeName, isDefault, sp, c)
			return false
		}

	case symtab.PropertyEnum:
		if value.Kind != symtab.ValueString {
			emitTypeMismatch(value, prop, entityID, typeName, isDefault, sp, c)
			return false
		}
		if len(prop.Values) > 0 && !containsString(prop.Values, value.StringVal) {
			switch ctx {
			case checkOverride:
				c.Error(diag.NewCode(402), fmt.Sprintf(
					"Enum value '%s' is not valid for property '%s' on entity '@%s'. Valid values: %s.",
					value.StringVal, prop.Name, entityID, strings.Join(prop.Values, ", "),
				), sp)
			case checkDefault:
				c.Error(diag.NewCode(413), fmt.Sprintf(
					"Default value '%s' for property '%s' on type '%s' does not match the declared type '%s'.",
					value.StringVal, prop.Name, typeName, formatPropertyType(prop.PropertyType),
				), sp)
			case checkConditionOrEffect:
				c.Error(diag.NewCode(401), fmt.Sprintf(
					"Type mismatch: property '%s' on entity '@%s' expects %s but got '%s'.",
					prop.Name, entityID, formatPropertyType(prop.PropertyType), value.StringVal,
				), sp)
			}
			return false
		}

	case symtab.PropertyRef:
		switch value.Kind {
		case symtab.ValueEntityRef:
			checkRefType(value.EntityRefID, prop, entityID, st, sp, c)
		case symtab.ValueString:
			// A bare string in override position may still be an entity id.
			checkRefType(value.StringVal, prop, entityID, st, sp, c)
		default:
			emitTypeMismatch(value, prop, entityID, typeName, isDefault, sp, c)
			return false
		}

	case symtab.PropertyList:
		if value.Kind != symtab.ValueList {
			emitTypeMismatch(value, prop, entityID, typeName, isDefault, sp, c)
			return false
		}
		if prop.ElementType != nil {
			elemProp := &symtab.PropertySymbol{
				Name:         prop.Name,
				PropertyType: *prop.ElementType,
				Values:       prop.ElementValues,
				RefType:      prop.ElementRefType,
				DeclaredIn:   prop.DeclaredIn,
			}
			for _, item := range value.ListVal {
				checkValue(item, elemProp, entityID, typeName, ctx, st, sp, c)
			}
		}
	}
	return true
}

func emitTypeMismatch(value symtab.Value, prop *symtab.PropertySymbol, entityID, typeName string, isDefault bool, sp span.Span, c *diag.Collector) {
	if isDefault {
		c.Error(diag.NewCode(413), fmt.Sprintf(
			"Default value '%s' for property '%s' on type '%s' does not match the declared type '%s'.",
			formatValue(value), prop.Name, typeName, formatPropertyType(prop.PropertyType),
		), sp)
		return
	}
	c.Error(diag.NewCode(401), fmt.Sprintf(
		"Type mismatch: property '%s' on entity '@%s' expects %s but got '%s'.",
		prop.Name, entityID, formatPropertyType(prop.PropertyType), formatValue(value),
	), sp)
}

func checkRange(value float64, prop *symtab.PropertySymbol, entityID string, sp span.Span, c *diag.Collector) bool {
	if prop.Min == nil && prop.Max == nil {
		return true
	}
	min, max := math.Inf(-1), math.Inf(1)
	if prop.Min != nil {
		min = *prop.Min
	}
	if prop.Max != nil {
		max = *prop.Max
	}
	if value < min || value > max {
		minStr, maxStr := "-∞", "∞"
		if prop.Min != nil {
			minStr = strconv.FormatFloat(*prop.Min, 'g', -1, 64)
		}
		if prop.Max != nil {
			maxStr = strconv.FormatFloat(*prop.Max, 'g', -1, 64)
		}
		c.Error(diag.NewCode(418), fmt.Sprintf(
			"Value %s for property '%s' on entity '@%s' is outside the declared range [%s, %s].",
			strconv.FormatFloat(value, 'g', -1, 64), prop.Name, entityID, minStr, maxStr,
		), sp)
		return false
	}
	return true
}

func checkRefType(refID string, prop *symtab.PropertySymbol, entityID string, st *symtab.SymbolTable, sp span.Span, c *diag.Collector) {
	if prop.RefType == nil {
		return
	}
	refEntity, ok := st.Entities.Get(refID)
	if !ok {
		return // Unresolved — LINK already reported 301.
	}
	if refEntity.TypeSymbol == nil {
		return // Type unresolved — LINK already reported 307.
	}
	if *refEntity.TypeSymbol != *prop.RefType {
		c.Error(diag.NewCode(419), fmt.Sprintf(
			"Property '%s' on entity '@%s' requires a reference to type '%s' but '@%s' has type '%s'.",
			prop.Name, entityID, *prop.RefType, refID, *refEntity.TypeSymbol,
		), sp)
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
