// Package analyze implements ANALYZE: five dataflow diagnostics computed
// purely from a facts.FactSet and its facts.PropertyDependencyIndex. It
// never imports ast, dgraph, or symtab — by the time ANALYZE runs, every
// question it answers is already expressible as a property-key query over
// the extracted fact tables, and keeping it free of the concrete parse tree
// keeps it runnable over any fact set, not just ones freshly extracted from
// source.
package analyze

import (
	"fmt"

	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/facts"
)

// Analyze runs all five diagnostics against fs and idx, appending results
// to c. It does not halt on the first finding — every diagnostic category
// runs independently over the full fact set.
func Analyze(fs *facts.FactSet, idx *facts.PropertyDependencyIndex, c *diag.Collector) {
	checkReadNeverWritten(fs, idx, c)
	checkWrittenNeverRead(fs, idx, c)
	checkUntestedEnumVariant(fs, idx, c)
	checkUnreachableThreshold(fs, idx, c)
	checkCircularDependency(fs, idx, c)
}

func checkReadNeverWritten(fs *facts.FactSet, idx *facts.PropertyDependencyIndex, c *diag.Collector) {
	for _, key := range idx.ReadButNeverWritten() {
		reads := idx.ReadsOf(key)
		if len(reads) == 0 {
			continue
		}
		first := fs.Reads()[reads[0]]
		var related []diag.RelatedInfo
		for _, i := range reads[1:] {
			r := fs.Reads()[i]
			related = append(related, diag.RelatedInfo{
				Message: fmt.Sprintf("also read here, at %s", siteDescription(r.Site)),
				Span:    r.Span,
			})
		}
		c.Emit(diag.Diagnostic{
			Severity: diag.SeverityWarning,
			Code:     diag.NewCode(601),
			Message: fmt.Sprintf(
				"Property '%s.%s' is read but never written anywhere in this world.",
				key.EntityType, key.Property,
			),
			Span:    first.Span,
			Related: related,
		})
	}
}

func checkWrittenNeverRead(fs *facts.FactSet, idx *facts.PropertyDependencyIndex, c *diag.Collector) {
	for _, key := range idx.WrittenButNeverRead() {
		writes := idx.WritesOf(key)
		if len(writes) == 0 {
			continue
		}
		first := fs.Writes()[writes[0]]
		var related []diag.RelatedInfo
		for _, i := range writes[1:] {
			w := fs.Writes()[i]
			related = append(related, diag.RelatedInfo{
				Message: fmt.Sprintf("also written here, at %s", siteDescription(w.Site)),
				Span:    w.Span,
			})
		}
		c.Emit(diag.Diagnostic{
			Severity: diag.SeverityWarning,
			Code:     diag.NewCode(602),
			Message: fmt.Sprintf(
				"Property '%s.%s' is written but never read anywhere in this world.",
				key.EntityType, key.Property,
			),
			Span:    first.Span,
			Related: related,
		})
	}
}

// checkUntestedEnumVariant flags a Set write of an enum-like identifier
// literal that no condition in the world ever tests for via equality. It is
// skipped entirely for properties with no reads at all, since 602 already
// covers that case more generally.
func checkUntestedEnumVariant(fs *facts.FactSet, idx *facts.PropertyDependencyIndex, c *diag.Collector) {
	for _, key := range idx.WrittenProperties() {
		reads := idx.ReadsOf(key)
		if len(reads) == 0 {
			continue
		}
		tested := make(map[string]bool)
		for _, i := range reads {
			r := fs.Reads()[i]
			if r.Operator == facts.CompareEq {
				tested[r.ValueLiteral] = true
			}
		}

		for _, i := range idx.WritesOf(key) {
			w := fs.Writes()[i]
			if w.Operator != facts.WriteSet || w.ValueKind == nil || *w.ValueKind != facts.LiteralIdent {
				continue
			}
			if tested[w.ValueExpr] {
				continue
			}
			c.Warning(diag.NewCode(603), fmt.Sprintf(
				"Property '%s.%s' is set to '%s', but no condition in this world ever tests for that value.",
				key.EntityType, key.Property, w.ValueExpr,
			), w.Span)
		}
	}
}

// checkUnreachableThreshold flags an ordering comparison against an integer
// threshold that no Set write can ever satisfy. It skips any property with
// an Add or Sub write, since unbounded accumulation could reach any
// threshold and the check would otherwise produce false positives.
func checkUnreachableThreshold(fs *facts.FactSet, idx *facts.PropertyDependencyIndex, c *diag.Collector) {
	for _, key := range idx.ReadProperties() {
		writes := idx.WritesOf(key)
		if hasAccumulatingWrite(fs, writes) {
			continue
		}
		setValues := setWriteValues(fs, writes)

		for _, i := range idx.ReadsOf(key) {
			r := fs.Reads()[i]
			if !isOrderingOp(r.Operator) {
				continue
			}
			threshold, ok := parseIntLiteral(r.ValueLiteral)
			if !ok {
				continue
			}
			if satisfiesAnyThreshold(setValues, r.Operator, threshold) {
				continue
			}
			c.Warning(diag.NewCode(604), fmt.Sprintf(
				"Condition '%s.%s %s %d' can never be satisfied: no write ever sets that property to a qualifying value.",
				key.EntityType, key.Property, compareSymbol(r.Operator), threshold,
			), r.Span)
		}
	}
}

// checkCircularDependency flags a written property whose every write site
// is guarded by a read of that same property — meaning the property can
// never actually change from whatever its initial value is.
func checkCircularDependency(fs *facts.FactSet, idx *facts.PropertyDependencyIndex, c *diag.Collector) {
	for _, key := range idx.WrittenProperties() {
		writes := idx.WritesOf(key)
		if len(writes) == 0 {
			continue
		}

		allGuarded := true
		var guardedSites []int
		for _, wi := range writes {
			w := fs.Writes()[wi]
			if !siteReadsOwnProperty(fs, w.Site, key) {
				allGuarded = false
				break
			}
			guardedSites = append(guardedSites, wi)
		}
		if !allGuarded {
			continue
		}

		first := fs.Writes()[writes[0]]
		var related []diag.RelatedInfo
		for _, wi := range guardedSites[1:] {
			w := fs.Writes()[wi]
			related = append(related, diag.RelatedInfo{
				Message: fmt.Sprintf("also guarded by a read of the same property, at %s", siteDescription(w.Site)),
				Span:    w.Span,
			})
		}
		c.Emit(diag.Diagnostic{
			Severity: diag.SeverityWarning,
			Code:     diag.NewCode(605),
			Message: fmt.Sprintf(
				"Property '%s.%s' can never change: every write to it is guarded by a read of itself.",
				key.EntityType, key.Property,
			),
			Span:    first.Span,
			Related: related,
		})
	}
}

func siteReadsOwnProperty(fs *facts.FactSet, site facts.Site, key facts.PropertyKey) bool {
	for _, i := range fs.ReadIndicesForSite(site) {
		r := fs.Reads()[i]
		if r.Key() == key {
			return true
		}
	}
	return false
}

func hasAccumulatingWrite(fs *facts.FactSet, writes []int) bool {
	for _, i := range writes {
		w := fs.Writes()[i]
		if w.Operator == facts.WriteAdd || w.Operator == facts.WriteSub {
			return true
		}
	}
	return false
}

func setWriteValues(fs *facts.FactSet, writes []int) []int64 {
	var out []int64
	for _, i := range writes {
		w := fs.Writes()[i]
		if w.Operator != facts.WriteSet {
			continue
		}
		if v, ok := parseIntLiteral(w.ValueExpr); ok {
			out = append(out, v)
		}
	}
	return out
}

func isOrderingOp(op facts.CompareOp) bool {
	switch op {
	case facts.CompareLt, facts.CompareGt, facts.CompareLe, facts.CompareGe:
		return true
	default:
		return false
	}
}

func satisfiesAnyThreshold(values []int64, op facts.CompareOp, threshold int64) bool {
	for _, v := range values {
		if satisfiesComparison(v, op, threshold) {
			return true
		}
	}
	return false
}

// satisfiesComparison reports whether value op threshold holds.
func satisfiesComparison(value int64, op facts.CompareOp, threshold int64) bool {
	switch op {
	case facts.CompareLt:
		return value < threshold
	case facts.CompareGt:
		return value > threshold
	case facts.CompareLe:
		return value <= threshold
	case facts.CompareGe:
		return value >= threshold
	default:
		return false
	}
}

func compareSymbol(op facts.CompareOp) string {
	switch op {
	case facts.CompareEq:
		return "=="
	case facts.CompareNe:
		return "!="
	case facts.CompareLt:
		return "<"
	case facts.CompareGt:
		return ">"
	case facts.CompareLe:
		return "<="
	case facts.CompareGe:
		return ">="
	default:
		return "?"
	}
}

func parseIntLiteral(raw string) (int64, bool) {
	var n int64
	var sign int64 = 1
	i := 0
	if len(raw) == 0 {
		return 0, false
	}
	if raw[0] == '-' {
		sign = -1
		i = 1
	}
	if i == len(raw) {
		return 0, false
	}
	for ; i < len(raw); i++ {
		d := raw[i]
		if d < '0' || d > '9' {
			return 0, false
		}
		n = n*10 + int64(d-'0')
	}
	return sign * n, true
}

func siteDescription(site facts.Site) string {
	switch site.Kind {
	case facts.SiteChoice:
		return fmt.Sprintf("choice '%s'", site.ID)
	case facts.SiteExit:
		return fmt.Sprintf("exit '%s'", site.ID)
	case facts.SiteRule:
		return fmt.Sprintf("rule '%s'", site.ID)
	default:
		return site.ID
	}
}
